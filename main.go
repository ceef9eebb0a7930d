package main

import (
	"os"

	"github.com/StackOverflowed512/Shortlisting-Agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
