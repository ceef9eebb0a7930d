// Package jobsource reads the job description the pipeline runs against.
package jobsource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	TextColumn          = "Job Description"
	TitleColumn         = "Job Title"
	FallbackTextColumn  = "job_description_text"
	FallbackTitleColumn = "job_title"

	defaultTitle = "N/A Job Title"
)

var (
	ErrNoRows        = errors.New("job description file has no rows")
	ErrMissingColumn = errors.New("job description column not found")
)

// legacyEncodings are tried in order when the file is not valid UTF-8.
var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{name: "cp1252", enc: charmap.Windows1252},
	{name: "iso-8859-1", enc: charmap.ISO8859_1},
}

// Posting is the first job description found in the file.
type Posting struct {
	Title       string
	Text        string
	SourceLabel string
	// Encoding is the character set the file was decoded with.
	Encoding string
}

// Load reads the first data row of the CSV file at path.
func Load(path string) (*Posting, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job descriptions: %w", err)
	}

	content, enc, err := decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	textIdx, titleIdx := columns(header)
	if textIdx < 0 {
		return nil, fmt.Errorf("%w: expected %q or %q", ErrMissingColumn, TextColumn, FallbackTextColumn)
	}

	row, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv row: %w", err)
	}

	text := strings.TrimSpace(field(row, textIdx))
	if text == "" {
		return nil, errors.New("job description text in the first row is empty")
	}

	title := strings.TrimSpace(field(row, titleIdx))
	if title == "" {
		title = defaultTitle
	}

	return &Posting{
		Title:       title,
		Text:        text,
		SourceLabel: fmt.Sprintf("%s (row 0)", path),
		Encoding:    enc,
	}, nil
}

// EnsureDir creates the resumes directory when it is missing and reports
// whether it had to. A path that exists but is not a directory is an error.
func EnsureDir(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, fmt.Errorf("%s is not a directory", path)
		}
		return false, nil
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("checking resumes directory: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, fmt.Errorf("creating resumes directory: %w", err)
	}
	return true, nil
}

// EnsureSample writes a one-row sample file when path does not exist yet.
// It reports whether a file was created.
func EnsureSample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking job descriptions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating job descriptions directory: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{FallbackTitleColumn, FallbackTextColumn})
	_ = w.Write([]string{
		"Senior Python Developer",
		"We need a skilled Python developer with 5+ years experience in Django, Flask, and REST APIs. " +
			"Must have a BS in Computer Science. Responsibilities include developing new features, " +
			"maintaining existing code, and collaborating with the team. Strong problem-solving skills required.",
	})
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("encoding sample job description: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("writing sample job description: %w", err)
	}
	return true, nil
}

func decode(raw []byte) (string, string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), "utf-8", nil
	}

	var lastErr error
	for _, candidate := range legacyEncodings {
		out, err := candidate.enc.NewDecoder().Bytes(raw)
		if err == nil {
			return string(out), candidate.name, nil
		}
		lastErr = err
	}
	return "", "", fmt.Errorf("decoding job descriptions: %w", lastErr)
}

// columns prefers the primary text column and pairs it with whichever title column exists.
func columns(header []string) (text, title int) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	lookup := func(names ...string) int {
		for _, name := range names {
			if i, ok := index[name]; ok {
				return i
			}
		}
		return -1
	}

	if i, ok := index[TextColumn]; ok {
		return i, lookup(TitleColumn, FallbackTitleColumn)
	}
	if i, ok := index[FallbackTextColumn]; ok {
		return i, lookup(FallbackTitleColumn, TitleColumn)
	}
	return -1, -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
