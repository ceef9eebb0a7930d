// Package extract turns resume documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	ErrEmptyText         = errors.New("no text extracted")
)

// Format is a resume document format the extractor understands.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatDOCX
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	default:
		return "unsupported"
	}
}

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnsupported
	}
}

// converter has the shape of the docconv reader converters.
type converter func(r io.Reader) (string, map[string]string, error)

// Extractor reads PDF and DOCX resumes.
type Extractor struct {
	converters map[Format]converter
	logger     *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	return &Extractor{
		converters: map[Format]converter{
			FormatPDF:  docconv.ConvertPDF,
			FormatDOCX: docconv.ConvertDocx,
		},
		logger: logger,
	}
}

// Supports reports whether path has an extension Extract can handle.
func (e *Extractor) Supports(path string) bool {
	_, ok := e.converters[DetectFormat(path)]
	return ok
}

// Extract returns the document text. Blank documents yield ErrEmptyText.
func (e *Extractor) Extract(path string) (string, error) {
	format := DetectFormat(path)
	convert, ok := e.converters[format]
	if !ok {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening resume: %w", err)
	}
	defer f.Close()

	text, _, err := convert(f)
	if err != nil {
		return "", fmt.Errorf("converting %s %s: %w", format, filepath.Base(path), err)
	}

	if strings.TrimSpace(text) == "" {
		e.logger.Warn("no text extracted, the document may be image-based or empty",
			zap.String("file", filepath.Base(path)),
			zap.Stringer("format", format),
		)
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyText)
	}

	e.logger.Debug("extracted resume text",
		zap.String("file", filepath.Base(path)),
		zap.Stringer("format", format),
		zap.Int("length", len(text)),
	)

	return text, nil
}
