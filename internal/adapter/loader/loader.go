// Package loader reads, validates and cleans raw document files before
// chunking. It understands plain text, markdown, CSV, and exported
// VTT/SRT subtitle files.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrUnsupportedType rejects extensions outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge rejects files above the configured size cap.
	ErrFileTooLarge = errors.New("file too large")
)

// DefaultMaxFileBytes caps accepted files at 10MB.
const DefaultMaxFileBytes = 10 << 20

var allowedExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".csv": {}, ".vtt": {}, ".srt": {},
}

// Validate checks a file's extension and size before any content is read.
// Rejections happen here, never mid-pipeline.
func Validate(path string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	if size > maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, maxBytes)
	}
	return nil
}

// Load reads a file and returns its cleaned text content.
func Load(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch ext {
	case ".csv":
		text, err := flattenCSV(string(data))
		if err != nil {
			return "", fmt.Errorf("failed to parse CSV %s: %w", path, err)
		}
		return text, nil
	case ".vtt", ".srt":
		return CleanText(CleanSubtitles(string(data))), nil
	case ".txt", ".md":
		return CleanText(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

// CleanText collapses runs of whitespace (including newlines and tabs) into
// single spaces and trims the result.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// flattenCSV joins each row's fields with spaces so tabular data becomes
// searchable text, one line per row.
func flattenCSV(content string) (string, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		line := CleanText(strings.Join(record, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

var (
	inlineCueTag  = regexp.MustCompile(`<[^>]+>`)
	srtTimestamp  = regexp.MustCompile(`-->`)
	cueNumberLine = regexp.MustCompile(`^\d+$`)
)

// CleanSubtitles strips VTT/SRT structure from exported subtitle files:
// headers, cue numbers, timestamp lines, inline timing/styling tags, and
// consecutive duplicate caption lines (a common artifact of rolling
// captions).
func CleanSubtitles(content string) string {
	var cleaned []string
	previous := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") ||
			strings.HasPrefix(line, "Kind:") ||
			strings.HasPrefix(line, "Language:") ||
			strings.HasPrefix(line, "NOTE") {
			continue
		}
		if cueNumberLine.MatchString(line) {
			continue
		}
		if srtTimestamp.MatchString(line) {
			continue
		}

		line = inlineCueTag.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" || line == previous {
			continue
		}

		cleaned = append(cleaned, line)
		previous = line
	}

	return strings.Join(cleaned, "\n")
}
