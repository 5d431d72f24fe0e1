// Package extract pulls plain text out of uploaded course documents.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat indicates the file extension has no extractor.
var ErrUnsupportedFormat = errors.New("extract: unsupported format")

// ErrEmptyDocument indicates extraction succeeded but found no text.
var ErrEmptyDocument = errors.New("extract: document has no extractable text")

// Text extracts plain text from the document at path. The extractor is
// chosen by file extension.
func Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		content string
		err     error
	)
	switch ext {
	case ".pdf":
		content, err = pdfText(path)
	case ".docx":
		content, err = docxText(path)
	case ".pptx":
		content, err = pptxText(path)
	case ".txt", ".md", ".markdown":
		content, err = plainText(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}
	content = normalize(content)
	if content == "" {
		return "", ErrEmptyDocument
	}
	return content, nil
}

func plainText(path string) (string, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return "", fmt.Errorf("extract: read %s: %w", filepath.Base(path), errRead)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("extract: %s is not valid utf-8", filepath.Base(path))
	}
	return string(data), nil
}

// normalize trims trailing whitespace per line and collapses runs of blank
// lines so chunking sees consistent paragraph breaks.
func normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blankRun = 0
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
