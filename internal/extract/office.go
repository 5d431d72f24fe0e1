package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// docxText extracts paragraph text from word/document.xml.
func docxText(path string) (string, error) {
	archive, errOpen := zip.OpenReader(path)
	if errOpen != nil {
		return "", fmt.Errorf("extract: open docx %s: %w", filepath.Base(path), errOpen)
	}
	defer func() { _ = archive.Close() }()

	for _, entry := range archive.File {
		if entry.Name != "word/document.xml" {
			continue
		}
		text, errParse := officeXMLText(entry)
		if errParse != nil {
			return "", fmt.Errorf("extract: parse docx %s: %w", filepath.Base(path), errParse)
		}
		return text, nil
	}
	return "", fmt.Errorf("extract: %s has no word/document.xml", filepath.Base(path))
}

// pptxText extracts text from every slide in deck order.
func pptxText(path string) (string, error) {
	archive, errOpen := zip.OpenReader(path)
	if errOpen != nil {
		return "", fmt.Errorf("extract: open pptx %s: %w", filepath.Base(path), errOpen)
	}
	defer func() { _ = archive.Close() }()

	var slides []*zip.File
	for _, entry := range archive.File {
		if strings.HasPrefix(entry.Name, "ppt/slides/slide") && strings.HasSuffix(entry.Name, ".xml") {
			slides = append(slides, entry)
		}
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("extract: %s has no slides", filepath.Base(path))
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideOrdinal(slides[i].Name) < slideOrdinal(slides[j].Name)
	})

	var builder strings.Builder
	for _, slide := range slides {
		text, errParse := officeXMLText(slide)
		if errParse != nil {
			return "", fmt.Errorf("extract: parse pptx %s: %w", filepath.Base(path), errParse)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}
	return builder.String(), nil
}

// slideOrdinal parses the numeric part of ppt/slides/slideN.xml for ordering.
func slideOrdinal(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), ".xml")
	digits := strings.TrimPrefix(base, "slide")
	ordinal := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ordinal
		}
		ordinal = ordinal*10 + int(r-'0')
	}
	return ordinal
}

// officeXMLText walks an OOXML part collecting run text (w:t / a:t) and
// breaking lines at paragraph ends (w:p / a:p).
func officeXMLText(entry *zip.File) (string, error) {
	reader, errOpen := entry.Open()
	if errOpen != nil {
		return "", errOpen
	}
	defer func() { _ = reader.Close() }()

	decoder := xml.NewDecoder(reader)
	var builder strings.Builder
	inText := false
	for {
		token, errToken := decoder.Token()
		if errToken == io.EOF {
			break
		}
		if errToken != nil {
			return "", errToken
		}
		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(element)
			}
		}
	}
	return builder.String(), nil
}
