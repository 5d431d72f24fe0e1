package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText extracts text from a PDF page by page. Pages that fail to decode
// are skipped so one bad page does not lose the rest of the document.
func pdfText(path string) (string, error) {
	file, reader, errOpen := pdf.Open(path)
	if errOpen != nil {
		return "", fmt.Errorf("extract: open pdf %s: %w", filepath.Base(path), errOpen)
	}
	defer func() { _ = file.Close() }()

	var builder strings.Builder
	total := reader.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, errText := page.GetPlainText(nil)
		if errText != nil {
			continue
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
