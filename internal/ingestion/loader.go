package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is one unit of loaded text. Plain-text files load as a single page.
type Page struct {
	Number int
	Text   string
}

func isPDF(path, contentType string) bool {
	return contentType == "application/pdf" || strings.EqualFold(filepath.Ext(path), ".pdf")
}

// LoadPages reads the text of a stored brochure.
func LoadPages(path, contentType string) ([]Page, error) {
	if isPDF(path, contentType) {
		return loadPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return []Page{{Number: 1, Text: string(data)}}, nil
}

func loadPDF(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
