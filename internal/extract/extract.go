// Package extract turns raw document bytes into plain text at ingestion time.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/mfenderov/lifeadmin/internal/processor"
)

// Extractor extracts text from documents. Images have no text without OCR.
type Extractor struct {
	processor *processor.Processor
	maxPages  int
}

// New creates an extractor. maxPages bounds PDF extraction; 0 means no limit.
func New(maxPages int) *Extractor {
	return &Extractor{processor: processor.New(), maxPages: maxPages}
}

// Extract returns the document text, or nil when the document has none.
func (e *Extractor) Extract(ctx context.Context, filename, contentType string, data []byte) (*string, error) {
	kind := Sniff(filename, contentType, data)

	var text string
	var err error
	switch kind {
	case KindPDF:
		text, err = e.pdfText(ctx, data)
	case KindHTML:
		text, err = e.processor.Convert(string(data))
	case KindText:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("text document is not valid UTF-8")
		}
		text = string(data)
		if LooksLikeHTML(text) {
			text, err = e.processor.Convert(text)
		}
	default:
		slog.Debug("no text extractor for document", "filename", filename, "kind", kind.String())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s text: %w", kind, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return &text, nil
}

func (e *Extractor) pdfText(ctx context.Context, data []byte) (text string, err error) {
	// The PDF reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := reader.NumPage()
	if e.maxPages > 0 && pages > e.maxPages {
		pages = e.maxPages
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= pages; i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		content, err := page.GetPlainText(fonts)
		if err != nil {
			slog.Warn("failed to extract pdf page", "page", i, "error", err)
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
