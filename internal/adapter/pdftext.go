package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// PDFText reads the embedded text layer with the pure-Go PDF reader and
// emits one text block per page.
type PDFText struct{}

func (PDFText) Method() schema.Method { return schema.MethodPDFText }

func (PDFText) Extract(ctx context.Context, pdfPath string, pages []int, minConfidence float64) (doc schema.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return schema.Document{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	for _, p := range SelectPages(pages, total) {
		if err := ctx.Err(); err != nil {
			return schema.Document{}, err
		}
		text, ok := plainText(r.Page(p))
		if !ok {
			log.Debug().Str("method", string(schema.MethodPDFText)).Int("page", p).Msg("page text unreadable")
			continue
		}
		if text == "" {
			continue
		}
		doc.TextBlocks = append(doc.TextBlocks, schema.TextBlock{
			Text:       text,
			Provenance: provenance.New(schema.MethodPDFText, p, nil, nil, map[string]any{"source": "text_layer"}),
		})
	}
	doc.ExtractionMetadata = map[string]any{"method": string(schema.MethodPDFText), "engine": "ledongthuc/pdf"}
	return Finish(doc, total, minConfidence), nil
}

func plainText(p pdf.Page) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()
	if p.V.IsNull() {
		return "", true
	}
	s, err := p.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// PageCount opens pdfPath only to count its pages.
func PageCount(pdfPath string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return r.NumPage(), nil
}
