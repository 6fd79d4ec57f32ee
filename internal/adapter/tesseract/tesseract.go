//go:build !notesseract

// Package tesseract runs local OCR through libtesseract. It is kept apart
// from package adapter because it needs cgo and the tesseract libraries.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/adapter"
	"github.com/hyperifyio/pdfxbench/internal/extract"
	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// DefaultDPI is the render resolution for OCR.
const DefaultDPI = 300

// OCR is the tesseract adapter. Pages are rendered with pdftoppm, each
// image is recognized to hOCR and every ocr_line becomes a text block.
// Boxes are in pixels of the rendered image.
type OCR struct {
	Raster    adapter.Rasterizer
	Languages []string
}

// New returns an OCR adapter for the given languages ("eng" when empty).
func New(raster adapter.Rasterizer, languages ...string) *OCR {
	if raster.DPI <= 0 {
		raster.DPI = DefaultDPI
	}
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &OCR{Raster: raster, Languages: languages}
}

func (a *OCR) Method() schema.Method { return schema.MethodTesseract }

// Probe checks the rasterizer and that libtesseract answers.
func (a *OCR) Probe() error {
	if err := a.Raster.Probe(); err != nil {
		return err
	}
	if strings.TrimSpace(gosseract.Version()) == "" {
		return errors.New("libtesseract unavailable")
	}
	return nil
}

func (a *OCR) Extract(ctx context.Context, pdfPath string, pages []int, minConfidence float64) (schema.Document, error) {
	total, err := adapter.PageCount(pdfPath)
	if err != nil {
		return schema.Document{}, err
	}
	sel := adapter.SelectPages(pages, total)
	tmp, err := os.MkdirTemp("", "pdfxbench-ocr-*")
	if err != nil {
		return schema.Document{}, err
	}
	defer os.RemoveAll(tmp)
	images, err := a.Raster.Render(ctx, pdfPath, sel, tmp)
	if err != nil {
		return schema.Document{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(a.Languages...); err != nil {
		return schema.Document{}, fmt.Errorf("tesseract language: %w", err)
	}

	var doc schema.Document
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return schema.Document{}, err
		}
		if err := client.SetImage(img.Path); err != nil {
			return schema.Document{}, fmt.Errorf("tesseract image page %d: %w", img.Page, err)
		}
		hocr, err := client.HOCRText()
		if err != nil {
			return schema.Document{}, fmt.Errorf("tesseract page %d: %w", img.Page, err)
		}
		blocks, err := Blocks(hocr, img.Page, a.Raster.DPI)
		if err != nil {
			return schema.Document{}, err
		}
		log.Debug().Str("method", string(schema.MethodTesseract)).Int("page", img.Page).Int("lines", len(blocks)).Msg("page recognized")
		doc.TextBlocks = append(doc.TextBlocks, blocks...)
	}
	doc.ExtractionMetadata = map[string]any{
		"method":    string(schema.MethodTesseract),
		"languages": strings.Join(a.Languages, "+"),
		"dpi":       a.Raster.DPI,
		"version":   gosseract.Version(),
	}
	return adapter.Finish(doc, total, minConfidence), nil
}

// Blocks converts the hOCR of one page into text blocks. Confidence is the
// mean word x_wconf scaled to [0,1].
func Blocks(hocr string, page, dpi int) ([]schema.TextBlock, error) {
	lines, err := extract.HOCR{Page: page}.Parse(strings.NewReader(hocr))
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}
	out := make([]schema.TextBlock, 0, len(lines))
	for _, l := range lines {
		var bbox *schema.BoundingBox
		if b, err := provenance.BuildBBox(l.X0, l.Y0, l.X1, l.Y1); err == nil {
			bbox = &b
		}
		var conf *float64
		if l.Confidence != nil {
			conf = provenance.NormalizeConfidence(*l.Confidence, schema.MethodTesseract)
		}
		out = append(out, schema.TextBlock{
			Text:       l.Text,
			Provenance: provenance.New(schema.MethodTesseract, l.Page, bbox, conf, map[string]any{"dpi": dpi, "units": "px"}),
		})
	}
	return out, nil
}
