package adapter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hyperifyio/pdfxbench/internal/extract"
	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// popplerConfidence is assigned to every block; the text layer is exact.
const popplerConfidence = 1.0

// Poppler runs pdftotext -bbox-layout and emits one text block per layout
// block with its bounding box.
type Poppler struct {
	Runner Runner
	Bin    string
}

func (a Poppler) Method() schema.Method { return schema.MethodPoppler }

func (a Poppler) bin() string {
	if a.Bin == "" {
		return "pdftotext"
	}
	return a.Bin
}

// Probe checks that pdftotext is installed.
func (a Poppler) Probe() error { return lookPath(a.bin()) }

func (a Poppler) Extract(ctx context.Context, pdfPath string, pages []int, minConfidence float64) (schema.Document, error) {
	runner := a.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	total, err := PageCount(pdfPath)
	if err != nil {
		return schema.Document{}, err
	}
	stdout, stderr, err := runner.Run(ctx, a.bin(), "-bbox-layout", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return schema.Document{}, commandError(a.bin(), stderr, err)
	}
	boxes, err := extract.BBoxLayout{}.Parse(bytes.NewReader(stdout))
	if err != nil {
		return schema.Document{}, fmt.Errorf("parse bbox layout: %w", err)
	}

	var doc schema.Document
	for i, b := range boxes {
		if !wantPage(pages, b.Page) {
			continue
		}
		conf := popplerConfidence
		doc.TextBlocks = append(doc.TextBlocks, schema.TextBlock{
			Text: b.Text,
			Provenance: provenance.New(schema.MethodPoppler, b.Page, boxGeometry(b), &conf, map[string]any{
				"block_index": i,
			}),
		})
	}
	doc.ExtractionMetadata = map[string]any{"method": string(schema.MethodPoppler), "blocks": len(boxes)}
	return Finish(doc, total, minConfidence), nil
}

// boxGeometry validates the box corners; degenerate boxes become nil.
func boxGeometry(b extract.Box) *schema.BoundingBox {
	bb, err := provenance.BuildBBox(b.X0, b.Y0, b.X1, b.Y1)
	if err != nil {
		return nil
	}
	return &bb
}
