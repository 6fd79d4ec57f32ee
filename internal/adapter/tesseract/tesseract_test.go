//go:build !notesseract

package tesseract

import (
	"math"
	"testing"

	"github.com/hyperifyio/pdfxbench/internal/adapter"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

const hocr = `<html><body><div class='ocr_page' title='bbox 0 0 2550 3300'>
<span class='ocr_line' title="bbox 10 20 400 60"><span class='ocrx_word' title='bbox 10 20 200 60; x_wconf 92'>Net</span> <span class='ocrx_word' title='bbox 210 20 400 60; x_wconf 88'>income</span></span>
<span class='ocr_line' title="bbox 10 80 10 120"><span class='ocrx_word' title='bbox 10 80 10 120; x_wconf 50'>|</span></span>
</div></body></html>`

func TestBlocks(t *testing.T) {
	blocks, err := Blocks(hocr, 2, DefaultDPI)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	first := blocks[0]
	if first.Text != "Net income" || first.Provenance.Page != 2 || first.Provenance.Method != schema.MethodTesseract {
		t.Fatalf("first: %+v", first)
	}
	if first.Provenance.BBox == nil || first.Provenance.BBox.X1 != 400 {
		t.Fatalf("bbox: %+v", first.Provenance.BBox)
	}
	if c := *first.Provenance.Confidence; math.Abs(c-0.90) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.90", c)
	}
	if blocks[1].Provenance.BBox != nil {
		t.Fatalf("degenerate box must be dropped")
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(adapter.Rasterizer{})
	if a.Raster.DPI != DefaultDPI || len(a.Languages) != 1 || a.Languages[0] != "eng" {
		t.Fatalf("defaults: %+v", a)
	}
	if a.Method() != schema.MethodTesseract {
		t.Fatalf("method: %s", a.Method())
	}
}
