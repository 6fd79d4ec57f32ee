// Package provenance builds origin records for extracted data and converts
// vendor-specific geometry and confidence encodings into the canonical model.
// Every function here is pure.
package provenance

import (
	"errors"
	"fmt"
	"math"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// ErrInvalidGeometry is returned for degenerate, inverted or non-finite boxes.
var ErrInvalidGeometry = errors.New("invalid geometry")

// BuildBBox returns a box when x1 > x0 and y1 > y0.
func BuildBBox(x0, y0, x1, y1 float64) (schema.BoundingBox, error) {
	for _, v := range []float64{x0, y0, x1, y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return schema.BoundingBox{}, fmt.Errorf("%w: non-finite coordinate", ErrInvalidGeometry)
		}
	}
	if x1 <= x0 {
		return schema.BoundingBox{}, fmt.Errorf("%w: x1 (%g) must be greater than x0 (%g)", ErrInvalidGeometry, x1, x0)
	}
	if y1 <= y0 {
		return schema.BoundingBox{}, fmt.Errorf("%w: y1 (%g) must be greater than y0 (%g)", ErrInvalidGeometry, y1, y0)
	}
	return schema.BoundingBox{X0: x0, Y0: y0, X1: x1, Y1: y1}, nil
}

// ValidateBBox checks an already materialized box.
func ValidateBBox(b schema.BoundingBox) error {
	_, err := BuildBBox(b.X0, b.Y0, b.X1, b.Y1)
	return err
}

// New builds a provenance record. The raw map is copied so the record never
// aliases adapter state.
func New(method schema.Method, page int, bbox *schema.BoundingBox, confidence *float64, raw map[string]any) *schema.Provenance {
	p := &schema.Provenance{Method: method, Page: page}
	if bbox != nil {
		b := *bbox
		p.BBox = &b
	}
	if confidence != nil {
		c := *confidence
		p.Confidence = &c
	}
	if len(raw) > 0 {
		p.RawData = make(map[string]any, len(raw))
		for k, v := range raw {
			p.RawData[k] = v
		}
	}
	return p
}

// Validate checks the fields the normalizer relies on.
func Validate(p *schema.Provenance) error {
	if p == nil {
		return errors.New("missing provenance")
	}
	if p.Page < 1 {
		return fmt.Errorf("invalid page %d: pages are 1-based", p.Page)
	}
	if p.BBox != nil {
		if err := ValidateBBox(*p.BBox); err != nil {
			return err
		}
	}
	if p.Confidence != nil {
		c := *p.Confidence
		if math.IsNaN(c) || c < 0 || c > 1 {
			return fmt.Errorf("confidence %g outside [0,1]", c)
		}
	}
	return nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
