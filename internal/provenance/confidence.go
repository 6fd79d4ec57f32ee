package provenance

import (
	"math"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// Scale describes the native confidence range a method reports in.
type Scale int

const (
	// ScaleAuto accepts fractions as-is and percentages above 1.
	ScaleAuto Scale = iota
	// ScaleFraction accepts only [0,1].
	ScaleFraction
)

// ScaleFor returns the confidence convention of a method. Document AI,
// Azure and Adobe report fractions; Textract and Tesseract report
// percentages; everything else is sniffed.
func ScaleFor(m schema.Method) Scale {
	switch m {
	case schema.MethodDocAI, schema.MethodAzureRead, schema.MethodAzureLayout, schema.MethodAdobe:
		return ScaleFraction
	}
	return ScaleAuto
}

// NormalizeConfidence maps a raw vendor confidence into [0,1]. Values already
// in [0,1] pass through unchanged for every method, which keeps the function
// idempotent; values in (1,100] are read as percentages except for methods
// that only report fractions. Anything else, including nil, NaN and
// unparseable input, yields nil rather than a clamped guess.
func NormalizeConfidence(raw any, method schema.Method) *float64 {
	if raw == nil {
		return nil
	}
	var v float64
	switch r := raw.(type) {
	case *float64:
		if r == nil {
			return nil
		}
		v = *r
	default:
		f, ok := toFloat(raw)
		if !ok {
			return nil
		}
		v = f
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	if v <= 1 {
		return &v
	}
	if ScaleFor(method) == ScaleFraction || v > 100 {
		return nil
	}
	pct := v / 100
	return &pct
}

// FilterByConfidence keeps items with no confidence and items whose
// confidence is at least min. Missing confidence is not evidence of low
// quality, so methods that never report it are never filtered.
func FilterByConfidence[T any](items []T, min float64, prov func(T) *schema.Provenance) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		c, ok := prov(it).ConfidenceValue()
		if !ok || c >= min {
			out = append(out, it)
		}
	}
	return out
}

// FilterDocument applies FilterByConfidence to every collection in d.
// Table cells are filtered inside each table; a table whose own confidence
// is below min is removed whole.
func FilterDocument(d schema.Document, min float64) schema.Document {
	if min <= 0 {
		return d
	}
	out := d
	out.TextBlocks = FilterByConfidence(d.TextBlocks, min, func(b schema.TextBlock) *schema.Provenance { return b.Provenance })
	out.KeyValues = FilterByConfidence(d.KeyValues, min, func(kv schema.KeyValue) *schema.Provenance { return kv.Provenance })
	tables := FilterByConfidence(d.Tables, min, func(t schema.Table) *schema.Provenance { return t.Provenance })
	out.Tables = make([]schema.Table, 0, len(tables))
	for _, t := range tables {
		t.Cells = FilterByConfidence(t.Cells, min, func(c schema.TableCell) *schema.Provenance { return c.Provenance })
		out.Tables = append(out.Tables, t)
	}
	return out
}
