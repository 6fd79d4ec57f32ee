package normalize

import (
	"strings"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// NormalizeResult wraps a raw adapter document into an ExtractionResult.
// Failed extractions get an empty document that keeps the identity fields
// when known; successful ones are normalized first. Counts and the average
// confidence are computed from the normalized document.
func (n *Normalizer) NormalizeResult(raw schema.Document, method schema.Method, processingTime float64, success bool, errMsg string) (schema.ExtractionResult, []schema.QuarantineEntry) {
	var doc schema.Document
	quarantine := []schema.QuarantineEntry{}
	if !success {
		doc = schema.Document{
			ID:                 orUnknown(raw.ID),
			FileName:           orUnknown(raw.FileName),
			PageCount:          1,
			TextBlocks:         []schema.TextBlock{},
			Tables:             []schema.Table{},
			KeyValues:          []schema.KeyValue{},
			ExtractionMetadata: copyMetadata(raw.ExtractionMetadata),
		}
		if strings.TrimSpace(errMsg) == "" {
			errMsg = "extraction failed"
		}
	} else {
		doc, quarantine = n.Normalize(raw, method)
		errMsg = ""
	}
	if processingTime < 0 {
		processingTime = 0
	}

	res := schema.ExtractionResult{
		Document:       doc,
		Method:         method,
		Success:        success,
		ErrorMessage:   errMsg,
		ProcessingTime: processingTime,
	}
	c := Count(doc)
	res.TotalTextBlocks = c.TextBlocks
	res.TotalTables = c.Tables
	res.TotalCells = c.Cells
	res.EmptyCells = c.EmptyCells
	res.AvgConfidence = c.AvgConfidence()
	return res, quarantine
}

// Counts are the pre-aggregated figures stored on an ExtractionResult.
type Counts struct {
	TextBlocks  int
	Tables      int
	Cells       int
	EmptyCells  int
	Confidences []float64
}

// AvgConfidence is the mean over every confidence-bearing datum, or nil.
func (c Counts) AvgConfidence() *float64 {
	if len(c.Confidences) == 0 {
		return nil
	}
	var sum float64
	for _, v := range c.Confidences {
		sum += v
	}
	avg := sum / float64(len(c.Confidences))
	return &avg
}

// Count walks a document once. Confidences are collected in document order:
// each table then its cells, then text blocks, then key-values.
func Count(d schema.Document) Counts {
	c := Counts{TextBlocks: len(d.TextBlocks), Tables: len(d.Tables)}
	add := func(p *schema.Provenance) {
		if v, ok := p.ConfidenceValue(); ok {
			c.Confidences = append(c.Confidences, v)
		}
	}
	for _, t := range d.Tables {
		add(t.Provenance)
		for _, cell := range t.Cells {
			c.Cells++
			if strings.TrimSpace(cell.RawText) == "" {
				c.EmptyCells++
			}
			add(cell.Provenance)
		}
	}
	for _, b := range d.TextBlocks {
		add(b.Provenance)
	}
	for _, kv := range d.KeyValues {
		add(kv.Provenance)
	}
	return c
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
