// Package normalize turns raw adapter output into clean canonical documents.
// Invalid fragments are diverted to a quarantine list that is returned to the
// caller alongside the document, so independent documents can be normalized
// concurrently without shared state.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// ReasonInvalidTableStructure is the quarantine reason for tables rejected by
// the sparsity check.
const ReasonInvalidTableStructure = "Invalid table structure"

// ReasonUnknownPosition is the quarantine reason for cells whose adapter
// could not determine a row or column.
const ReasonUnknownPosition = "unknown cell position"

// MinFillRatio is the fraction of the bounding grid a table must populate.
// A table is rejected only when strictly fewer cells are present.
const MinFillRatio = 0.5

// Normalizer holds the clock used for quarantine timestamps.
type Normalizer struct {
	Now func() time.Time
}

// New returns a Normalizer using the wall clock.
func New() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// run accumulates the quarantine for a single Normalize call.
type run struct {
	method     schema.Method
	now        func() time.Time
	quarantine []schema.QuarantineEntry
}

// Normalize cleans doc and returns the normalized document together with
// every fragment that failed validation. Identity fields are preserved;
// content collections are rebuilt.
func (n *Normalizer) Normalize(doc schema.Document, method schema.Method) (schema.Document, []schema.QuarantineEntry) {
	now := time.Now
	if n != nil && n.Now != nil {
		now = n.Now
	}
	r := &run{method: method, now: now, quarantine: []schema.QuarantineEntry{}}

	out := schema.Document{
		ID:                 doc.ID,
		FileName:           doc.FileName,
		PageCount:          doc.PageCount,
		TextBlocks:         []schema.TextBlock{},
		Tables:             []schema.Table{},
		KeyValues:          []schema.KeyValue{},
		ExtractionMetadata: copyMetadata(doc.ExtractionMetadata),
	}
	if out.PageCount < 1 {
		log.Debug().Str("method", string(method)).Int("page_count", doc.PageCount).Msg("page count below 1; defaulting to 1")
		out.PageCount = 1
	}

	for _, b := range doc.TextBlocks {
		if nb, ok := r.textBlock(b); ok {
			out.TextBlocks = append(out.TextBlocks, nb)
		}
	}

	seen := make(map[string]int, len(doc.Tables))
	for i, t := range doc.Tables {
		nt, ok := r.table(t)
		if !ok {
			continue
		}
		nt.TableID = uniqueTableID(nt.TableID, i, seen)
		out.Tables = append(out.Tables, nt)
	}

	for _, kv := range doc.KeyValues {
		if nkv, ok := r.keyValue(kv); ok {
			out.KeyValues = append(out.KeyValues, nkv)
		}
	}
	return out, r.quarantine
}

func (r *run) textBlock(b schema.TextBlock) (schema.TextBlock, bool) {
	text := CleanText(b.Text)
	if text == "" {
		log.Debug().Str("method", string(r.method)).Msg("dropping empty text block")
		return schema.TextBlock{}, false
	}
	prov, err := r.ownProvenance(b.Provenance)
	if err != nil {
		r.reject(b, b.Provenance, fmt.Sprintf("text block: %v", err))
		return schema.TextBlock{}, false
	}
	return schema.TextBlock{Text: text, Provenance: prov}, true
}

func (r *run) table(t schema.Table) (schema.Table, bool) {
	if len(t.Cells) == 0 {
		log.Debug().Str("method", string(r.method)).Str("table_id", t.TableID).Msg("dropping table without cells")
		return schema.Table{}, false
	}
	prov, err := r.ownProvenance(t.Provenance)
	if err != nil {
		r.reject(t, t.Provenance, fmt.Sprintf("table %s: %v", t.TableID, err))
		return schema.Table{}, false
	}

	cells := make([]schema.TableCell, 0, len(t.Cells))
	for _, c := range t.Cells {
		nc, err := r.cell(c)
		if err != nil {
			r.reject(c, c.Provenance, fmt.Sprintf("table %s cell (%d,%d): %v", t.TableID, c.RowIdx, c.ColIdx, err))
			continue
		}
		cells = append(cells, nc)
	}
	if len(cells) == 0 {
		log.Debug().Str("method", string(r.method)).Str("table_id", t.TableID).Msg("no valid cells in table")
		return schema.Table{}, false
	}
	if !ValidTableStructure(cells) {
		r.reject(t, t.Provenance, ReasonInvalidTableStructure)
		return schema.Table{}, false
	}

	nt := schema.Table{TableID: strings.TrimSpace(t.TableID), Cells: cells, Provenance: prov}
	if t.Caption != nil {
		if c := CleanText(*t.Caption); c != "" {
			nt.Caption = &c
		}
	}
	return nt, true
}

func (r *run) cell(c schema.TableCell) (schema.TableCell, error) {
	if c.RowIdx < 0 || c.ColIdx < 0 {
		return schema.TableCell{}, fmt.Errorf("%s (row=%d, col=%d)", ReasonUnknownPosition, c.RowIdx, c.ColIdx)
	}
	prov, err := r.ownProvenance(c.Provenance)
	if err != nil {
		return schema.TableCell{}, err
	}
	text := CleanText(c.RawText)
	nc := schema.TableCell{
		RawText:      text,
		RowIdx:       c.RowIdx,
		ColIdx:       c.ColIdx,
		IsHeader:     c.IsHeader,
		Provenance:   prov,
		ParsedNumber: c.ParsedNumber,
		ParsedDate:   c.ParsedDate,
	}
	if nc.ParsedNumber == nil {
		nc.ParsedNumber = schema.ParseNumber(text)
	}
	if nc.ParsedDate == nil {
		nc.ParsedDate = schema.ParseDate(text)
	}
	return nc, nil
}

func (r *run) keyValue(kv schema.KeyValue) (schema.KeyValue, bool) {
	key := CleanText(kv.Key)
	if key == "" {
		log.Debug().Str("method", string(r.method)).Msg("dropping key-value pair with empty key")
		return schema.KeyValue{}, false
	}
	prov, err := r.ownProvenance(kv.Provenance)
	if err != nil {
		r.reject(kv, kv.Provenance, fmt.Sprintf("key-value %q: %v", key, err))
		return schema.KeyValue{}, false
	}
	return schema.KeyValue{Key: key, Value: CleanText(kv.Value), Provenance: prov}, true
}

// ownProvenance validates p and returns a private copy, filling in the run's
// method when the adapter left it blank.
func (r *run) ownProvenance(p *schema.Provenance) (*schema.Provenance, error) {
	if err := provenance.Validate(p); err != nil {
		return nil, err
	}
	method := p.Method
	if method == "" {
		method = r.method
	}
	return provenance.New(method, p.Page, p.BBox, p.Confidence, p.RawData), nil
}

func (r *run) reject(data any, p *schema.Provenance, reason string) {
	page := 1
	if p != nil && p.Page >= 1 {
		page = p.Page
	}
	log.Warn().Str("method", string(r.method)).Int("page", page).Str("reason", reason).Msg("quarantined fragment")
	r.quarantine = append(r.quarantine, schema.QuarantineEntry{
		OriginalData:  data,
		Method:        r.method,
		FailureReason: reason,
		Page:          page,
		Timestamp:     r.now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
	})
}

// ValidTableStructure reports whether cells fill at least MinFillRatio of
// the grid spanned by their maximum row and column. Exactly half is accepted.
func ValidTableStructure(cells []schema.TableCell) bool {
	if len(cells) == 0 {
		return false
	}
	maxRow, maxCol := 0, 0
	for _, c := range cells {
		if c.RowIdx > maxRow {
			maxRow = c.RowIdx
		}
		if c.ColIdx > maxCol {
			maxCol = c.ColIdx
		}
	}
	expected := float64((maxRow + 1) * (maxCol + 1))
	actual := float64(len(cells))
	if actual < expected*MinFillRatio {
		log.Debug().Float64("actual", actual).Float64("expected", expected).Msg("table too sparse")
		return false
	}
	return true
}

func uniqueTableID(id string, index int, seen map[string]int) string {
	if id == "" {
		id = fmt.Sprintf("table_%d", index+1)
	}
	seen[id]++
	if n := seen[id]; n > 1 {
		return fmt.Sprintf("%s_%d", id, n)
	}
	return id
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
