package normalize

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func prov(page int, conf *float64) *schema.Provenance {
	return provenance.New(schema.MethodTextract, page, nil, conf, nil)
}

func TestCleanText(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"  hello   world  ":    "hello world",
		"line1\nline2\tcol":    "line1 line2 col",
		"a\x00b\x07c":          "abc",
		"\t\n  ":               "",
		"keep  ünïcödé\r\n ok": "keep ünïcödé ok",
	}
	for in, want := range cases {
		if got := CleanText(in); got != want {
			t.Fatalf("CleanText(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestNormalize_TextBlocks_DropVersusQuarantine(t *testing.T) {
	doc := schema.Document{ID: "d", FileName: "d.pdf", PageCount: 2, TextBlocks: []schema.TextBlock{
		{Text: "  Invoice   total ", Provenance: prov(1, nil)},
		{Text: "   \n\t", Provenance: prov(1, nil)},     // dropped
		{Text: "missing provenance"},                    // quarantined
		{Text: "bad page", Provenance: prov(0, nil)},    // quarantined
		{Text: "Second page", Provenance: prov(2, nil)}, // kept
	}}
	n := &Normalizer{Now: fixedNow}
	out, q := n.Normalize(doc, schema.MethodTextract)
	if len(out.TextBlocks) != 2 || out.TextBlocks[0].Text != "Invoice total" {
		t.Fatalf("unexpected blocks: %+v", out.TextBlocks)
	}
	if len(q) != 2 {
		t.Fatalf("quarantine=%d, want 2: %+v", len(q), q)
	}
	for _, e := range q {
		if e.Method != schema.MethodTextract || e.Page != 1 || e.Timestamp != "2024-05-01T12:00:00.000000Z" {
			t.Fatalf("unexpected quarantine entry: %+v", e)
		}
		if e.OriginalData == nil || strings.TrimSpace(e.FailureReason) == "" {
			t.Fatalf("quarantine entry missing data or reason: %+v", e)
		}
	}
	// accepted + quarantined + empty drops == input
	if len(out.TextBlocks)+len(q)+1 != len(doc.TextBlocks) {
		t.Fatalf("text block accounting mismatch")
	}
}

func TestNormalize_QuarantineCompleteness(t *testing.T) {
	cells := []schema.TableCell{
		schema.NewCell("A", 0, 0, true, prov(1, nil)),
		schema.NewCell("B", 0, 1, true, prov(1, nil)),
		schema.NewCell("1", 1, 0, false, prov(1, nil)),
		schema.NewCell("", 1, 1, false, prov(1, nil)), // blank cells are kept
		schema.NewCell("x", schema.UnknownIndex, 1, false, prov(1, nil)),
		schema.NewCell("y", 1, 1, false, nil),
		schema.NewCell("z", 0, 0, false, provenance.New(schema.MethodTextract, 3, &schema.BoundingBox{X0: 5, Y0: 5, X1: 1, Y1: 9}, nil, nil)),
	}
	kvs := []schema.KeyValue{
		{Key: "Invoice", Value: " 42 ", Provenance: prov(1, nil)},
		{Key: "Date", Value: "2024-01-01", Provenance: prov(1, provenance.Float(1.7))},
		{Key: "Total", Value: "", Provenance: prov(1, nil)},
	}
	doc := schema.Document{ID: "d", FileName: "d.pdf", PageCount: 3,
		Tables:    []schema.Table{{TableID: "t1", Cells: cells, Provenance: prov(1, nil)}},
		KeyValues: kvs,
	}
	out, q := (&Normalizer{Now: fixedNow}).Normalize(doc, schema.MethodTextract)
	if len(out.Tables) != 1 {
		t.Fatalf("tables=%d, want 1", len(out.Tables))
	}
	var cellQ, kvQ int
	for _, e := range q {
		switch e.OriginalData.(type) {
		case schema.TableCell:
			cellQ++
		case schema.KeyValue:
			kvQ++
		default:
			t.Fatalf("unexpected quarantined type %T", e.OriginalData)
		}
	}
	if got := len(out.Tables[0].Cells) + cellQ; got != len(cells) {
		t.Fatalf("cells accepted+quarantined=%d, want %d", got, len(cells))
	}
	if got := len(out.KeyValues) + kvQ; got != len(kvs) {
		t.Fatalf("kv accepted+quarantined=%d, want %d", got, len(kvs))
	}
	if cellQ != 3 || kvQ != 1 {
		t.Fatalf("cellQ=%d kvQ=%d, want 3 and 1", cellQ, kvQ)
	}
	var sawUnknown, sawPage3 bool
	for _, e := range q {
		if strings.Contains(e.FailureReason, ReasonUnknownPosition) {
			sawUnknown = true
		}
		if e.Page == 3 {
			sawPage3 = true
		}
	}
	if !sawUnknown || !sawPage3 {
		t.Fatalf("expected unknown-position entry and page from provenance: %+v", q)
	}
	if out.KeyValues[0].Value != "42" {
		t.Fatalf("kv value not cleaned: %q", out.KeyValues[0].Value)
	}
}

func TestNormalize_EmptyKeyDropped(t *testing.T) {
	doc := schema.Document{PageCount: 1, KeyValues: []schema.KeyValue{{Key: "  ", Value: "v", Provenance: prov(1, nil)}}}
	out, q := New().Normalize(doc, schema.MethodAzureLayout)
	if len(out.KeyValues) != 0 || len(q) != 0 {
		t.Fatalf("empty key must be dropped silently: kvs=%d q=%d", len(out.KeyValues), len(q))
	}
}

// sparseTable returns a table spanning a 4x4 grid (max_row=max_col=3) with n cells.
func sparseTable(n int) schema.Table {
	positions := [][2]int{{3, 3}, {0, 0}, {0, 1}, {0, 2}, {0, 3}, {1, 0}, {2, 0}, {3, 0}, {1, 1}}
	cells := make([]schema.TableCell, 0, n)
	for _, p := range positions[:n] {
		cells = append(cells, schema.NewCell("v", p[0], p[1], false, prov(2, nil)))
	}
	return schema.Table{TableID: "grid", Cells: cells, Provenance: prov(2, nil)}
}

func TestNormalize_SparsityThreshold(t *testing.T) {
	n := &Normalizer{Now: fixedNow}

	// 8 of 16 is exactly half: accepted because the rule is strictly "< 50%".
	out, q := n.Normalize(schema.Document{PageCount: 2, Tables: []schema.Table{sparseTable(8)}}, schema.MethodTabula)
	if len(out.Tables) != 1 || len(q) != 0 {
		t.Fatalf("8/16: tables=%d quarantine=%d, want 1 and 0", len(out.Tables), len(q))
	}
	if out.Tables[0].Rows() != 4 || out.Tables[0].Cols() != 4 {
		t.Fatalf("8/16: dims=%dx%d", out.Tables[0].Rows(), out.Tables[0].Cols())
	}

	// 7 of 16 falls below half: rejected wholesale.
	out, q = n.Normalize(schema.Document{PageCount: 2, Tables: []schema.Table{sparseTable(7)}}, schema.MethodTabula)
	if len(out.Tables) != 0 || len(q) != 1 {
		t.Fatalf("7/16: tables=%d quarantine=%d, want 0 and 1", len(out.Tables), len(q))
	}
	if q[0].FailureReason != ReasonInvalidTableStructure || q[0].Page != 2 {
		t.Fatalf("7/16: unexpected entry %+v", q[0])
	}
	if _, ok := q[0].OriginalData.(schema.Table); !ok {
		t.Fatalf("7/16: original data should be the table, got %T", q[0].OriginalData)
	}
}

func TestValidTableStructure(t *testing.T) {
	if ValidTableStructure(nil) {
		t.Fatalf("no cells is never a valid structure")
	}
	if !ValidTableStructure(sparseTable(8).Cells) {
		t.Fatalf("8/16 should be valid")
	}
	if ValidTableStructure(sparseTable(7).Cells) {
		t.Fatalf("7/16 should be invalid")
	}
}

func TestNormalize_TablesWithoutCellsAreNotMaterialized(t *testing.T) {
	doc := schema.Document{PageCount: 1, Tables: []schema.Table{
		{TableID: "empty", Provenance: prov(1, nil)},
		{TableID: "allbad", Provenance: prov(1, nil), Cells: []schema.TableCell{schema.NewCell("x", 0, 0, false, nil)}},
	}}
	out, q := New().Normalize(doc, schema.MethodCamelotLattice)
	if len(out.Tables) != 0 {
		t.Fatalf("tables=%d, want 0", len(out.Tables))
	}
	if len(q) != 1 {
		t.Fatalf("only the bad cell should be quarantined, got %d", len(q))
	}
}

func TestNormalize_TableIDsUnique(t *testing.T) {
	mk := func(id string) schema.Table {
		return schema.Table{TableID: id, Provenance: prov(1, nil), Cells: []schema.TableCell{schema.NewCell("1", 0, 0, false, prov(1, nil))}}
	}
	doc := schema.Document{PageCount: 1, Tables: []schema.Table{mk("t"), mk("t"), mk("")}}
	out, _ := New().Normalize(doc, schema.MethodLLM)
	var ids []string
	for _, tb := range out.Tables {
		ids = append(ids, tb.TableID)
	}
	want := []string{"t", "t_2", "table_3"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids=%v, want %v", ids, want)
	}
}

func TestNormalize_DoesNotMutateInputAndOwnsProvenance(t *testing.T) {
	shared := prov(1, provenance.Float(0.9))
	doc := schema.Document{ID: "id", FileName: "f.pdf", PageCount: 0,
		TextBlocks: []schema.TextBlock{{Text: " a ", Provenance: shared}, {Text: "b", Provenance: shared}},
		ExtractionMetadata: map[string]any{"method": "textract"},
	}
	out, _ := New().Normalize(doc, schema.MethodTextract)
	if doc.TextBlocks[0].Text != " a " || doc.PageCount != 0 {
		t.Fatalf("input mutated")
	}
	if out.PageCount != 1 || out.ID != "id" || out.FileName != "f.pdf" {
		t.Fatalf("identity fields: %+v", out)
	}
	if out.TextBlocks[0].Provenance == out.TextBlocks[1].Provenance || out.TextBlocks[0].Provenance == shared {
		t.Fatalf("normalized blocks must own their provenance")
	}
	out.ExtractionMetadata["x"] = 1
	if _, ok := doc.ExtractionMetadata["x"]; ok {
		t.Fatalf("metadata map aliased")
	}
}

func TestNormalize_ParsesCellValues(t *testing.T) {
	doc := schema.Document{PageCount: 1, Tables: []schema.Table{{TableID: "t", Provenance: prov(1, nil), Cells: []schema.TableCell{
		{RawText: " $1,200.50 ", RowIdx: 0, ColIdx: 0, Provenance: prov(1, nil)},
		{RawText: "2024-02-29", RowIdx: 0, ColIdx: 1, Provenance: prov(1, nil)},
	}}}}
	out, _ := New().Normalize(doc, schema.MethodPDFPlumber)
	c0, c1 := out.Tables[0].Cells[0], out.Tables[0].Cells[1]
	if c0.RawText != "$1,200.50" || c0.ParsedNumber == nil || *c0.ParsedNumber != 1200.5 {
		t.Fatalf("cell 0: %+v", c0)
	}
	if c1.ParsedDate == nil || *c1.ParsedDate != "2024-02-29" {
		t.Fatalf("cell 1 date: %+v", c1)
	}
}

func TestNormalizeResult_Failed(t *testing.T) {
	raw := schema.ErrorDocument("", "", schema.MethodDocAI, "credentials missing")
	res, q := New().NormalizeResult(raw, schema.MethodDocAI, 1.25, false, "credentials missing")
	if res.Success || res.ErrorMessage != "credentials missing" || len(q) != 0 {
		t.Fatalf("unexpected failed result: %+v", res)
	}
	if res.Document.ID != "unknown" || res.Document.FileName != "unknown" || res.Document.PageCount != 1 {
		t.Fatalf("failed document identity: %+v", res.Document)
	}
	if res.TotalTables != 0 || res.TotalTextBlocks != 0 || res.AvgConfidence != nil {
		t.Fatalf("failed result counts: %+v", res)
	}
	if res.ProcessingTime != 1.25 {
		t.Fatalf("ProcessingTime=%v", res.ProcessingTime)
	}
}

func TestNormalizeResult_Counts(t *testing.T) {
	doc := schema.Document{ID: "d", FileName: "d.pdf", PageCount: 1,
		Tables: []schema.Table{{TableID: "t", Provenance: prov(1, provenance.Float(1.0)), Cells: []schema.TableCell{
			schema.NewCell("a", 0, 0, false, prov(1, provenance.Float(0.5))),
			schema.NewCell("  ", 0, 1, false, prov(1, nil)),
		}}},
		TextBlocks: []schema.TextBlock{{Text: "hello", Provenance: prov(1, provenance.Float(0.75))}},
		KeyValues:  []schema.KeyValue{{Key: "k", Value: "v", Provenance: prov(1, provenance.Float(0.75))}},
	}
	res, _ := New().NormalizeResult(doc, schema.MethodTextract, 0.5, true, "ignored")
	if !res.Success || res.ErrorMessage != "" {
		t.Fatalf("success result: %+v", res)
	}
	if res.TotalTables != 1 || res.TotalCells != 2 || res.EmptyCells != 1 || res.TotalTextBlocks != 1 {
		t.Fatalf("counts: %+v", res)
	}
	if res.AvgConfidence == nil || *res.AvgConfidence != 0.75 {
		t.Fatalf("AvgConfidence=%v, want 0.75", res.AvgConfidence)
	}
}
