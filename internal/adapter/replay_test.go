package adapter

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

const textractResponse = `{
  "JobStatus": "SUCCEEDED",
  "Blocks": [
    {"Id": "p1", "BlockType": "PAGE", "Page": 1},
    {"Id": "p2", "BlockType": "PAGE", "Page": 2},
    {"Id": "l1", "BlockType": "LINE", "Page": 1, "Text": "Invoice 2024", "Confidence": 99.5,
     "Geometry": {"BoundingBox": {"Width": 0.5, "Height": 0.1, "Left": 0.1, "Top": 0.2}}},
    {"Id": "t1", "BlockType": "TABLE", "Page": 2, "Confidence": 97,
     "Relationships": [{"Type": "CHILD", "Ids": ["c1", "c2", "c3"]}]},
    {"Id": "c1", "BlockType": "CELL", "Page": 2, "RowIndex": 1, "ColumnIndex": 1, "Confidence": 95,
     "EntityTypes": ["COLUMN_HEADER"], "Relationships": [{"Type": "CHILD", "Ids": ["w1"]}]},
    {"Id": "c2", "BlockType": "CELL", "Page": 2, "RowIndex": 2, "ColumnIndex": 1, "Confidence": 60,
     "Relationships": [{"Type": "CHILD", "Ids": ["w2", "w3"]}]},
    {"Id": "c3", "BlockType": "CELL", "Page": 2, "ColumnIndex": 2, "Confidence": 96},
    {"Id": "w1", "BlockType": "WORD", "Text": "Amount"},
    {"Id": "w2", "BlockType": "WORD", "Text": "1,200"},
    {"Id": "w3", "BlockType": "WORD", "Text": "USD"},
    {"Id": "k1", "BlockType": "KEY_VALUE_SET", "EntityTypes": ["KEY"], "Page": 1, "Confidence": 92,
     "Relationships": [{"Type": "CHILD", "Ids": ["w4"]}, {"Type": "VALUE", "Ids": ["v1"]}]},
    {"Id": "v1", "BlockType": "KEY_VALUE_SET", "EntityTypes": ["VALUE"], "Page": 1,
     "Relationships": [{"Type": "CHILD", "Ids": ["w5"]}]},
    {"Id": "w4", "BlockType": "WORD", "Text": "Total"},
    {"Id": "w5", "BlockType": "WORD", "Text": "$1,200"}
  ]
}`

const azureResponse = `{
  "status": "succeeded",
  "analyzeResult": {
    "modelId": "prebuilt-layout",
    "pages": [
      {"pageNumber": 1, "lines": [{"content": "Balance Sheet", "polygon": [1, 1, 3, 1, 3, 2, 1, 2]}]}
    ],
    "tables": [
      {"rowCount": 2, "columnCount": 1, "boundingRegions": [{"pageNumber": 1, "polygon": [1, 3, 5, 3, 5, 6, 1, 6]}],
       "cells": [
         {"rowIndex": 0, "columnIndex": 0, "content": "Assets", "kind": "columnHeader",
          "boundingRegions": [{"pageNumber": 1, "polygon": [1, 3, 5, 3, 5, 4, 1, 4]}]},
         {"rowIndex": 1, "columnIndex": 0, "content": "42"}
       ]}
    ],
    "keyValuePairs": [
      {"key": {"content": "Date"}, "value": {"content": "2024-03-31"}, "confidence": 0.97}
    ]
  }
}`

const envelopeResponse = `{
  "page_count": 3,
  "text_blocks": [
    {"text": "Summary", "page": 1, "confidence": 0.99, "bbox": [10, 10, 100, 30]},
    {"text": "Appendix", "page": 3, "confidence": 0.95}
  ],
  "tables": [
    {"page": 3, "cells": [{"text": "x", "row": 0, "col": 0, "confidence": 0.97}, {"text": "lost"}]}
  ]
}`

func writeReplay(t *testing.T, dir string, m schema.Method, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "report."+string(m)+".json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write replay: %v", err)
	}
}

func TestReplay_Textract(t *testing.T) {
	dir := t.TempDir()
	writeReplay(t, dir, schema.MethodTextract, textractResponse)
	a := Replay{Dir: dir, Target: schema.MethodTextract}
	if err := a.Probe(); err != nil {
		t.Fatalf("probe: %v", err)
	}
	doc, err := a.Extract(context.Background(), "/in/report.pdf", nil, 0.9)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc.PageCount != 2 || doc.ExtractionMetadata["replay_format"] != "textract" {
		t.Fatalf("doc: %+v", doc)
	}
	line := doc.TextBlocks[0]
	if line.Text != "Invoice 2024" || math.Abs(*line.Provenance.Confidence-0.995) > 1e-9 {
		t.Fatalf("line: %+v", line.Provenance)
	}
	if bb := line.Provenance.BBox; bb == nil || math.Abs(bb.X1-0.6) > 1e-9 || math.Abs(bb.Y1-0.3) > 1e-9 {
		t.Fatalf("geometry: %+v", bb)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("tables: %d", len(doc.Tables))
	}
	tbl := doc.Tables[0]
	if tbl.TableID != "textract_page_2_table_t1" || tbl.Provenance.Page != 2 {
		t.Fatalf("table: %s page %d", tbl.TableID, tbl.Provenance.Page)
	}
	// c2 at 0.60 falls under the threshold
	if len(tbl.Cells) != 2 {
		t.Fatalf("cells: %+v", tbl.Cells)
	}
	if h := tbl.Cells[0]; h.RawText != "Amount" || !h.IsHeader || h.RowIdx != 0 || h.ColIdx != 0 {
		t.Fatalf("header cell: %+v", h)
	}
	if c := tbl.Cells[1]; c.RowIdx != schema.UnknownIndex || c.ColIdx != 1 {
		t.Fatalf("cell without RowIndex must be marked unknown: %+v", c)
	}
	if len(doc.KeyValues) != 1 || doc.KeyValues[0].Key != "Total" || doc.KeyValues[0].Value != "$1,200" {
		t.Fatalf("key values: %+v", doc.KeyValues)
	}
}

func TestReplay_Azure(t *testing.T) {
	dir := t.TempDir()
	writeReplay(t, dir, schema.MethodAzureLayout, azureResponse)
	doc, err := Replay{Dir: dir, Target: schema.MethodAzureLayout}.Extract(context.Background(), "report.pdf", nil, 0.9)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc.PageCount != 1 || len(doc.TextBlocks) != 1 || doc.TextBlocks[0].Provenance.BBox == nil {
		t.Fatalf("doc: %+v", doc)
	}
	cells := doc.Tables[0].Cells
	if len(cells) != 2 || !cells[0].IsHeader || cells[1].IsHeader || cells[1].ParsedNumber == nil {
		t.Fatalf("cells: %+v", cells)
	}
	if cells[0].Provenance.BBox == nil || cells[0].Provenance.RawData["cell_kind"] != "columnHeader" {
		t.Fatalf("cell provenance: %+v", cells[0].Provenance)
	}
	kv := doc.KeyValues[0]
	if kv.Key != "Date" || kv.Value != "2024-03-31" || *kv.Provenance.Confidence != 0.97 {
		t.Fatalf("kv: %+v", kv)
	}
}

func TestReplay_EnvelopeAndPageFilter(t *testing.T) {
	dir := t.TempDir()
	writeReplay(t, dir, schema.MethodAdobe, envelopeResponse)
	a := Replay{Dir: dir, Target: schema.MethodAdobe}
	doc, err := a.Extract(context.Background(), "report.pdf", []int{3}, 0.9)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc.PageCount != 3 || len(doc.TextBlocks) != 1 || doc.TextBlocks[0].Text != "Appendix" {
		t.Fatalf("doc: %+v", doc)
	}
	cells := doc.Tables[0].Cells
	if len(cells) != 2 || cells[1].RowIdx != schema.UnknownIndex || cells[1].Provenance.Page != 3 {
		t.Fatalf("cells: %+v", cells)
	}

	all, err := a.Extract(context.Background(), "report.pdf", nil, 0)
	if err != nil || all.TextBlocks[0].Provenance.BBox == nil || all.TextBlocks[0].Provenance.BBox.X1 != 100 {
		t.Fatalf("bbox array: %+v %v", all.TextBlocks, err)
	}
}

func TestReplay_Errors(t *testing.T) {
	dir := t.TempDir()
	a := Replay{Dir: dir, Target: schema.MethodDocAI}
	if _, err := a.Extract(context.Background(), "missing.pdf", nil, 0); err == nil || !strings.Contains(err.Error(), "no saved docai response") {
		t.Fatalf("missing file: %v", err)
	}
	writeReplay(t, dir, schema.MethodDocAI, `{"text_blocks": [{"text": "x", "page": 0}]}`)
	if _, err := a.Extract(context.Background(), "report.pdf", nil, 0); err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("invalid envelope: %v", err)
	}
	if err := (Replay{Target: schema.MethodDocAI}).Probe(); err == nil {
		t.Fatalf("probe without dir must fail")
	}
	if got := a.ResponsePath("/x/y/report.pdf"); got != filepath.Join(dir, "report.docai.json") {
		t.Fatalf("path: %s", got)
	}
}
