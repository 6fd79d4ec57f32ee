package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperifyio/pdfxbench/internal/export"
	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// Replay serves a cloud method from a saved vendor response, so hosted
// extractors can be benchmarked offline. Responses live at
// <Dir>/<document id>.<method>.json and may be a raw Textract response
// (top-level "Blocks"), a raw Azure Document Intelligence result
// ("analyzeResult" or its body), or the neutral envelope described by
// replayEnvelopeSchema.
type Replay struct {
	Dir    string
	Target schema.Method
}

func (a Replay) Method() schema.Method { return a.Target }

// Probe requires the replay directory to exist.
func (a Replay) Probe() error {
	if a.Dir == "" {
		return errors.New("no replay directory configured")
	}
	st, err := os.Stat(a.Dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", a.Dir)
	}
	return nil
}

// ResponsePath is where the saved response for pdfPath is expected.
func (a Replay) ResponsePath(pdfPath string) string {
	return filepath.Join(a.Dir, export.DocumentID(pdfPath)+"."+string(a.Target)+".json")
}

func (a Replay) Extract(ctx context.Context, pdfPath string, pages []int, minConfidence float64) (schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return schema.Document{}, err
	}
	p := a.ResponsePath(pdfPath)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return schema.Document{}, fmt.Errorf("no saved %s response at %s", a.Target, p)
	}
	if err != nil {
		return schema.Document{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return schema.Document{}, fmt.Errorf("decode %s: %w", p, err)
	}

	var (
		doc    schema.Document
		pagesN int
		format string
	)
	switch {
	case raw["Blocks"] != nil:
		format = "textract"
		doc, pagesN = decodeTextract(raw, a.Target)
	case raw["analyzeResult"] != nil || (raw["pages"] != nil && raw["modelId"] != nil):
		format = "azure"
		doc, pagesN = decodeAzure(raw, a.Target)
	default:
		format = "envelope"
		if err := replayEnvelopeSchema.Decode(data, &raw); err != nil {
			return schema.Document{}, fmt.Errorf("%s: %w", p, err)
		}
		doc, pagesN = decodeEnvelope(raw, a.Target)
	}

	doc = keepPages(doc, pages)
	if pagesN < 1 {
		if n, err := PageCount(pdfPath); err == nil {
			pagesN = n
		}
	}
	doc.ExtractionMetadata = map[string]any{
		"method":        string(a.Target),
		"replay_file":   filepath.Base(p),
		"replay_format": format,
	}
	return Finish(doc, pagesN, minConfidence), nil
}

var replayItem = map[string]any{
	"page":       jsonPage,
	"confidence": map[string]any{"type": []any{"number", "null"}},
}

func withItem(props map[string]any) map[string]any {
	for k, v := range replayItem {
		props[k] = v
	}
	return props
}

var replayEnvelopeSchema = &jsonSchema{
	name: "replay_envelope.json",
	source: obj(map[string]any{
		"page_count": jsonPage,
		"text_blocks": arrayOf(obj(withItem(map[string]any{
			"text": jsonString,
		}), "text")),
		"tables": arrayOf(obj(withItem(map[string]any{
			"table_id": jsonString,
			"cells": arrayOf(obj(withItem(map[string]any{
				"text":      jsonString,
				"row":       jsonIndex,
				"col":       jsonIndex,
				"is_header": jsonBool,
			}), "text")),
		}), "cells")),
		"key_values": arrayOf(obj(withItem(map[string]any{
			"key":   jsonString,
			"value": jsonString,
		}), "key")),
	}),
}

// decodeEnvelope reads the neutral format. Every item may carry geometry in
// any shape provenance.BBoxFromRaw understands and a confidence in the
// method's native scale.
func decodeEnvelope(raw map[string]any, m schema.Method) (schema.Document, int) {
	var doc schema.Document
	for _, it := range listOf(raw["text_blocks"]) {
		doc.TextBlocks = append(doc.TextBlocks, schema.TextBlock{
			Text:       strings.TrimSpace(stringOf(it["text"])),
			Provenance: itemProvenance(m, it, 1),
		})
	}
	for i, t := range listOf(raw["tables"]) {
		tp := itemProvenance(m, t, 1)
		id := stringOf(t["table_id"])
		if id == "" {
			id = string(m) + "_table_" + strconv.Itoa(i+1)
		}
		table := schema.Table{TableID: id, Provenance: tp}
		for _, c := range listOf(t["cells"]) {
			row, ok := intOf(c["row"])
			if !ok {
				row = schema.UnknownIndex
			}
			col, ok := intOf(c["col"])
			if !ok {
				col = schema.UnknownIndex
			}
			header, _ := c["is_header"].(bool)
			table.Cells = append(table.Cells, schema.NewCell(strings.TrimSpace(stringOf(c["text"])), row, col, header, itemProvenance(m, c, tp.Page)))
		}
		doc.Tables = append(doc.Tables, table)
	}
	for _, kv := range listOf(raw["key_values"]) {
		doc.KeyValues = append(doc.KeyValues, schema.KeyValue{
			Key:        strings.TrimSpace(stringOf(kv["key"])),
			Value:      strings.TrimSpace(stringOf(kv["value"])),
			Provenance: itemProvenance(m, kv, 1),
		})
	}
	n, _ := intOf(raw["page_count"])
	return doc, n
}

// itemProvenance builds provenance from an item's page, geometry and
// confidence, defaulting the page to def.
func itemProvenance(m schema.Method, item map[string]any, def int) *schema.Provenance {
	page, ok := intOf(item["page"])
	if !ok || page < 1 {
		page = def
	}
	return provenance.New(m, page, provenance.BBoxFromRaw(item), provenance.NormalizeConfidence(item["confidence"], m), nil)
}

// keepPages drops items outside the page selection.
func keepPages(doc schema.Document, pages []int) schema.Document {
	if len(pages) == 0 {
		return doc
	}
	in := func(p *schema.Provenance) bool { return p == nil || wantPage(pages, p.Page) }
	out := doc
	out.TextBlocks = nil
	for _, b := range doc.TextBlocks {
		if in(b.Provenance) {
			out.TextBlocks = append(out.TextBlocks, b)
		}
	}
	out.Tables = nil
	for _, t := range doc.Tables {
		if in(t.Provenance) {
			out.Tables = append(out.Tables, t)
		}
	}
	out.KeyValues = nil
	for _, kv := range doc.KeyValues {
		if in(kv.Provenance) {
			out.KeyValues = append(out.KeyValues, kv)
		}
	}
	return out
}

func listOf(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func intOf(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
