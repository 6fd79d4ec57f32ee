package adapter

import (
	"strconv"
	"strings"

	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// decodeTextract walks the block graph of an AnalyzeDocument or
// GetDocumentAnalysis response. LINE blocks become text blocks, TABLE
// blocks become tables of their CELL children and KEY blocks of
// KEY_VALUE_SET become key/value pairs.
func decodeTextract(raw map[string]any, m schema.Method) (schema.Document, int) {
	blocks := listOf(raw["Blocks"])
	byID := make(map[string]map[string]any, len(blocks))
	for _, b := range blocks {
		byID[stringOf(b["Id"])] = b
	}
	prov := func(b map[string]any, page int) *schema.Provenance {
		if p, ok := intOf(b["Page"]); ok && p >= 1 {
			page = p
		}
		return provenance.New(m, page, provenance.BBoxFromRaw(b), provenance.NormalizeConfidence(b["Confidence"], m), map[string]any{
			"block_id":   stringOf(b["Id"]),
			"block_type": stringOf(b["BlockType"]),
		})
	}

	var doc schema.Document
	pages := 0
	for _, b := range blocks {
		switch stringOf(b["BlockType"]) {
		case "PAGE":
			pages++
		case "LINE":
			text := strings.TrimSpace(stringOf(b["Text"]))
			if text == "" {
				continue
			}
			doc.TextBlocks = append(doc.TextBlocks, schema.TextBlock{Text: text, Provenance: prov(b, 1)})
		case "TABLE":
			tp := prov(b, 1)
			table := schema.Table{
				TableID:    "textract_page_" + strconv.Itoa(tp.Page) + "_table_" + stringOf(b["Id"]),
				Provenance: tp,
			}
			for _, cell := range children(b, byID, "CHILD", "CELL") {
				row, ok := intOf(cell["RowIndex"])
				if ok {
					row--
				} else {
					row = schema.UnknownIndex
				}
				col, ok := intOf(cell["ColumnIndex"])
				if ok {
					col--
				} else {
					col = schema.UnknownIndex
				}
				header := hasEntity(cell, "COLUMN_HEADER")
				table.Cells = append(table.Cells, schema.NewCell(wordsOf(cell, byID), row, col, header, prov(cell, tp.Page)))
			}
			if len(table.Cells) > 0 {
				doc.Tables = append(doc.Tables, table)
			}
		case "KEY_VALUE_SET":
			if !hasEntity(b, "KEY") {
				continue
			}
			key := wordsOf(b, byID)
			if key == "" {
				continue
			}
			value := ""
			if vals := children(b, byID, "VALUE", ""); len(vals) > 0 {
				value = wordsOf(vals[0], byID)
			}
			doc.KeyValues = append(doc.KeyValues, schema.KeyValue{Key: key, Value: value, Provenance: prov(b, 1)})
		}
	}
	return doc, pages
}

// children resolves a block's relationship ids of relType, optionally
// keeping only blocks of blockType.
func children(b map[string]any, byID map[string]map[string]any, relType, blockType string) []map[string]any {
	var out []map[string]any
	for _, rel := range listOf(b["Relationships"]) {
		if stringOf(rel["Type"]) != relType {
			continue
		}
		ids, _ := rel["Ids"].([]any)
		for _, id := range ids {
			child, ok := byID[stringOf(id)]
			if !ok {
				continue
			}
			if blockType != "" && stringOf(child["BlockType"]) != blockType {
				continue
			}
			out = append(out, child)
		}
	}
	return out
}

func wordsOf(b map[string]any, byID map[string]map[string]any) string {
	var words []string
	for _, w := range children(b, byID, "CHILD", "WORD") {
		if t := strings.TrimSpace(stringOf(w["Text"])); t != "" {
			words = append(words, t)
		}
	}
	return strings.Join(words, " ")
}

func hasEntity(b map[string]any, entity string) bool {
	list, _ := b["EntityTypes"].([]any)
	for _, e := range list {
		if stringOf(e) == entity {
			return true
		}
	}
	return false
}

// decodeAzure reads a Document Intelligence analyze result, either wrapped
// in the operation envelope or bare. Page lines become text blocks.
func decodeAzure(raw map[string]any, m schema.Method) (schema.Document, int) {
	ar, ok := raw["analyzeResult"].(map[string]any)
	if !ok {
		ar = raw
	}
	prov := func(item map[string]any, page int) *schema.Provenance {
		if regions := listOf(item["boundingRegions"]); len(regions) > 0 {
			if p, ok := intOf(regions[0]["pageNumber"]); ok && p >= 1 {
				page = p
			}
		}
		return provenance.New(m, page, provenance.BBoxFromRaw(item), provenance.NormalizeConfidence(item["confidence"], m), nil)
	}

	var doc schema.Document
	pages := listOf(ar["pages"])
	for i, pg := range pages {
		pageNo, ok := intOf(pg["pageNumber"])
		if !ok || pageNo < 1 {
			pageNo = i + 1
		}
		for _, line := range listOf(pg["lines"]) {
			text := strings.TrimSpace(stringOf(line["content"]))
			if text == "" {
				continue
			}
			doc.TextBlocks = append(doc.TextBlocks, schema.TextBlock{Text: text, Provenance: prov(line, pageNo)})
		}
	}
	for i, t := range listOf(ar["tables"]) {
		tp := prov(t, 1)
		table := schema.Table{TableID: "azure_table_" + strconv.Itoa(i+1), Provenance: tp}
		for _, c := range listOf(t["cells"]) {
			row, ok := intOf(c["rowIndex"])
			if !ok {
				row = schema.UnknownIndex
			}
			col, ok := intOf(c["columnIndex"])
			if !ok {
				col = schema.UnknownIndex
			}
			kind := stringOf(c["kind"])
			p := prov(c, tp.Page)
			if kind != "" {
				p.RawData = map[string]any{"cell_kind": kind}
			}
			table.Cells = append(table.Cells, schema.NewCell(strings.TrimSpace(stringOf(c["content"])), row, col, kind == "columnHeader", p))
		}
		if len(table.Cells) > 0 {
			doc.Tables = append(doc.Tables, table)
		}
	}
	for _, kv := range listOf(ar["keyValuePairs"]) {
		key, _ := kv["key"].(map[string]any)
		if key == nil {
			continue
		}
		k := strings.TrimSpace(stringOf(key["content"]))
		if k == "" {
			continue
		}
		v := ""
		if value, ok := kv["value"].(map[string]any); ok {
			v = strings.TrimSpace(stringOf(value["content"]))
		}
		p := prov(key, 1)
		if p.Confidence == nil {
			p.Confidence = provenance.NormalizeConfidence(kv["confidence"], m)
		}
		doc.KeyValues = append(doc.KeyValues, schema.KeyValue{Key: k, Value: v, Provenance: p})
	}
	return doc, len(pages)
}
