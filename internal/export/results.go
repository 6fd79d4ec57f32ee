package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// Export format keys returned by ExportResult.
const (
	FormatJSON      = "json"
	FormatTablesCSV = "tables_csv"
	FormatTextJSONL = "text_jsonl"
	FormatKVJSONL   = "keyvalues_jsonl"
)

// TableCSVHeader is the column order of the flattened tables CSV.
var TableCSVHeader = []string{
	"table_id", "row", "col", "text", "is_header", "parsed_number", "parsed_date",
	"page", "confidence", "bbox_x0", "bbox_y0", "bbox_x1", "bbox_y1",
}

type textRecord struct {
	Text       string              `json:"text"`
	Page       int                 `json:"page"`
	BBox       *schema.BoundingBox `json:"bbox"`
	Confidence *float64            `json:"confidence"`
}

type kvRecord struct {
	Key        string              `json:"key"`
	Value      string              `json:"value"`
	Page       int                 `json:"page"`
	BBox       *schema.BoundingBox `json:"bbox"`
	Confidence *float64            `json:"confidence"`
}

// ExportResult writes one method's result for a document: the full JSON, and
// when present the flattened tables CSV, text JSONL and key-value JSONL. It
// returns the written paths keyed by format.
func ExportResult(l Layout, res schema.ExtractionResult, docID string) (map[string]string, error) {
	if err := os.MkdirAll(l.MethodDir(res.Method), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir method dir: %w", err)
	}
	files := map[string]string{}

	p := l.ResultPath(docID, res.Method, ".json")
	if err := WriteJSON(p, res); err != nil {
		return nil, fmt.Errorf("write result json: %w", err)
	}
	files[FormatJSON] = p

	doc := res.Document
	if len(doc.Tables) > 0 {
		p := l.ResultPath(docID, res.Method, "_tables.csv")
		if err := writeFile(p, func(w io.Writer) error { return WriteTablesCSV(w, doc.Tables) }); err != nil {
			return nil, fmt.Errorf("write tables csv: %w", err)
		}
		files[FormatTablesCSV] = p
	}
	if len(doc.TextBlocks) > 0 {
		recs := make([]textRecord, 0, len(doc.TextBlocks))
		for _, b := range doc.TextBlocks {
			page, bbox, conf := provFields(b.Provenance)
			recs = append(recs, textRecord{Text: b.Text, Page: page, BBox: bbox, Confidence: conf})
		}
		p := l.ResultPath(docID, res.Method, "_text.jsonl")
		if err := WriteJSONL(p, recs); err != nil {
			return nil, fmt.Errorf("write text jsonl: %w", err)
		}
		files[FormatTextJSONL] = p
	}
	if len(doc.KeyValues) > 0 {
		recs := make([]kvRecord, 0, len(doc.KeyValues))
		for _, kv := range doc.KeyValues {
			page, bbox, conf := provFields(kv.Provenance)
			recs = append(recs, kvRecord{Key: kv.Key, Value: kv.Value, Page: page, BBox: bbox, Confidence: conf})
		}
		p := l.ResultPath(docID, res.Method, "_keyvalues.jsonl")
		if err := WriteJSONL(p, recs); err != nil {
			return nil, fmt.Errorf("write keyvalues jsonl: %w", err)
		}
		files[FormatKVJSONL] = p
	}
	log.Debug().Str("method", string(res.Method)).Str("doc", docID).Int("files", len(files)).Msg("exported result")
	return files, nil
}

// WriteQuarantine writes one JSON line per entry. The file is created even
// when there are no entries, so its presence always means the document was
// processed.
func WriteQuarantine(l Layout, docID string, entries []schema.QuarantineEntry) (string, error) {
	if err := os.MkdirAll(l.QuarantineDir(), 0o755); err != nil {
		return "", fmt.Errorf("mkdir quarantine: %w", err)
	}
	p := l.QuarantinePath(docID)
	if err := WriteJSONL(p, entries); err != nil {
		return "", fmt.Errorf("write quarantine: %w", err)
	}
	log.Info().Str("doc", docID).Int("entries", len(entries)).Str("path", p).Msg("quarantine written")
	return p, nil
}

// WriteJSONL writes items as line-delimited JSON, truncating any existing file.
func WriteJSONL[T any](path string, items []T) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, it := range items {
			if err := enc.Encode(it); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTablesCSV flattens tables to one row per cell.
func WriteTablesCSV(w io.Writer, tables []schema.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TableCSVHeader); err != nil {
		return err
	}
	for _, t := range tables {
		for _, c := range t.Cells {
			page, bbox, conf := provFields(c.Provenance)
			row := []string{
				t.TableID,
				strconv.Itoa(c.RowIdx),
				strconv.Itoa(c.ColIdx),
				c.RawText,
				strconv.FormatBool(c.IsHeader),
				formatFloatPtr(c.ParsedNumber),
				stringPtr(c.ParsedDate),
				strconv.Itoa(page),
				formatFloatPtr(conf),
				"", "", "", "",
			}
			if bbox != nil {
				row[9] = formatFloat(bbox.X0)
				row[10] = formatFloat(bbox.Y0)
				row[11] = formatFloat(bbox.X1)
				row[12] = formatFloat(bbox.Y1)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTablesCSV reverses WriteTablesCSV. Tables come back in first-seen order
// with cells in file order.
func ReadTablesCSV(r io.Reader) ([]schema.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(TableCSVHeader)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []schema.Table{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range TableCSVHeader {
		if header[i] != h {
			return nil, fmt.Errorf("unexpected column %d: %q", i, header[i])
		}
	}

	tables := []schema.Table{}
	index := map[string]int{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell, err := parseCSVCell(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		i, ok := index[rec[0]]
		if !ok {
			i = len(tables)
			index[rec[0]] = i
			tables = append(tables, schema.Table{TableID: rec[0]})
		}
		tables[i].Cells = append(tables[i].Cells, cell)
	}
	return tables, nil
}

func parseCSVCell(rec []string) (schema.TableCell, error) {
	row, err := strconv.Atoi(rec[1])
	if err != nil {
		return schema.TableCell{}, fmt.Errorf("row: %w", err)
	}
	col, err := strconv.Atoi(rec[2])
	if err != nil {
		return schema.TableCell{}, fmt.Errorf("col: %w", err)
	}
	header, err := strconv.ParseBool(rec[4])
	if err != nil {
		return schema.TableCell{}, fmt.Errorf("is_header: %w", err)
	}
	num, err := parseFloatPtr(rec[5])
	if err != nil {
		return schema.TableCell{}, fmt.Errorf("parsed_number: %w", err)
	}
	page, err := strconv.Atoi(rec[7])
	if err != nil {
		return schema.TableCell{}, fmt.Errorf("page: %w", err)
	}
	conf, err := parseFloatPtr(rec[8])
	if err != nil {
		return schema.TableCell{}, fmt.Errorf("confidence: %w", err)
	}
	prov := &schema.Provenance{Page: page, Confidence: conf}
	if rec[9] != "" {
		var v [4]float64
		for i := range v {
			if v[i], err = strconv.ParseFloat(rec[9+i], 64); err != nil {
				return schema.TableCell{}, fmt.Errorf("bbox: %w", err)
			}
		}
		prov.BBox = &schema.BoundingBox{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}
	}
	cell := schema.TableCell{
		RawText:      rec[3],
		RowIdx:       row,
		ColIdx:       col,
		IsHeader:     header,
		Provenance:   prov,
		ParsedNumber: num,
	}
	if rec[6] != "" {
		d := rec[6]
		cell.ParsedDate = &d
	}
	return cell, nil
}

func provFields(p *schema.Provenance) (int, *schema.BoundingBox, *float64) {
	if p == nil {
		return 1, nil, nil
	}
	return p.Page, p.BBox, p.Confidence
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func parseFloatPtr(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func stringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// writeFile creates path and hands a buffered writer to fn.
func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
