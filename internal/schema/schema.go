package schema

// UnknownIndex marks a table cell whose row or column could not be
// determined by the producing adapter. The normalizer quarantines such cells
// instead of folding them into (0,0).
const UnknownIndex = -1

// BoundingBox is an axis-aligned box in the source page's coordinate space.
// Construct validated boxes with provenance.BuildBBox.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns X1-X0.
func (b BoundingBox) Width() float64 { return b.X1 - b.X0 }

// Height returns Y1-Y0.
func (b BoundingBox) Height() float64 { return b.Y1 - b.Y0 }

// Provenance records where a single datum came from. Each datum owns its
// own record; adapters must not share one pointer across items.
type Provenance struct {
	Method     Method         `json:"method"`
	Page       int            `json:"page"`
	BBox       *BoundingBox   `json:"bbox,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	RawData    map[string]any `json:"raw_data,omitempty"`
}

// ConfidenceValue returns the confidence and whether it is present.
func (p *Provenance) ConfidenceValue() (float64, bool) {
	if p == nil || p.Confidence == nil {
		return 0, false
	}
	return *p.Confidence, true
}

// TextBlock is one coherent unit of extracted prose. Granularity depends on
// the extractor: a line, a paragraph or a whole page.
type TextBlock struct {
	Text       string      `json:"text"`
	Provenance *Provenance `json:"provenance"`
}

// TableCell is a single grid position. RawText may be empty.
type TableCell struct {
	RawText      string      `json:"raw_text"`
	RowIdx       int         `json:"row_idx"`
	ColIdx       int         `json:"col_idx"`
	IsHeader     bool        `json:"is_header"`
	Provenance   *Provenance `json:"provenance"`
	ParsedNumber *float64    `json:"parsed_number"`
	ParsedDate   *string     `json:"parsed_date"`
}

// NewCell builds a cell and derives ParsedNumber and ParsedDate from text.
func NewCell(text string, row, col int, header bool, prov *Provenance) TableCell {
	return TableCell{
		RawText:      text,
		RowIdx:       row,
		ColIdx:       col,
		IsHeader:     header,
		Provenance:   prov,
		ParsedNumber: ParseNumber(text),
		ParsedDate:   ParseDate(text),
	}
}

// Table groups cells under a document-unique identifier.
type Table struct {
	TableID    string      `json:"table_id"`
	Cells      []TableCell `json:"cells"`
	Caption    *string     `json:"caption,omitempty"`
	Provenance *Provenance `json:"provenance"`
}

// Rows is max(row_idx)+1 over the cells, or 0 for an empty table.
func (t Table) Rows() int {
	n := 0
	for _, c := range t.Cells {
		if c.RowIdx+1 > n {
			n = c.RowIdx + 1
		}
	}
	return n
}

// Cols is max(col_idx)+1 over the cells, or 0 for an empty table.
func (t Table) Cols() int {
	n := 0
	for _, c := range t.Cells {
		if c.ColIdx+1 > n {
			n = c.ColIdx + 1
		}
	}
	return n
}

// Cell returns the first cell at (row, col).
func (t Table) Cell(row, col int) (TableCell, bool) {
	for _, c := range t.Cells {
		if c.RowIdx == row && c.ColIdx == col {
			return c, true
		}
	}
	return TableCell{}, false
}

// KeyValue is a form-field label and its value.
type KeyValue struct {
	Key        string      `json:"key"`
	Value      string      `json:"value"`
	Provenance *Provenance `json:"provenance"`
}

// Document is the per-(PDF, method) aggregate produced by an adapter and
// replaced by its normalized form before scoring.
type Document struct {
	ID                 string         `json:"id"`
	FileName           string         `json:"file_name"`
	PageCount          int            `json:"page_count"`
	TextBlocks         []TextBlock    `json:"text_blocks"`
	Tables             []Table        `json:"tables"`
	KeyValues          []KeyValue     `json:"key_values"`
	ExtractionMetadata map[string]any `json:"extraction_metadata"`
}

// MetadataKeyError is the extraction_metadata key adapters set on failure.
const MetadataKeyError = "error"

// ErrorDocument returns the empty document adapters hand back on failure.
func ErrorDocument(id, fileName string, method Method, msg string) Document {
	return Document{
		ID:        id,
		FileName:  fileName,
		PageCount: 1,
		ExtractionMetadata: map[string]any{
			"method":         string(method),
			MetadataKeyError: msg,
		},
	}
}

// Error returns the adapter failure message recorded in the metadata.
func (d Document) Error() (string, bool) {
	if d.ExtractionMetadata == nil {
		return "", false
	}
	v, ok := d.ExtractionMetadata[MetadataKeyError]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ExtractionResult is one method's normalized output plus run-level facts.
type ExtractionResult struct {
	Document        Document `json:"document"`
	Method          Method   `json:"method"`
	Success         bool     `json:"success"`
	ErrorMessage    string   `json:"error_message,omitempty"`
	ProcessingTime  float64  `json:"processing_time"`
	TotalTextBlocks int      `json:"total_text_blocks"`
	TotalTables     int      `json:"total_tables"`
	TotalCells      int      `json:"total_cells"`
	EmptyCells      int      `json:"empty_cells"`
	AvgConfidence   *float64 `json:"avg_confidence"`
}

// QuarantineEntry records one rejected fragment.
type QuarantineEntry struct {
	OriginalData  any    `json:"original_data"`
	Method        Method `json:"method"`
	FailureReason string `json:"failure_reason"`
	Page          int    `json:"page"`
	Timestamp     string `json:"timestamp"`
}
