package extract

import "io"

// Parser turns tool markup into positioned boxes. Implementations are
// deterministic and keep document order.
type Parser interface {
    Parse(r io.Reader) ([]Box, error)
}

// BBoxLayout parses pdftotext -bbox-layout output.
type BBoxLayout struct{}

func (BBoxLayout) Parse(r io.Reader) ([]Box, error) {
    return ParseBBoxLayout(r)
}

// HOCR parses the hOCR of one rendered page.
type HOCR struct {
    Page int
}

func (h HOCR) Parse(r io.Reader) ([]Box, error) {
    return ParseHOCR(r, h.Page)
}
