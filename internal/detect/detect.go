// Package detect inspects PDFs to pick an extraction strategy: page count,
// text and image density, and whether the file looks scanned.
package detect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// ErrNotPDF is returned for files without a PDF header.
var ErrNotPDF = errors.New("detect: not a PDF file")

// Scanned-document heuristics.
const (
	scannedMaxCharsPerPage  = 100
	scannedMinImagesPerPage = 0.5
)

// Info describes one PDF.
type Info struct {
	Path          string `json:"path"`
	PageCount     int    `json:"page_count"`
	FileSize      int64  `json:"file_size"`
	IsScanned     bool   `json:"is_scanned"`
	HasText       bool   `json:"has_text"`
	HasImages     bool   `json:"has_images"`
	CharsPerPage  []int  `json:"text_density_per_page"`
	ImagesPerPage []int  `json:"image_density_per_page"`
	TotalChars    int    `json:"total_chars"`
	TotalImages   int    `json:"total_images"`
}

// OCRMode controls whether OCR methods run.
type OCRMode string

const (
	OCRAuto  OCRMode = "auto"
	OCRForce OCRMode = "force"
	OCROff   OCRMode = "off"
)

// ParseOCRMode validates a mode string.
func ParseOCRMode(s string) (OCRMode, error) {
	switch m := OCRMode(strings.ToLower(strings.TrimSpace(s))); m {
	case OCRAuto, OCRForce, OCROff:
		return m, nil
	case "":
		return OCRAuto, nil
	default:
		return "", fmt.Errorf("invalid OCR mode: %s", s)
	}
}

// Inspect opens the PDF at path and measures every page.
func Inspect(path string) (info Info, err error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	if err := checkHeader(path); err != nil {
		return Info{}, err
	}

	// The parser panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inspect %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info = Info{Path: path, FileSize: st.Size(), PageCount: r.NumPage()}
	for i := 1; i <= info.PageCount; i++ {
		p := r.Page(i)
		chars, images := 0, 0
		if !p.V.IsNull() {
			chars = pageChars(p)
			images = pageImages(p)
		}
		info.CharsPerPage = append(info.CharsPerPage, chars)
		info.ImagesPerPage = append(info.ImagesPerPage, images)
		info.TotalChars += chars
		info.TotalImages += images
	}
	info.HasText = info.TotalChars > 0
	info.HasImages = info.TotalImages > 0
	info.IsScanned = isScanned(info)

	log.Info().Str("file", path).Int("pages", info.PageCount).Bool("scanned", info.IsScanned).
		Int("chars", info.TotalChars).Int("images", info.TotalImages).Msg("pdf analysed")
	return info, nil
}

// isScanned reports little text with many images, or no text at all.
func isScanned(info Info) bool {
	if info.TotalChars == 0 {
		return true
	}
	if info.PageCount == 0 {
		return false
	}
	n := float64(info.PageCount)
	return float64(info.TotalChars)/n < scannedMaxCharsPerPage &&
		float64(info.TotalImages)/n > scannedMinImagesPerPage
}

func pageChars(p pdf.Page) (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()
	text, err := p.GetPlainText(nil)
	if err != nil {
		return 0
	}
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

func pageImages(p pdf.Page) (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()
	xobjs := p.Resources().Key("XObject")
	if xobjs.IsNull() || xobjs.Kind() != pdf.Dict {
		return 0
	}
	for _, key := range xobjs.Keys() {
		if xobjs.Key(key).Key("Subtype").Name() == "Image" {
			n++
		}
	}
	return n
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, 1024)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if !bytes.Contains(buf[:n], []byte("%PDF-")) {
		return fmt.Errorf("%w: %s", ErrNotPDF, path)
	}
	return nil
}

// ShouldUseOCR applies the OCR mode to the inspection result.
func ShouldUseOCR(info Info, mode OCRMode) (bool, error) {
	switch mode {
	case OCRForce:
		return true, nil
	case OCROff:
		return false, nil
	case OCRAuto, "":
		return info.IsScanned, nil
	default:
		return false, fmt.Errorf("invalid OCR mode: %s", mode)
	}
}

// RecommendedMethods lists the methods worth trying for a document, most
// specific first. Layout-based extractors need a text layer; OCR is only
// suggested for scanned input; cloud and LLM methods handle both.
func RecommendedMethods(info Info) []schema.Method {
	var out []schema.Method
	if info.HasText && !info.IsScanned {
		out = append(out,
			schema.MethodPDFPlumber,
			schema.MethodCamelotLattice,
			schema.MethodCamelotStream,
			schema.MethodTabula,
			schema.MethodPDFText,
			schema.MethodPoppler,
		)
	}
	if info.IsScanned || !info.HasText {
		out = append(out, schema.MethodTesseract)
	}
	return append(out,
		schema.MethodAdobe,
		schema.MethodTextract,
		schema.MethodDocAI,
		schema.MethodAzureRead,
		schema.MethodAzureLayout,
		schema.MethodLLM,
	)
}
