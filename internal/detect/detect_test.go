package detect

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

func writeTextPDF(t *testing.T, path string, pages int) {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.MultiCell(0, 6, strings.Repeat("Quarterly revenue grew in every region this year. ", 6), "", "L", false)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
}

func TestInspect_DigitalPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "digital.pdf")
	writeTextPDF(t, p, 2)
	info, err := Inspect(p)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.PageCount != 2 || len(info.CharsPerPage) != 2 {
		t.Fatalf("pages: %+v", info)
	}
	if !info.HasText || info.IsScanned {
		t.Fatalf("expected digital pdf with text: %+v", info)
	}
}

func TestInspect_RejectsNonPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(p, []byte("just text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Inspect(p); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestIsScanned(t *testing.T) {
	cases := []struct {
		name string
		info Info
		want bool
	}{
		{"no text", Info{PageCount: 1}, true},
		{"sparse text many images", Info{PageCount: 2, TotalChars: 50, TotalImages: 2}, true},
		{"sparse text few images", Info{PageCount: 2, TotalChars: 50, TotalImages: 1}, false},
		{"dense text", Info{PageCount: 1, TotalChars: 5000, TotalImages: 3}, false},
	}
	for _, tc := range cases {
		if got := isScanned(tc.info); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestShouldUseOCR(t *testing.T) {
	scanned := Info{IsScanned: true}
	digital := Info{IsScanned: false}
	if ok, _ := ShouldUseOCR(digital, OCRForce); !ok {
		t.Fatalf("force should enable OCR")
	}
	if ok, _ := ShouldUseOCR(scanned, OCROff); ok {
		t.Fatalf("off should disable OCR")
	}
	if ok, _ := ShouldUseOCR(scanned, OCRAuto); !ok {
		t.Fatalf("auto should follow scan detection")
	}
	if _, err := ShouldUseOCR(digital, "sometimes"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
	if _, err := ParseOCRMode("bogus"); err == nil {
		t.Fatalf("expected parse error")
	}
	if m, _ := ParseOCRMode(" FORCE "); m != OCRForce {
		t.Fatalf("parse: %s", m)
	}
}

func TestRecommendedMethods(t *testing.T) {
	digital := RecommendedMethods(Info{HasText: true})
	if digital[0] != schema.MethodPDFPlumber {
		t.Fatalf("digital: %v", digital)
	}
	for _, m := range digital {
		if m == schema.MethodTesseract {
			t.Fatalf("tesseract recommended for digital pdf")
		}
	}
	scanned := RecommendedMethods(Info{IsScanned: true})
	if scanned[0] != schema.MethodTesseract || scanned[len(scanned)-1] != schema.MethodLLM {
		t.Fatalf("scanned: %v", scanned)
	}
}

func TestParsePageRange(t *testing.T) {
	cases := []struct {
		expr  string
		total int
		want  []int
	}{
		{"", 3, []int{1, 2, 3}},
		{"1,2,5-7", 10, []int{1, 2, 5, 6, 7}},
		{"7, 2-3, 2", 10, []int{2, 3, 7}},
		{"4-4", 4, []int{4}},
	}
	for _, tc := range cases {
		got, err := ParsePageRange(tc.expr, tc.total)
		if err != nil {
			t.Fatalf("%q: %v", tc.expr, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%q: got %v want %v", tc.expr, got, tc.want)
		}
	}
	for _, bad := range []string{"0", "11", "5-3", "2-11", "a", "1,,2", "1-x"} {
		if _, err := ParsePageRange(bad, 10); !errors.Is(err, ErrInvalidPageRange) {
			t.Fatalf("%q: expected ErrInvalidPageRange, got %v", bad, err)
		}
	}
}

func TestFindPDFs(t *testing.T) {
	dir := t.TempDir()
	_ = os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt", filepath.Join("sub", "c.pdf")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := FindPDFs(dir)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := []string{filepath.Join(dir, "a.PDF"), filepath.Join(dir, "b.pdf"), filepath.Join(dir, "sub", "c.pdf")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	single, err := FindPDFs(want[1])
	if err != nil || len(single) != 1 {
		t.Fatalf("single file: %v %v", single, err)
	}
}
