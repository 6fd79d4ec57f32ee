package export

import (
    "bufio"
    "strings"

    "github.com/jung-kurt/gofpdf"
)

// WritePDFReport renders the Markdown report as a plain PDF: headings in
// bold, pipe tables as fixed-width rows, everything else as wrapped text.
// It does not attempt full Markdown layout.
func WritePDFReport(markdown string, outPath string) error {
    pdf := gofpdf.New("P", "mm", "A4", "")
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.SetFont("Helvetica", "", 10)
    pdf.AddPage()

    scanner := bufio.NewScanner(strings.NewReader(markdown))
    scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
    for scanner.Scan() {
        s := strings.TrimSpace(scanner.Text())
        if s == "" {
            pdf.Ln(3)
            continue
        }
        if strings.HasPrefix(s, "#") {
            i := 0
            for i < len(s) && s[i] == '#' { i++ }
            text := strings.TrimSpace(s[i:])
            if text == "" { continue }
            size := 15.0
            if i == 2 { size = 13.0 }
            if i >= 3 { size = 11.5 }
            pdf.SetFont("Helvetica", "B", size)
            pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
            pdf.SetFont("Helvetica", "", 10)
            continue
        }
        if strings.HasPrefix(s, "|") {
            cells := splitTableRow(s)
            if isSeparatorRow(cells) { continue }
            pageW, _ := pdf.GetPageSize()
            left, _, right, _ := pdf.GetMargins()
            w := (pageW - left - right) / float64(len(cells))
            for _, c := range cells {
                pdf.CellFormat(w, 6, tr(truncateCell(c, 24)), "1", 0, "L", false, 0, "")
            }
            pdf.Ln(-1)
            continue
        }
        pdf.MultiCell(0, 5, tr(stripEmphasis(s)), "", "L", false)
    }
    if err := scanner.Err(); err != nil {
        return err
    }
    return pdf.OutputFileAndClose(outPath)
}

func splitTableRow(s string) []string {
    s = strings.Trim(s, "|")
    parts := strings.Split(s, "|")
    for i := range parts {
        parts[i] = strings.TrimSpace(parts[i])
    }
    return parts
}

func isSeparatorRow(cells []string) bool {
    for _, c := range cells {
        if strings.Trim(c, "-: ") != "" { return false }
    }
    return true
}

func stripEmphasis(s string) string {
    return strings.NewReplacer("**", "", "`", "").Replace(s)
}

func truncateCell(s string, n int) string {
    r := []rune(s)
    if len(r) <= n { return s }
    return string(r[:n-1]) + "."
}
