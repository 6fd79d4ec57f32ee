package export

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hyperifyio/pdfxbench/internal/compare"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// Report formats.
const (
	ReportMarkdown = "md"
	ReportHTML     = "html"
)

// ReportOptions selects the report outputs for one document.
type ReportOptions struct {
	Format string // md or html
	PDF    bool   // also render a PDF next to the report
	Now    func() time.Time
}

func (o ReportOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// WriteReports renders the comparison for docID and writes it in the chosen
// format, plus a PDF rendition when requested. It returns the written paths.
func WriteReports(l Layout, docID string, c compare.Comparison, opts ReportOptions) ([]string, error) {
	if err := os.MkdirAll(l.ReportsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir reports: %w", err)
	}
	md := RenderMarkdown(docID, c, opts.now())
	var paths []string

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", ReportMarkdown:
		p := l.ReportPath(docID, ReportMarkdown)
		if err := os.WriteFile(p, []byte(md), 0o644); err != nil {
			return nil, fmt.Errorf("write markdown report: %w", err)
		}
		paths = append(paths, p)
	case ReportHTML:
		page, err := RenderHTML(docID, md)
		if err != nil {
			return nil, err
		}
		p := l.ReportPath(docID, ReportHTML)
		if err := os.WriteFile(p, []byte(page), 0o644); err != nil {
			return nil, fmt.Errorf("write html report: %w", err)
		}
		paths = append(paths, p)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", opts.Format)
	}

	if opts.PDF {
		p := l.ReportPath(docID, "pdf")
		if err := WritePDFReport(md, p); err != nil {
			return nil, fmt.Errorf("write pdf report: %w", err)
		}
		paths = append(paths, p)
	}
	log.Info().Str("doc", docID).Strs("paths", paths).Msg("comparison report written")
	return paths, nil
}

// RenderMarkdown builds the human-readable comparison report. Methods appear
// in ranking order throughout.
func RenderMarkdown(docID string, c compare.Comparison, generated time.Time) string {
	var b strings.Builder
	b.WriteString("# PDF Extraction Comparison Report\n\n")
	fmt.Fprintf(&b, "- Document: `%s.pdf`\n", docID)
	fmt.Fprintf(&b, "- Generated: %s\n\n", generated.UTC().Format(time.RFC3339))

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "- Methods tested: %d\n", c.TotalMethods)
	fmt.Fprintf(&b, "- Best overall: %s\n", orNA(c.BestOverall))
	fmt.Fprintf(&b, "- Best for tables: %s\n", orNA(c.BestTables))
	fmt.Fprintf(&b, "- Best for text: %s\n", orNA(c.BestText))
	if !c.Empty() {
		fmt.Fprintf(&b, "- Table count consensus: %d\n", c.TableCountConsensus)
		fmt.Fprintf(&b, "- Subtotal check passed: %t\n", c.NumericValidationPassed)
	}
	b.WriteString("\n")

	if c.Empty() {
		b.WriteString("No extraction methods produced results for this document.\n")
		return b.String()
	}

	b.WriteString("## Method Rankings\n\n")
	for i, r := range c.MethodRankings {
		fmt.Fprintf(&b, "%d. **%s** (%.3f)\n", i+1, r.Method, r.Score)
	}
	b.WriteString("\n")

	b.WriteString("## Performance Metrics\n\n")
	b.WriteString("| Method | Quality Score | Tables Found | Text Blocks | Confidence | Time (sec) |\n")
	b.WriteString("|--------|---------------|--------------|-------------|------------|------------|\n")
	for _, s := range c.Ranked() {
		conf := "N/A*"
		if s.Basic.AvgConfidence != nil {
			conf = fmt.Sprintf("%.3f", *s.Basic.AvgConfidence)
		}
		fmt.Fprintf(&b, "| %s | %.3f | %d | %d | %s | %.3f |\n",
			s.Method, s.OverallScore, s.Basic.TotalTables, s.Basic.TotalTextBlocks, conf, s.ProcessingTime)
	}
	b.WriteString("\n")
	b.WriteString("Notes:\n\n")
	b.WriteString("- Quality score is on a 0-1 scale, higher is better.\n")
	b.WriteString("- N/A* means the method reports no confidence scores.\n")
	b.WriteString("- Time is the wall-clock extraction time in seconds.\n\n")

	if len(c.FailedMethods) > 0 {
		b.WriteString("## Failed Methods\n\n")
		for _, f := range c.FailedMethods {
			fmt.Fprintf(&b, "- %s: %s\n", f.Method, oneLine(f.Error))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Detailed Quality Analysis\n\n")
	for _, s := range c.Ranked() {
		fmt.Fprintf(&b, "### %s\n\n", s.Method)
		b.WriteString("Basic metrics:\n\n")
		fmt.Fprintf(&b, "- Success: %t\n", s.Basic.Success)
		fmt.Fprintf(&b, "- Empty cell rate: %.3f\n", s.Basic.EmptyCellRate)
		if s.Basic.AvgConfidence != nil {
			fmt.Fprintf(&b, "- Average confidence: %.3f\n\n", *s.Basic.AvgConfidence)
		} else {
			b.WriteString("- Average confidence: N/A\n\n")
		}
		if t := s.Table; t.TableCount > 0 {
			b.WriteString("Table metrics:\n\n")
			fmt.Fprintf(&b, "- Table count: %d\n", t.TableCount)
			fmt.Fprintf(&b, "- Avg rows per table: %.1f\n", t.AvgRowsPerTable)
			fmt.Fprintf(&b, "- Avg cols per table: %.1f\n", t.AvgColsPerTable)
			fmt.Fprintf(&b, "- Numeric parse rate: %.3f\n", t.NumericCellParseRate)
			fmt.Fprintf(&b, "- Completeness score: %.3f\n\n", t.TableCompletenessScore)
		}
		if t := s.Text; t.TextBlockCount > 0 {
			b.WriteString("Text metrics:\n\n")
			fmt.Fprintf(&b, "- Text block count: %d\n", t.TextBlockCount)
			fmt.Fprintf(&b, "- Total characters: %d\n", t.TotalCharacters)
			fmt.Fprintf(&b, "- Readable text rate: %.3f\n\n", t.ReadableTextRate)
		}
	}
	return b.String()
}

const htmlStyle = `body { font-family: Arial, sans-serif; margin: 40px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }`

// RenderHTML converts the Markdown report to a standalone HTML page.
func RenderHTML(docID, markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Comparison Report - %s</title>\n", html.EscapeString(docID))
	fmt.Fprintf(&b, "<style>\n%s\n</style>\n</head>\n<body>\n", htmlStyle)
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func orNA(m schema.Method) string {
	if m == "" {
		return "N/A"
	}
	return string(m)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
