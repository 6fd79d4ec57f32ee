// Package export persists normalized results, quarantine records and
// comparison reports under one output root.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// Layout resolves every path under an output root:
//
//	<root>/results/<method>/<doc>_<method>.json
//	<root>/reports/<doc>_comparison.md
//	<root>/quarantine/<doc>_quarantine.jsonl
//	<root>/summary.json
type Layout struct {
	Root string
}

func (l Layout) ResultsDir() string    { return filepath.Join(l.Root, "results") }
func (l Layout) ReportsDir() string    { return filepath.Join(l.Root, "reports") }
func (l Layout) QuarantineDir() string { return filepath.Join(l.Root, "quarantine") }
func (l Layout) SummaryPath() string   { return filepath.Join(l.Root, "summary.json") }
func (l Layout) ManifestPath() string  { return filepath.Join(l.Root, "manifest.json") }

// MethodDir is the per-method results directory.
func (l Layout) MethodDir(m schema.Method) string {
	return filepath.Join(l.ResultsDir(), string(m))
}

// ResultPath returns <method dir>/<doc>_<method><suffix>.
func (l Layout) ResultPath(docID string, m schema.Method, suffix string) string {
	return filepath.Join(l.MethodDir(m), docID+"_"+string(m)+suffix)
}

// ReportPath returns <reports>/<doc>_comparison.<ext>.
func (l Layout) ReportPath(docID, ext string) string {
	return filepath.Join(l.ReportsDir(), docID+"_comparison."+ext)
}

// TablesWorkbookPath returns <reports>/<doc>_tables.xlsx.
func (l Layout) TablesWorkbookPath(docID string) string {
	return filepath.Join(l.ReportsDir(), docID+"_tables.xlsx")
}

// QuarantinePath returns <quarantine>/<doc>_quarantine.jsonl.
func (l Layout) QuarantinePath(docID string) string {
	return filepath.Join(l.QuarantineDir(), docID+"_quarantine.jsonl")
}

// Prepare creates the root and its fixed subdirectories. It is safe to call
// repeatedly and from several goroutines.
func (l Layout) Prepare() error {
	for _, dir := range []string{l.Root, l.ResultsDir(), l.ReportsDir(), l.QuarantineDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}
