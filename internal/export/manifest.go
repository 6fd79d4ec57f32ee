package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ManifestEntry is a compact record of one input PDF.
type ManifestEntry struct {
	Index      int    `json:"index"`
	File       string `json:"file"`
	DocumentID string `json:"document_id"`
	SHA256     string `json:"sha256"`
	Bytes      int64  `json:"bytes"`
	Pages      int    `json:"pages"`
}

// ManifestMeta captures run details that aid reproducibility.
type ManifestMeta struct {
	RunID         string    `json:"run_id"`
	Methods       []string  `json:"methods"`
	MinConfidence float64   `json:"min_confidence"`
	OCRMode       string    `json:"ocr_mode"`
	Model         string    `json:"model,omitempty"`
	LLMBaseURL    string    `json:"llm_base_url,omitempty"`
	LLMCache      bool      `json:"llm_cache"`
	DocumentCount int       `json:"document_count"`
	GeneratedAt   time.Time `json:"generated_at"`
	Version       string    `json:"version,omitempty"`
	Commit        string    `json:"commit,omitempty"`
}

// DocumentID is the PDF's base name without extension. Saved vendor
// responses are looked up by this name.
func DocumentID(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DocumentIDs assigns the identifiers used in output file names, unique
// within one run. A PDF below Root is named by its relative path without
// extension, separators replaced by "_", so in/a/report.pdf becomes
// a_report. A repeated identifier gets a -2, -3, ... suffix.
type DocumentIDs struct {
	Root string
	seen map[string]bool
}

// Assign returns the identifier for pdfPath and reserves it.
func (d *DocumentIDs) Assign(pdfPath string) string {
	id := DocumentID(pdfPath)
	if d.Root != "" {
		rel, err := filepath.Rel(d.Root, pdfPath)
		if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			rel = strings.TrimSuffix(rel, filepath.Ext(rel))
			id = strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
		}
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	base := id
	for n := 2; d.seen[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	d.seen[id] = true
	return id
}

// NewManifestEntry digests the PDF at path, recorded under docID.
func NewManifestEntry(index int, path, docID string, pages int) (ManifestEntry, error) {
	st, err := os.Stat(path)
	if err != nil {
		return ManifestEntry{}, err
	}
	sum, err := sha256File(path)
	if err != nil {
		return ManifestEntry{}, err
	}
	return ManifestEntry{
		Index:      index,
		File:       path,
		DocumentID: docID,
		SHA256:     sum,
		Bytes:      st.Size(),
		Pages:      pages,
	}, nil
}

// MarshalManifestJSON encodes the machine-readable run manifest.
func MarshalManifestJSON(meta ManifestMeta, entries []ManifestEntry) ([]byte, error) {
	if entries == nil {
		entries = []ManifestEntry{}
	}
	payload := struct {
		Meta      ManifestMeta    `json:"meta"`
		Documents []ManifestEntry `json:"documents"`
	}{Meta: meta, Documents: entries}
	return json.MarshalIndent(payload, "", "  ")
}

// WriteManifest writes manifest.json at the layout root.
func WriteManifest(l Layout, meta ManifestMeta, entries []ManifestEntry) error {
	b, err := MarshalManifestJSON(meta, entries)
	if err != nil {
		return err
	}
	return os.WriteFile(l.ManifestPath(), b, 0o644)
}
