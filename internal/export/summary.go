package export

import (
	"sort"
	"sync"
	"time"
)

// TimingStats summarize the durations recorded for one operation.
type TimingStats struct {
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Tracker records operation durations in seconds. It is safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	samples map[string][]float64
}

// Record adds one duration for op.
func (t *Tracker) Record(op string, seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.samples == nil {
		t.samples = map[string][]float64{}
	}
	t.samples[op] = append(t.samples[op], seconds)
}

// Stats returns a snapshot of every recorded operation.
func (t *Tracker) Stats() map[string]TimingStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]TimingStats, len(t.samples))
	for op, xs := range t.samples {
		if len(xs) == 0 {
			continue
		}
		s := TimingStats{Count: len(xs), Min: xs[0], Max: xs[0]}
		for _, x := range xs {
			s.Total += x
			if x < s.Min {
				s.Min = x
			}
			if x > s.Max {
				s.Max = x
			}
		}
		s.Average = s.Total / float64(len(xs))
		out[op] = s
	}
	return out
}

// DocumentSummary is the per-PDF line of the run summary.
type DocumentSummary struct {
	DocumentID    string   `json:"document_id"`
	File          string   `json:"file"`
	Pages         int      `json:"pages"`
	Scanned       bool     `json:"scanned"`
	MethodsUsed   []string `json:"methods_used"`
	BestOverall   string   `json:"best_overall,omitempty"`
	BestTables    string   `json:"best_tables,omitempty"`
	BestText      string   `json:"best_text,omitempty"`
	FailedMethods []string `json:"failed_methods"`
	Quarantined   int      `json:"quarantined"`
	Error         string   `json:"error,omitempty"`
}

// Summary is written to summary.json at the end of a run.
type Summary struct {
	RunID           string                 `json:"run_id"`
	TotalPDFs       int                    `json:"total_pdfs"`
	SuccessfulPDFs  int                    `json:"successful_pdfs"`
	MethodsUsed     []string               `json:"methods_used"`
	OutputDirectory string                 `json:"output_directory"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      time.Time              `json:"finished_at"`
	Documents       []DocumentSummary      `json:"documents"`
	ProcessingTime  map[string]TimingStats `json:"processing_time"`
}

// Finalize derives the aggregate fields from Documents. A PDF counts as
// successful when it was processed without a document-level error.
func (s *Summary) Finalize() {
	s.TotalPDFs = len(s.Documents)
	s.SuccessfulPDFs = 0
	seen := map[string]bool{}
	var methods []string
	for _, d := range s.Documents {
		if d.Error == "" {
			s.SuccessfulPDFs++
		}
		for _, m := range d.MethodsUsed {
			if !seen[m] {
				seen[m] = true
				methods = append(methods, m)
			}
		}
	}
	sort.Strings(methods)
	if methods == nil {
		methods = []string{}
	}
	s.MethodsUsed = methods
	if s.Documents == nil {
		s.Documents = []DocumentSummary{}
	}
	if s.ProcessingTime == nil {
		s.ProcessingTime = map[string]TimingStats{}
	}
}

// WriteSummary writes summary.json at the layout root.
func WriteSummary(l Layout, s Summary) error {
	return WriteJSON(l.SummaryPath(), s)
}
