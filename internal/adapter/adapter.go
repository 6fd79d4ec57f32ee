// Package adapter wraps extraction backends behind one interface and runs
// them with a timeout so a failing backend never aborts a batch.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

var (
	// ErrUnknownMethod is returned for names that are not extraction methods.
	ErrUnknownMethod = errors.New("adapter: unknown method")
	// ErrUnavailable is returned for known methods with no usable backend.
	ErrUnavailable = errors.New("adapter: method unavailable")
)

// Adapter extracts one PDF with one method. pages holds 1-based page
// numbers; an empty slice means every page. Implementations drop items whose
// confidence is below minConfidence.
type Adapter interface {
	Method() schema.Method
	Extract(ctx context.Context, pdfPath string, pages []int, minConfidence float64) (schema.Document, error)
}

// Prober is implemented by adapters that depend on something outside the
// process, such as a binary on PATH or a directory of saved responses.
type Prober interface {
	Probe() error
}

// Registry maps methods to adapters and remembers registration order.
type Registry struct {
	order    []schema.Method
	adapters map[schema.Method]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[schema.Method]Adapter{}}
}

// Register adds a. Adapters whose probe fails are rejected with
// ErrUnavailable; a later registration for the same method replaces the
// earlier one and keeps its position.
func (r *Registry) Register(a Adapter) error {
	m := a.Method()
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	if p, ok := a.(Prober); ok {
		if err := p.Probe(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, m, err)
		}
	}
	if _, exists := r.adapters[m]; !exists {
		r.order = append(r.order, m)
	}
	r.adapters[m] = a
	return nil
}

// Lookup returns the adapter for m.
func (r *Registry) Lookup(m schema.Method) (Adapter, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	a, ok := r.adapters[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, m)
	}
	return a, nil
}

// Available lists registered methods in registration order.
func (r *Registry) Available() []schema.Method {
	return append([]schema.Method(nil), r.order...)
}

// Filter keeps the methods that are registered, preserving the order of
// methods, and returns the rest separately.
func (r *Registry) Filter(methods []schema.Method) (available, missing []schema.Method) {
	for _, m := range methods {
		if _, ok := r.adapters[m]; ok {
			available = append(available, m)
		} else {
			missing = append(missing, m)
		}
	}
	return available, missing
}

// Request identifies one extraction.
type Request struct {
	DocumentID    string
	Path          string
	Pages         []int
	MinConfidence float64
}

type outcome struct {
	doc schema.Document
	err error
}

// Run calls a with a per-call timeout. It never fails: errors, panics and
// timeouts come back as an error document whose extraction_metadata carries
// the message. The elapsed wall time is returned alongside.
func Run(ctx context.Context, a Adapter, req Request, timeout time.Duration) (schema.Document, time.Duration) {
	m := a.Method()
	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Str("method", string(m)).Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("adapter panicked")
				done <- outcome{err: fmt.Errorf("adapter panic: %v", rec)}
			}
		}()
		doc, err := a.Extract(ctx, req.Path, req.Pages, req.MinConfidence)
		done <- outcome{doc: doc, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out.err = fmt.Errorf("timed out after %s", timeout)
		} else {
			out.err = ctx.Err()
		}
	}
	elapsed := time.Since(start)

	fileName := filepath.Base(req.Path)
	if out.err != nil {
		log.Warn().Str("method", string(m)).Str("file", fileName).Err(out.err).Dur("elapsed", elapsed).Msg("extraction failed")
		return schema.ErrorDocument(req.DocumentID, fileName, m, out.err.Error()), elapsed
	}
	doc := out.doc
	if doc.ID == "" {
		doc.ID = req.DocumentID
	}
	if doc.FileName == "" {
		doc.FileName = fileName
	}
	if doc.ExtractionMetadata == nil {
		doc.ExtractionMetadata = map[string]any{}
	}
	if _, ok := doc.ExtractionMetadata["method"]; !ok {
		doc.ExtractionMetadata["method"] = string(m)
	}
	log.Debug().Str("method", string(m)).Str("file", fileName).Int("text_blocks", len(doc.TextBlocks)).
		Int("tables", len(doc.Tables)).Dur("elapsed", elapsed).Msg("extraction finished")
	return doc, elapsed
}

// Finish applies the confidence threshold and fills the page count.
func Finish(doc schema.Document, pageCount int, minConfidence float64) schema.Document {
	if pageCount < 1 {
		pageCount = 1
	}
	doc.PageCount = pageCount
	if doc.TextBlocks == nil {
		doc.TextBlocks = []schema.TextBlock{}
	}
	if doc.Tables == nil {
		doc.Tables = []schema.Table{}
	}
	if doc.KeyValues == nil {
		doc.KeyValues = []schema.KeyValue{}
	}
	return provenance.FilterDocument(doc, minConfidence)
}

// wantPage reports whether page is selected; an empty selection keeps all.
func wantPage(pages []int, page int) bool {
	if len(pages) == 0 {
		return true
	}
	for _, p := range pages {
		if p == page {
			return true
		}
	}
	return false
}

// SelectPages resolves an empty selection to every page of total and drops
// pages outside 1..total.
func SelectPages(pages []int, total int) []int {
	if len(pages) == 0 {
		out := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, i)
		}
		return out
	}
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= total {
			out = append(out, p)
		}
	}
	return out
}
