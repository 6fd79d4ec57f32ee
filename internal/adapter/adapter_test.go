package adapter

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

type stubAdapter struct {
	method schema.Method
	doc    schema.Document
	err    error
	panics bool
	delay  time.Duration
	probe  error
}

func (s stubAdapter) Method() schema.Method { return s.method }

func (s stubAdapter) Probe() error { return s.probe }

func (s stubAdapter) Extract(ctx context.Context, _ string, _ []int, _ float64) (schema.Document, error) {
	if s.panics {
		panic("index out of range")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return schema.Document{}, ctx.Err()
		}
	}
	return s.doc, s.err
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, m := range []schema.Method{schema.MethodPoppler, schema.MethodPDFText} {
		if err := r.Register(stubAdapter{method: m}); err != nil {
			t.Fatalf("register %s: %v", m, err)
		}
	}
	if err := r.Register(stubAdapter{method: schema.MethodPoppler}); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if got := r.Available(); !reflect.DeepEqual(got, []schema.Method{schema.MethodPoppler, schema.MethodPDFText}) {
		t.Fatalf("available: %v", got)
	}
	if err := r.Register(stubAdapter{method: "magic"}); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
	if err := r.Register(stubAdapter{method: schema.MethodTextract, probe: errors.New("no dir")}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := r.Lookup(schema.MethodTextract); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("lookup unregistered: %v", err)
	}
	if _, err := r.Lookup("nope"); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("lookup unknown: %v", err)
	}
	if a, err := r.Lookup(schema.MethodPDFText); err != nil || a.Method() != schema.MethodPDFText {
		t.Fatalf("lookup: %v %v", a, err)
	}
	avail, missing := r.Filter([]schema.Method{schema.MethodTesseract, schema.MethodPDFText, schema.MethodPoppler})
	if !reflect.DeepEqual(avail, []schema.Method{schema.MethodPDFText, schema.MethodPoppler}) || !reflect.DeepEqual(missing, []schema.Method{schema.MethodTesseract}) {
		t.Fatalf("filter: %v %v", avail, missing)
	}
}

func TestRun_Success(t *testing.T) {
	a := stubAdapter{method: schema.MethodPDFText, doc: schema.Document{PageCount: 2}}
	doc, elapsed := Run(context.Background(), a, Request{DocumentID: "invoice", Path: "/in/invoice.pdf"}, time.Second)
	if _, failed := doc.Error(); failed {
		t.Fatalf("unexpected error document: %+v", doc)
	}
	if doc.ID != "invoice" || doc.FileName != "invoice.pdf" || doc.ExtractionMetadata["method"] != "pdftext" {
		t.Fatalf("identity not filled: %+v", doc)
	}
	if elapsed < 0 {
		t.Fatalf("negative elapsed")
	}
}

func TestRun_FailuresBecomeErrorDocuments(t *testing.T) {
	cases := []struct {
		name    string
		a       stubAdapter
		timeout time.Duration
		want    string
	}{
		{"error", stubAdapter{method: schema.MethodPoppler, err: errors.New("pdftotext missing")}, time.Second, "pdftotext missing"},
		{"panic", stubAdapter{method: schema.MethodPoppler, panics: true}, time.Second, "adapter panic: index out of range"},
		{"timeout", stubAdapter{method: schema.MethodPoppler, delay: time.Second}, 20 * time.Millisecond, "timed out after 20ms"},
	}
	for _, tc := range cases {
		doc, _ := Run(context.Background(), tc.a, Request{DocumentID: "d", Path: "d.pdf"}, tc.timeout)
		msg, failed := doc.Error()
		if !failed || !strings.Contains(msg, tc.want) {
			t.Fatalf("%s: got %q failed=%v", tc.name, msg, failed)
		}
		if doc.PageCount != 1 || doc.ID != "d" || doc.FileName != "d.pdf" {
			t.Fatalf("%s: error document shape: %+v", tc.name, doc)
		}
	}
}

func TestRun_CanceledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, _ := Run(ctx, stubAdapter{method: schema.MethodPoppler, delay: time.Second}, Request{Path: "x.pdf"}, time.Minute)
	if msg, failed := doc.Error(); !failed || !strings.Contains(msg, "canceled") {
		t.Fatalf("got %q", msg)
	}
}

func TestFinish_FiltersByConfidence(t *testing.T) {
	low, high := 0.5, 0.95
	doc := schema.Document{TextBlocks: []schema.TextBlock{
		{Text: "low", Provenance: provenance.New(schema.MethodPoppler, 1, nil, &low, nil)},
		{Text: "high", Provenance: provenance.New(schema.MethodPoppler, 1, nil, &high, nil)},
		{Text: "none", Provenance: provenance.New(schema.MethodPoppler, 1, nil, nil, nil)},
	}}
	out := Finish(doc, 0, 0.9)
	if out.PageCount != 1 || len(out.TextBlocks) != 2 || out.Tables == nil || out.KeyValues == nil {
		t.Fatalf("finish: %+v", out)
	}
	if out.TextBlocks[0].Text != "high" || out.TextBlocks[1].Text != "none" {
		t.Fatalf("kept wrong blocks: %+v", out.TextBlocks)
	}
}

func TestSelectPages(t *testing.T) {
	if got := SelectPages(nil, 3); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("all: %v", got)
	}
	if got := SelectPages([]int{0, 2, 5}, 3); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("clamped: %v", got)
	}
}
