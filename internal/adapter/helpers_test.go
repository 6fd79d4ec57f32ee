package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jung-kurt/gofpdf"
	openai "github.com/sashabaranov/go-openai"
)

func writePDF(t *testing.T, pages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.pdf")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		pdf.MultiCell(0, 6, text, "", "L", false)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

// fakeRunner answers pdftotext with canned output and emulates pdftoppm by
// writing a small file at <prefix>.png.
type fakeRunner struct {
	mu     sync.Mutex
	stdout map[string][]byte
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	if name == "pdftoppm" {
		prefix := args[len(args)-1]
		page := ""
		for i, a := range args {
			if a == "-f" {
				page = args[i+1]
			}
		}
		if err := os.WriteFile(prefix+".png", []byte("png-page-"+page), 0o644); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}
	return f.stdout[name], nil, nil
}

// fakeChat returns canned completions and counts calls.
type fakeChat struct {
	mu       sync.Mutex
	content  string
	err      error
	calls    int
	requests []openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}}}, nil
}

var errFake = errors.New("fake failure")

func joinArgs(call []string) string { return strings.Join(call, " ") }

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("%q does not contain %q", s, sub)
	}
}

func pageText(n int) string { return fmt.Sprintf("Page %d of the quarterly statement.", n) }
