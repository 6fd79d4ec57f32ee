// Command openai-stub serves a minimal OpenAI-compatible API that answers
// page-image extraction requests with a fixed document per page, for running
// the llm extraction method without a model server.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var pagesLine = regexp.MustCompile(`images are pages ([0-9, ]+)`)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func newMux(model string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		text, images := flatten(req)
		if images == 0 {
			http.Error(w, "expected page images", http.StatusBadRequest)
			return
		}
		pages := pageNumbers(text, images)
		b, _ := json.Marshal(cannedExtraction(pages))
		log.Debug().Int("images", images).Ints("pages", pages).Msg("extraction request")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "stub-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": string(b)}},
			},
		})
	})
	return mux
}

// flatten joins the text parts of every message and counts image parts.
// Plain string content is accepted too.
func flatten(req chatRequest) (string, int) {
	var sb strings.Builder
	images := 0
	for _, m := range req.Messages {
		var s string
		if json.Unmarshal(m.Content, &s) == nil {
			sb.WriteString(s)
			continue
		}
		var parts []contentPart
		if json.Unmarshal(m.Content, &parts) != nil {
			continue
		}
		for _, p := range parts {
			switch p.Type {
			case "text":
				sb.WriteString(p.Text)
				sb.WriteByte('\n')
			case "image_url":
				images++
			}
		}
	}
	return sb.String(), images
}

// pageNumbers reads the page list from the prompt, falling back to 1..n.
func pageNumbers(prompt string, n int) []int {
	var out []int
	if m := pagesLine.FindStringSubmatch(prompt); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			if p, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
				out = append(out, p)
			}
		}
	}
	if len(out) != n {
		out = out[:0]
		for i := 1; i <= n; i++ {
			out = append(out, i)
		}
	}
	return out
}

func cannedExtraction(pages []int) map[string]any {
	var blocks, tables, kvs []map[string]any
	for _, p := range pages {
		blocks = append(blocks,
			map[string]any{"text": "Page " + strconv.Itoa(p) + " heading", "page": p, "type": "heading"},
			map[string]any{"text": "[UNCLEAR]", "page": p, "type": "other"},
		)
		tables = append(tables, map[string]any{
			"table_id": "table_" + strconv.Itoa(p),
			"page":     p,
			"headers":  []string{"Item", "Amount"},
			"rows":     [][]any{{"Widgets", 120}, {"Gadgets", "80.50"}, {"Total", 200.5}},
		})
		kvs = append(kvs, map[string]any{"key": "Page", "value": p, "page": p})
	}
	return map[string]any{"text_blocks": blocks, "tables": tables, "key_values": kvs}
}
