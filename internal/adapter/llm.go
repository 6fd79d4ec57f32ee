package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pdfxbench/internal/budget"
	"github.com/hyperifyio/pdfxbench/internal/cache"
	"github.com/hyperifyio/pdfxbench/internal/llm"
	"github.com/hyperifyio/pdfxbench/internal/provenance"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

const (
	// DefaultLLMConfidence is attached to every item a vision model returns;
	// models report no per-item confidence.
	DefaultLLMConfidence = 0.8
	// DefaultLLMDPI keeps page images small enough for one request.
	DefaultLLMDPI = 150

	unclearMarker    = "[UNCLEAR]"
	defaultMaxTokens = 4000
)

const extractionPrompt = `You are a precise PDF data extraction system. Extract ALL text, tables, and key-value pairs from the attached page images.

CRITICAL RULES:
1. NEVER invent or guess data - only extract what you can clearly see
2. If text is unclear or unreadable, mark it as "[UNCLEAR]"
3. Preserve exact formatting and spacing
4. Extract tables with precise row/column structure
5. Identify key-value pairs (labels and their values)

Return a JSON object with this exact structure:
{
  "text_blocks": [{"text": "exact text content", "page": 1, "type": "paragraph|heading|caption|other"}],
  "tables": [{"table_id": "table_1", "page": 1, "headers": ["header1", "header2"], "rows": [["cell1", "cell2"]]}],
  "key_values": [{"key": "Invoice Number", "value": "12345", "page": 1}]
}

Extract everything visible in the document. Be thorough and accurate.`

var llmResponseSchema = &jsonSchema{
	name: "llm_extraction.json",
	source: obj(map[string]any{
		"text_blocks": arrayOf(obj(map[string]any{
			"text": jsonString,
			"page": jsonInteger,
			"type": jsonString,
		}, "text")),
		"tables": arrayOf(obj(map[string]any{
			"table_id": jsonString,
			"page":     jsonInteger,
			"headers":  arrayOf(jsonScalar),
			"rows":     map[string]any{"type": "array", "items": arrayOf(jsonScalar)},
		}, "rows")),
		"key_values": arrayOf(obj(map[string]any{
			"key":   jsonString,
			"value": jsonScalar,
			"page":  jsonInteger,
		}, "key")),
	}),
}

type llmPayload struct {
	TextBlocks []struct {
		Text string `json:"text"`
		Page int    `json:"page"`
		Type string `json:"type"`
	} `json:"text_blocks"`
	Tables []struct {
		TableID string  `json:"table_id"`
		Page    int     `json:"page"`
		Headers []any   `json:"headers"`
		Rows    [][]any `json:"rows"`
	} `json:"tables"`
	KeyValues []struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
		Page  int    `json:"page"`
	} `json:"key_values"`
}

// LLM sends rendered pages to an OpenAI-compatible vision model and maps
// its JSON answer onto the document model. Nothing it returns has geometry.
type LLM struct {
	Client     llm.Client
	Model      string
	Cache      *cache.LLMCache
	Raster     Rasterizer
	Confidence float64
	MaxTokens  int

	// ContextTokens overrides the estimated context window of Model. Pages
	// that do not fit in one request are sent in several.
	ContextTokens int
}

func (a *LLM) Method() schema.Method { return schema.MethodLLM }

// Probe requires a client, a model name and the rasterizer.
func (a *LLM) Probe() error {
	if a.Client == nil {
		return errors.New("no LLM client configured")
	}
	if strings.TrimSpace(a.Model) == "" {
		return errors.New("no LLM model configured")
	}
	return a.Raster.Probe()
}

func (a *LLM) maxTokens() int {
	if a.MaxTokens > 0 {
		return a.MaxTokens
	}
	return defaultMaxTokens
}

func (a *LLM) confidence() float64 {
	if a.Confidence > 0 {
		return a.Confidence
	}
	return DefaultLLMConfidence
}

func (a *LLM) Extract(ctx context.Context, pdfPath string, pages []int, minConfidence float64) (schema.Document, error) {
	total, err := PageCount(pdfPath)
	if err != nil {
		return schema.Document{}, err
	}
	sel := SelectPages(pages, total)
	if len(sel) == 0 {
		return schema.Document{}, fmt.Errorf("no pages selected")
	}

	tmp, err := os.MkdirTemp("", "pdfxbench-llm-*")
	if err != nil {
		return schema.Document{}, err
	}
	defer os.RemoveAll(tmp)
	raster := a.Raster
	if raster.DPI <= 0 {
		raster.DPI = DefaultLLMDPI
	}
	images, err := raster.Render(ctx, pdfPath, sel, tmp)
	if err != nil {
		return schema.Document{}, err
	}
	pngs := make([][]byte, 0, len(images))
	costs := make([]int, 0, len(images))
	pageNums := make([]int, 0, len(images))
	for _, img := range images {
		b, err := os.ReadFile(img.Path)
		if err != nil {
			return schema.Document{}, err
		}
		pngs = append(pngs, b)
		costs = append(costs, imageCost(b))
		pageNums = append(pageNums, img.Page)
	}

	plan := budget.Plan{
		ContextTokens: a.ContextTokens,
		Model:         a.Model,
		PromptTokens:  budget.EstimateTokens(pagePrompt(pageNums)),
		OutputTokens:  a.maxTokens(),
	}
	batches := budget.Batches(costs, plan.ImageBudget())
	var doc schema.Document
	allCached := true
	for _, r := range batches {
		part, cached, err := a.extractBatch(ctx, pageNums[r[0]:r[1]], pngs[r[0]:r[1]])
		if err != nil {
			if len(batches) > 1 {
				err = fmt.Errorf("pages %s: %w", joinInts(pageNums[r[0]:r[1]]), err)
			}
			return schema.Document{}, err
		}
		doc.TextBlocks = append(doc.TextBlocks, part.TextBlocks...)
		doc.Tables = append(doc.Tables, part.Tables...)
		doc.KeyValues = append(doc.KeyValues, part.KeyValues...)
		allCached = allCached && cached
	}

	doc.ExtractionMetadata = map[string]any{
		"method":  string(schema.MethodLLM),
		"model":   a.Model,
		"pages":   len(sel),
		"batches": len(batches),
		"cached":  allCached,
	}
	return Finish(doc, total, minConfidence), nil
}

// extractBatch sends one group of page images and converts the answer.
func (a *LLM) extractBatch(ctx context.Context, pages []int, pngs [][]byte) (schema.Document, bool, error) {
	prompt := pagePrompt(pages)
	key := cache.KeyFrom(a.Model, prompt, pngs...)
	content, cached, err := a.complete(ctx, key, prompt, pngs)
	if err != nil {
		return schema.Document{}, false, err
	}
	var payload llmPayload
	if err := llmResponseSchema.Decode([]byte(content), &payload); err != nil {
		return schema.Document{}, false, fmt.Errorf("llm response: %w", err)
	}
	// only validated answers are cached
	if a.Cache != nil && !cached {
		if err := a.Cache.Save(ctx, key, []byte(content)); err != nil {
			log.Warn().Err(err).Msg("llm cache save failed")
		}
	}
	return a.convert(payload, pages), cached, nil
}

func pagePrompt(pages []int) string {
	return extractionPrompt + "\n\nThe images are pages " + joinInts(pages) + " of the document, in that order. Use these page numbers."
}

// imageCost estimates the tokens of one PNG from its pixel size.
func imageCost(b []byte) int {
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return budget.DefaultImageTokens
	}
	return budget.ImageTokens(cfg.Width, cfg.Height)
}

// complete returns the model answer, from the cache when possible.
func (a *LLM) complete(ctx context.Context, key, prompt string, pngs [][]byte) (string, bool, error) {
	if a.Cache != nil {
		if b, ok, err := a.Cache.Get(ctx, key); err == nil && ok {
			log.Debug().Str("method", string(schema.MethodLLM)).Str("key", key[:12]).Msg("llm cache hit")
			return string(b), true, nil
		}
	}

	parts := make([]openai.ChatMessagePart, 0, len(pngs)+1)
	for _, b := range pngs {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(b),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: prompt})

	resp, err := a.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          a.Model,
		Messages:       []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, MultiContent: parts}},
		MaxTokens:      a.maxTokens(),
		Temperature:    0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", false, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", false, errors.New("chat completion returned no choices")
	}
	return stripCodeFence(resp.Choices[0].Message.Content), false, nil
}

func (a *LLM) convert(p llmPayload, sel []int) schema.Document {
	conf := a.confidence()
	pageOf := func(n int) int {
		for _, s := range sel {
			if s == n {
				return n
			}
		}
		return sel[0]
	}
	prov := func(page int, raw map[string]any) *schema.Provenance {
		raw["model"] = a.Model
		return provenance.New(schema.MethodLLM, page, nil, &conf, raw)
	}

	var doc schema.Document
	for _, b := range p.TextBlocks {
		text := strings.TrimSpace(b.Text)
		if text == "" || text == unclearMarker {
			continue
		}
		blockType := b.Type
		if blockType == "" {
			blockType = "text"
		}
		doc.TextBlocks = append(doc.TextBlocks, schema.TextBlock{
			Text:       text,
			Provenance: prov(pageOf(b.Page), map[string]any{"block_type": blockType}),
		})
	}

	for i, t := range p.Tables {
		if len(t.Rows) == 0 {
			continue
		}
		id := t.TableID
		if id == "" {
			id = "llm_table_" + strconv.Itoa(i+1)
		}
		page := pageOf(t.Page)
		var cells []schema.TableCell
		for col, h := range t.Headers {
			text := scalarText(h)
			cells = append(cells, schema.NewCell(text, 0, col, true, prov(page, map[string]any{"table_id": id, "is_header": true})))
		}
		start := 0
		if len(t.Headers) > 0 {
			start = 1
		}
		width := len(t.Headers)
		for r, row := range t.Rows {
			if len(row) > width {
				width = len(row)
			}
			for col, v := range row {
				text := scalarText(v)
				if text == "" || text == unclearMarker {
					continue
				}
				cells = append(cells, schema.NewCell(text, start+r, col, false, prov(page, map[string]any{"table_id": id, "is_header": false})))
			}
		}
		if len(cells) == 0 {
			continue
		}
		doc.Tables = append(doc.Tables, schema.Table{
			TableID: id,
			Cells:   cells,
			Provenance: provenance.New(schema.MethodLLM, page, nil, nil, map[string]any{
				"model":      a.Model,
				"table_id":   id,
				"total_rows": len(t.Rows) + start,
				"total_cols": width,
			}),
		})
	}

	for _, kv := range p.KeyValues {
		key := strings.TrimSpace(kv.Key)
		if key == "" || key == unclearMarker {
			continue
		}
		value := scalarText(kv.Value)
		if value == unclearMarker {
			value = ""
		}
		doc.KeyValues = append(doc.KeyValues, schema.KeyValue{
			Key:        key,
			Value:      value,
			Provenance: prov(pageOf(kv.Page), map[string]any{"extraction_type": "key_value"}),
		})
	}
	return doc
}

// scalarText renders a JSON scalar the model used for a cell.
func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// stripCodeFence removes a ```json fence some models add despite the
// response format.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
