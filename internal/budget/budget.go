// Package budget estimates how much of a model's context a vision request
// uses, so page images can be split across requests that fit.
package budget

import (
    "math"
    "strings"
)

// Image token costs for high-detail images on OpenAI-compatible vision
// models: the image is scaled to fit 2048x2048, then its short side to 768,
// and billed per 512px tile plus a base cost.
const (
    imageBaseTokens = 85
    imageTileTokens = 170
    imageTileSize   = 512
    imageMaxSide    = 2048
    imageShortSide  = 768

    // DefaultImageTokens is used when an image's size is unknown. It is the
    // cost of an A4 page rendered at 150 DPI.
    DefaultImageTokens = 1105
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
    if charCount <= 0 {
        return 0
    }
    return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
    return EstimateTokensFromChars(len(s))
}

// ImageTokens estimates the cost of one high-detail image of the given pixel
// size. Non-positive sizes yield DefaultImageTokens.
func ImageTokens(width, height int) int {
    if width <= 0 || height <= 0 {
        return DefaultImageTokens
    }
    w, h := float64(width), float64(height)
    if s := math.Max(w, h) / imageMaxSide; s > 1 {
        w, h = w/s, h/s
    }
    if s := math.Min(w, h) / imageShortSide; s > 1 {
        w, h = w/s, h/s
    }
    tiles := int(math.Ceil(w/imageTileSize)) * int(math.Ceil(h/imageTileSize))
    return imageBaseTokens + tiles*imageTileTokens
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to a conservative default.
func ModelContextTokens(modelName string) int {
    name := strings.ToLower(strings.TrimSpace(modelName))
    if name == "" {
        return 8192
    }
    if v, ok := knownModelMax[name]; ok {
        return v
    }
    // Heuristics based on common suffixes present in model names
    for _, s := range []struct {
        suffix string
        tokens int
    }{
        {"1m", 1_000_000},
        {"512k", 512_000},
        {"200k", 200_000},
        {"128k", 128_000},
        {"32k", 32_768},
    } {
        if strings.HasSuffix(name, s.suffix) {
            return s.tokens
        }
    }
    if strings.Contains(name, "-mini") {
        // Many "mini" models expose large contexts nowadays, assume 128k.
        return 128_000
    }
    return 8192
}

// RemainingContext computes the remaining input token budget given a model,
// a desired reservation for output generation, and the estimated prompt tokens.
// The result is never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
    return remaining(ModelContextTokens(modelName), reservedForOutput, promptTokens)
}

func remaining(maxCtx, reservedForOutput, promptTokens int) int {
    if reservedForOutput < 0 {
        reservedForOutput = 0
    }
    r := maxCtx - reservedForOutput - promptTokens
    if r < 0 {
        return 0
    }
    return r
}

// HeadroomTokens returns a safety margin for tokenizer and message framing
// overheads: the larger of 5% of the context or 512 tokens.
func HeadroomTokens(contextTokens int) int {
    dyn := int(math.Ceil(float64(contextTokens) * 0.05))
    if dyn < 512 {
        return 512
    }
    return dyn
}

// Plan describes the token budget of one batch of page images.
type Plan struct {
    // ContextTokens overrides the model's estimated context when positive.
    ContextTokens int
    Model         string
    PromptTokens  int
    OutputTokens  int
}

// ImageBudget is what remains for images after the prompt, the output
// reservation and the headroom.
func (p Plan) ImageBudget() int {
    ctx := p.ContextTokens
    if ctx <= 0 {
        ctx = ModelContextTokens(p.Model)
    }
    return remaining(ctx, p.OutputTokens+HeadroomTokens(ctx), p.PromptTokens)
}

// Batches groups consecutive items so each group's cost stays within limit.
// Every group holds at least one item, so an item costlier than limit gets a
// group of its own. It returns index ranges [start, end).
func Batches(costs []int, limit int) [][2]int {
    var out [][2]int
    start, sum := 0, 0
    for i, c := range costs {
        if i > start && sum+c > limit {
            out = append(out, [2]int{start, i})
            start, sum = i, 0
        }
        sum += c
    }
    if start < len(costs) {
        out = append(out, [2]int{start, len(costs)})
    }
    return out
}

// knownModelMax contains rough context sizes for common vision-capable model
// identifiers. These are best-effort and do not need to be exhaustive.
var knownModelMax = map[string]int{
    // OpenAI family (approximate)
    "gpt-4o":       128_000,
    "gpt-4o-mini":  128_000,
    "gpt-4-turbo":  128_000,
    "gpt-4.1":      1_000_000,
    "gpt-4.1-mini": 1_000_000,

    // Anthropic (approximate)
    "claude-3-5-sonnet": 200_000,
    "claude-3-opus":     200_000,
    "claude-3-haiku":    200_000,

    // Google
    "gemini-1.5-pro":   1_000_000,
    "gemini-1.5-flash": 1_000_000,

    // Open-weight vision models commonly served behind OpenAI-compatible APIs
    "llava":            4_096,
    "llama-3.2-vision": 128_000,
    "qwen2-vl":         32_768,
    "qwen2.5-vl":       128_000,
    "minicpm-v":        8_192,
}
