package budget

import (
    "reflect"
    "testing"
)

func TestEstimateTokensFromChars(t *testing.T) {
    cases := []struct{
        in int
        want int
    }{
        {0, 0},
        {1, 1},           // ceil(1/4)=1
        {3, 1},           // ceil(3/4)=1
        {4, 1},           // ceil(4/4)=1
        {5, 2},           // ceil(5/4)=2
        {400, 100},
    }
    for _, c := range cases {
        got := EstimateTokensFromChars(c.in)
        if got != c.want {
            t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
        }
    }
}

func TestImageTokens(t *testing.T) {
    cases := []struct{
        w, h int
        want int
    }{
        {1240, 1754, 1105}, // A4 at 150 DPI -> 768x1086 -> 2x3 tiles
        {512, 512, 255},    // one tile
        {4096, 8192, 1105}, // 1024x2048 -> 768x1536 -> 2x3 tiles
        {0, 100, DefaultImageTokens},
    }
    for _, c := range cases {
        if got := ImageTokens(c.w, c.h); got != c.want {
            t.Fatalf("ImageTokens(%d, %d) = %d, want %d", c.w, c.h, got, c.want)
        }
    }
}

func TestModelContextTokens(t *testing.T) {
    if ModelContextTokens("") != 8192 {
        t.Fatal("empty model should default to 8192")
    }
    if ModelContextTokens("gpt-4o") < 100_000 {
        t.Fatal("gpt-4o should be large (~128k)")
    }
    if ModelContextTokens("QWEN2.5-VL") != 128_000 {
        t.Fatal("lookup should be case-insensitive")
    }
    if ModelContextTokens("mystery-512k") != 512_000 {
        t.Fatal("numeric suffix heuristic 512k should map to 512k tokens")
    }
}

func TestRemainingContext(t *testing.T) {
    max := ModelContextTokens("gpt-4o")
    if rem := RemainingContext("gpt-4o", 2000, max/2); rem <= 0 {
        t.Fatalf("remaining should be positive, got %d", rem)
    }
    if rem := RemainingContext("gpt-4o", 1, max); rem != 0 {
        t.Fatalf("remaining should clamp at 0 on overflow, got %d", rem)
    }
}

func TestHeadroomTokens(t *testing.T) {
    if HeadroomTokens(8192) != 512 { // 5% of 8192 is 410, below the floor
        t.Fatalf("small context headroom should floor to 512")
    }
    if HeadroomTokens(128_000) != 6400 {
        t.Fatalf("large context headroom should be 5%%")
    }
}

func TestPlanImageBudget(t *testing.T) {
    p := Plan{ContextTokens: 10_000, PromptTokens: 500, OutputTokens: 4000}
    if got := p.ImageBudget(); got != 10_000-4000-512-500 {
        t.Fatalf("ImageBudget() = %d", got)
    }
    if got := (Plan{Model: "unknown-model", PromptTokens: 9000}).ImageBudget(); got != 0 {
        t.Fatalf("overflow should clamp to 0, got %d", got)
    }
}

func TestBatches(t *testing.T) {
    cases := []struct{
        costs []int
        limit int
        want  [][2]int
    }{
        {nil, 10, nil},
        {[]int{3, 3, 3, 3}, 6, [][2]int{{0, 2}, {2, 4}}},
        {[]int{3, 3, 3}, 100, [][2]int{{0, 3}}},
        {[]int{20, 1, 1}, 5, [][2]int{{0, 1}, {1, 3}}},
        {[]int{4, 4}, 0, [][2]int{{0, 1}, {1, 2}}},
    }
    for _, c := range cases {
        if got := Batches(c.costs, c.limit); !reflect.DeepEqual(got, c.want) {
            t.Fatalf("Batches(%v, %d) = %v, want %v", c.costs, c.limit, got, c.want)
        }
    }
}
