package app

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
    if cfg == nil { return }

    setString := func(dst *string, envKey string) {
        if *dst == "" { *dst = os.Getenv(envKey) }
    }
    setString(&cfg.InputPath, "PDFX_INPUT")
    setString(&cfg.OutDir, "PDFX_OUT_DIR")
    setString(&cfg.Methods, "PDFX_METHODS")
    setString(&cfg.Pages, "PDFX_PAGES")
    setString(&cfg.OCRMode, "PDFX_OCR")
    setString(&cfg.ReportFormat, "PDFX_REPORT")
    setString(&cfg.IndexDSN, "PDFX_INDEX_DSN")
    setString(&cfg.ReplayDir, "PDFX_REPLAY_DIR")
    setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
    setString(&cfg.LLMModel, "LLM_MODEL")
    setString(&cfg.LLMAPIKey, "LLM_API_KEY")
    setString(&cfg.CacheDir, "CACHE_DIR")

    if cfg.MinConfidence == 0 {
        if v, ok := envFloat("PDFX_MIN_CONFIDENCE"); ok { cfg.MinConfidence = v }
    }
    if cfg.Timeout == 0 {
        if d, ok := envDuration("PDFX_TIMEOUT"); ok { cfg.Timeout = d }
    }
    if cfg.Concurrency == 0 {
        if n, ok := envInt("PDFX_CONCURRENCY"); ok { cfg.Concurrency = n }
    }
    if cfg.CacheMaxAge == 0 {
        if d, ok := envDuration("CACHE_MAX_AGE"); ok { cfg.CacheMaxAge = d }
    }

    // Booleans
    setBool := func(dst *bool, envKey string) {
        if *dst { return }
        if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
            if s == "1" || s == "true" || s == "yes" || s == "on" {
                *dst = true
            }
        }
    }
    setBool(&cfg.Verbose, "VERBOSE")
    setBool(&cfg.CacheClear, "CACHE_CLEAR")
    setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
    if cfg == nil { return }

    if v := os.Getenv("PDFX_INPUT"); v != "" { cfg.InputPath = v }
    if v := os.Getenv("PDFX_OUT_DIR"); v != "" { cfg.OutDir = v }
    if v := os.Getenv("PDFX_METHODS"); v != "" { cfg.Methods = v }
    if v := os.Getenv("PDFX_PAGES"); v != "" { cfg.Pages = v }
    if v := os.Getenv("PDFX_OCR"); v != "" { cfg.OCRMode = v }
    if v := os.Getenv("PDFX_REPORT"); v != "" { cfg.ReportFormat = v }
    if v := os.Getenv("PDFX_INDEX_DSN"); v != "" { cfg.IndexDSN = v }
    if v := os.Getenv("PDFX_REPLAY_DIR"); v != "" { cfg.ReplayDir = v }

    if v := os.Getenv("LLM_BASE_URL"); v != "" { cfg.LLMBaseURL = v }
    if v := os.Getenv("LLM_MODEL"); v != "" { cfg.LLMModel = v }
    if v := os.Getenv("LLM_API_KEY"); v != "" { cfg.LLMAPIKey = v }
    if v := os.Getenv("CACHE_DIR"); v != "" { cfg.CacheDir = v }

    if v, ok := envFloat("PDFX_MIN_CONFIDENCE"); ok { cfg.MinConfidence = v }
    if d, ok := envDuration("PDFX_TIMEOUT"); ok { cfg.Timeout = d }
    if n, ok := envInt("PDFX_CONCURRENCY"); ok { cfg.Concurrency = n }
    if d, ok := envDuration("CACHE_MAX_AGE"); ok { cfg.CacheMaxAge = d }

    // Booleans override when env present and truthy/falsey
    setBool := func(dst *bool, envKey string) {
        if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
            switch s {
            case "1", "true", "yes", "on":
                *dst = true
            case "0", "false", "no", "off":
                *dst = false
            }
        }
    }
    setBool(&cfg.Verbose, "VERBOSE")
    setBool(&cfg.CacheClear, "CACHE_CLEAR")
    setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}

func envFloat(key string) (float64, bool) {
    s := strings.TrimSpace(os.Getenv(key))
    if s == "" { return 0, false }
    v, err := strconv.ParseFloat(s, 64)
    return v, err == nil
}

func envInt(key string) (int, bool) {
    s := strings.TrimSpace(os.Getenv(key))
    if s == "" { return 0, false }
    n, err := strconv.Atoi(s)
    return n, err == nil && n > 0
}

func envDuration(key string) (time.Duration, bool) {
    s := strings.TrimSpace(os.Getenv(key))
    if s == "" { return 0, false }
    d, err := time.ParseDuration(s)
    return d, err == nil && d > 0
}
