package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"

    "github.com/hyperifyio/pdfxbench/internal/detect"
    "github.com/hyperifyio/pdfxbench/internal/export"
    "github.com/hyperifyio/pdfxbench/internal/schema"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
    Input  string `yaml:"input" json:"input"`
    OutDir string `yaml:"outDir" json:"outDir"`

    Extract struct {
        Methods       string        `yaml:"methods" json:"methods"`
        Pages         string        `yaml:"pages" json:"pages"`
        OCR           string        `yaml:"ocr" json:"ocr"`
        MinConfidence *float64      `yaml:"minConfidence" json:"minConfidence"`
        Timeout       time.Duration `yaml:"timeout" json:"timeout"`
        Concurrency   int           `yaml:"concurrency" json:"concurrency"`
        AutoLimit     int           `yaml:"autoLimit" json:"autoLimit"`
    } `yaml:"extract" json:"extract"`

    Report struct {
        Format string `yaml:"format" json:"format"`
        PDF    bool   `yaml:"pdf" json:"pdf"`
        XLSX   bool   `yaml:"xlsx" json:"xlsx"`
        Bundle bool   `yaml:"bundle" json:"bundle"`
    } `yaml:"report" json:"report"`

    LLM struct {
        BaseURL string `yaml:"base" json:"base"`
        Model   string `yaml:"model" json:"model"`
        APIKey  string `yaml:"key" json:"key"`
        DPI     int    `yaml:"dpi" json:"dpi"`
    } `yaml:"llm" json:"llm"`

    Cache struct {
        Dir         string        `yaml:"dir" json:"dir"`
        MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
        MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
        Clear       bool          `yaml:"clear" json:"clear"`
        StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
    } `yaml:"cache" json:"cache"`

    Tools struct {
        TesseractLang string `yaml:"tesseractLang" json:"tesseractLang"`
        TesseractDPI  int    `yaml:"tesseractDPI" json:"tesseractDPI"`
        Pdftoppm      string `yaml:"pdftoppm" json:"pdftoppm"`
        Pdftotext     string `yaml:"pdftotext" json:"pdftotext"`
    } `yaml:"tools" json:"tools"`

    ReplayDir string `yaml:"replayDir" json:"replayDir"`
    IndexDSN  string `yaml:"indexDSN" json:"indexDSN"`
    Verbose   bool   `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default, so explicit flags win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if cfg.InputPath == "" && fc.Input != "" { cfg.InputPath = fc.Input }
    if (cfg.OutDir == "" || cfg.OutDir == DefaultOutDir) && fc.OutDir != "" { cfg.OutDir = fc.OutDir }

    if (cfg.Methods == "" || cfg.Methods == DefaultMethods) && fc.Extract.Methods != "" { cfg.Methods = fc.Extract.Methods }
    if cfg.Pages == "" && fc.Extract.Pages != "" { cfg.Pages = fc.Extract.Pages }
    if (cfg.OCRMode == "" || cfg.OCRMode == DefaultOCRMode) && fc.Extract.OCR != "" { cfg.OCRMode = fc.Extract.OCR }
    if cfg.MinConfidence == DefaultMinConfidence && fc.Extract.MinConfidence != nil { cfg.MinConfidence = *fc.Extract.MinConfidence }
    if (cfg.Timeout == 0 || cfg.Timeout == DefaultTimeout) && fc.Extract.Timeout > 0 { cfg.Timeout = fc.Extract.Timeout }
    if (cfg.Concurrency == 0 || cfg.Concurrency == DefaultConcurrency) && fc.Extract.Concurrency > 0 { cfg.Concurrency = fc.Extract.Concurrency }
    if (cfg.AutoLimit == 0 || cfg.AutoLimit == DefaultAutoMethodLimit) && fc.Extract.AutoLimit > 0 { cfg.AutoLimit = fc.Extract.AutoLimit }

    if (cfg.ReportFormat == "" || cfg.ReportFormat == DefaultReportFormat) && fc.Report.Format != "" { cfg.ReportFormat = fc.Report.Format }
    if !cfg.ReportPDF && fc.Report.PDF { cfg.ReportPDF = true }
    if !cfg.ReportXLSX && fc.Report.XLSX { cfg.ReportXLSX = true }
    if !cfg.Bundle && fc.Report.Bundle { cfg.Bundle = true }

    if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" { cfg.LLMBaseURL = fc.LLM.BaseURL }
    if cfg.LLMModel == "" && fc.LLM.Model != "" { cfg.LLMModel = fc.LLM.Model }
    if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" { cfg.LLMAPIKey = fc.LLM.APIKey }
    if (cfg.LLMDPI == 0 || cfg.LLMDPI == DefaultLLMDPI) && fc.LLM.DPI > 0 { cfg.LLMDPI = fc.LLM.DPI }

    if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" { cfg.CacheDir = fc.Cache.Dir }
    if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    if cfg.CacheMaxEntries == 0 && fc.Cache.MaxEntries > 0 { cfg.CacheMaxEntries = fc.Cache.MaxEntries }
    if !cfg.CacheClear && fc.Cache.Clear { cfg.CacheClear = true }
    if !cfg.CacheStrictPerms && fc.Cache.StrictPerms { cfg.CacheStrictPerms = true }

    if (cfg.TesseractLang == "" || cfg.TesseractLang == DefaultTesseractLang) && fc.Tools.TesseractLang != "" { cfg.TesseractLang = fc.Tools.TesseractLang }
    if (cfg.TesseractDPI == 0 || cfg.TesseractDPI == DefaultTesseractDPI) && fc.Tools.TesseractDPI > 0 { cfg.TesseractDPI = fc.Tools.TesseractDPI }
    if cfg.PdftoppmBin == "" && fc.Tools.Pdftoppm != "" { cfg.PdftoppmBin = fc.Tools.Pdftoppm }
    if cfg.PdftotextBin == "" && fc.Tools.Pdftotext != "" { cfg.PdftotextBin = fc.Tools.Pdftotext }

    if cfg.ReplayDir == "" && fc.ReplayDir != "" { cfg.ReplayDir = fc.ReplayDir }
    if cfg.IndexDSN == "" && fc.IndexDSN != "" { cfg.IndexDSN = fc.IndexDSN }
    if !cfg.Verbose && fc.Verbose { cfg.Verbose = true }
}

// ValidateConfig checks the settings the run cannot recover from.
func ValidateConfig(cfg Config) error {
    if trim(cfg.InputPath) == "" {
        return errors.New("config: input path is required")
    }
    if trim(cfg.OutDir) == "" {
        return errors.New("config: output directory is required")
    }
    if _, err := ParseMethods(cfg.Methods); err != nil {
        return fmt.Errorf("config: %w", err)
    }
    if _, err := detect.ParseOCRMode(cfg.OCRMode); err != nil {
        return fmt.Errorf("config: %w", err)
    }
    if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
        return errors.New("config: min confidence must be within [0, 1]")
    }
    switch strings.ToLower(trim(cfg.ReportFormat)) {
    case "", export.ReportMarkdown, export.ReportHTML:
    default:
        return fmt.Errorf("config: unsupported report format %q", cfg.ReportFormat)
    }
    if cfg.Timeout < 0 {
        return errors.New("config: timeout must not be negative")
    }
    if cfg.Concurrency < 0 {
        return errors.New("config: concurrency must not be negative")
    }
    if cfg.CacheMaxEntries < 0 {
        return errors.New("config: cache max entries must not be negative")
    }
    return nil
}

// ParseMethods resolves a comma list of method names. "auto" or an empty
// string yields nil, which means the methods are picked per document.
func ParseMethods(s string) ([]schema.Method, error) {
    s = trim(s)
    if s == "" || strings.EqualFold(s, DefaultMethods) { return nil, nil }
    var out []schema.Method
    seen := map[schema.Method]bool{}
    for _, part := range strings.Split(s, ",") {
        if trim(part) == "" { continue }
        m, err := schema.ParseMethod(part)
        if err != nil { return nil, err }
        if seen[m] { continue }
        seen[m] = true
        out = append(out, m)
    }
    if len(out) == 0 {
        return nil, errors.New("no extraction methods given")
    }
    return out, nil
}

func trim(s string) string { return strings.TrimSpace(s) }
