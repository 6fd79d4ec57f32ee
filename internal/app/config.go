package app

import "time"

// Defaults shared by the CLI flags and the config file overlay.
const (
	DefaultOutDir        = "output"
	DefaultMethods       = "auto"
	DefaultOCRMode       = "auto"
	DefaultMinConfidence = 0.9
	DefaultReportFormat  = "md"
	DefaultTimeout       = 120 * time.Second
	DefaultConcurrency   = 4
	DefaultCacheDir      = ".pdfxbench-cache"
	DefaultTesseractLang = "eng"
	DefaultTesseractDPI  = 300
	DefaultLLMDPI        = 150
	// DefaultAutoMethodLimit caps the methods auto mode picks per PDF.
	DefaultAutoMethodLimit = 4
)

// Config holds runtime configuration for the application.
type Config struct {
	InputPath string
	OutDir    string

	// Extraction
	Methods       string // "auto" or a comma list
	Pages         string // "1,2,5-7"; empty means all
	OCRMode       string // auto, force or off
	MinConfidence float64
	Timeout       time.Duration
	Concurrency   int
	AutoLimit     int

	// Outputs
	ReportFormat string // md or html
	ReportPDF    bool
	ReportXLSX   bool
	Bundle       bool

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	LLMDPI     int

	// LLM response cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxEntries  int
	CacheClear       bool
	CacheStrictPerms bool

	// External tools and saved vendor responses
	TesseractLang string
	TesseractDPI  int
	PdftoppmBin   string
	PdftotextBin  string
	ReplayDir     string

	// Results index; empty disables it
	IndexDSN string

	Verbose bool
}

// DefaultConfig returns the values the CLI starts from.
func DefaultConfig() Config {
	return Config{
		OutDir:        DefaultOutDir,
		Methods:       DefaultMethods,
		OCRMode:       DefaultOCRMode,
		MinConfidence: DefaultMinConfidence,
		Timeout:       DefaultTimeout,
		Concurrency:   DefaultConcurrency,
		AutoLimit:     DefaultAutoMethodLimit,
		ReportFormat:  DefaultReportFormat,
		LLMDPI:        DefaultLLMDPI,
		CacheDir:      DefaultCacheDir,
		TesseractLang: DefaultTesseractLang,
		TesseractDPI:  DefaultTesseractDPI,
	}
}
