// Command pdfxbench runs several PDF extraction methods over the same
// documents, normalizes their output and writes per-document quality
// comparisons.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/app"
)

// cliOptions are the flags that steer the CLI itself rather than the run.
type cliOptions struct {
	configPath string
	envFiles   string
	logLevel   string
	logJSON    bool
	version    bool
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stderr))
}

func realMain(args []string, stderr io.Writer) int {
	// Dotenv files feed the env-backed settings below; missing files are fine.
	_ = app.LoadEnvFiles(".env")

	cfg, opts, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	setupLogging(stderr, opts, cfg.Verbose)
	if opts.version {
		fmt.Fprintln(stderr, app.VersionString())
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		// Exit code policy: 2 when there was nothing to benchmark, 1 otherwise.
		if errors.Is(err, app.ErrNoInputs) {
			return 2
		}
		return 1
	}
	return 0
}

// parseConfig resolves settings with precedence flags > env > config file >
// defaults. The flag set is parsed a second time after the overlays so that
// explicit flags win.
func parseConfig(args []string, stderr io.Writer) (app.Config, cliOptions, error) {
	cfg := app.DefaultConfig()
	var opts cliOptions
	fs := newFlagSet(&cfg, &opts)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if opts.envFiles != "" {
		if err := app.LoadEnvFiles(strings.Split(opts.envFiles, ",")...); err != nil {
			return cfg, opts, fmt.Errorf("load env files: %w", err)
		}
	}
	if opts.configPath != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return cfg, opts, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if cfg.InputPath == "" && fs.NArg() > 0 {
		cfg.InputPath = fs.Arg(0)
	}
	return cfg, opts, nil
}

func newFlagSet(cfg *app.Config, opts *cliOptions) *flag.FlagSet {
	fs := flag.NewFlagSet("pdfxbench", flag.ContinueOnError)

	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, "PDF file or directory of PDFs (or first positional argument)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory")
	fs.StringVar(&cfg.Methods, "methods", cfg.Methods, "Comma-separated extraction methods, or 'auto'")
	fs.StringVar(&cfg.Pages, "pages", cfg.Pages, "Pages to extract, e.g. '1,2,5-7'; empty means all")
	fs.StringVar(&cfg.OCRMode, "ocr", cfg.OCRMode, "OCR mode: auto, force or off")
	fs.Float64Var(&cfg.MinConfidence, "min.confidence", cfg.MinConfidence, "Drop items whose confidence is below this value (0 keeps everything)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-method extraction timeout")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Methods run in parallel per PDF")
	fs.IntVar(&cfg.AutoLimit, "auto.limit", cfg.AutoLimit, "Maximum methods picked per PDF in auto mode (0 = no limit)")

	fs.StringVar(&cfg.ReportFormat, "report", cfg.ReportFormat, "Comparison report format: md or html")
	fs.BoolVar(&cfg.ReportPDF, "report.pdf", cfg.ReportPDF, "Also render the comparison report as PDF")
	fs.BoolVar(&cfg.ReportXLSX, "report.xlsx", cfg.ReportXLSX, "Write a tables workbook per PDF")
	fs.BoolVar(&cfg.Bundle, "bundle", cfg.Bundle, "Pack the output directory into <out>.tar.gz")

	fs.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Vision model name; empty disables the llm method")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "API key for the OpenAI-compatible server")
	fs.IntVar(&cfg.LLMDPI, "llm.dpi", cfg.LLMDPI, "Render resolution for pages sent to the model")

	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "LLM response cache directory; empty disables caching")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cache entries older than this (0 disables)")
	fs.IntVar(&cfg.CacheMaxEntries, "cache.maxEntries", cfg.CacheMaxEntries, "Keep at most this many cached responses (0 disables)")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear the cache directory before the run")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")

	fs.StringVar(&cfg.TesseractLang, "tesseract.lang", cfg.TesseractLang, "Tesseract languages, e.g. 'eng+fin'")
	fs.IntVar(&cfg.TesseractDPI, "tesseract.dpi", cfg.TesseractDPI, "Render resolution for OCR")
	fs.StringVar(&cfg.PdftoppmBin, "pdftoppm", cfg.PdftoppmBin, "pdftoppm binary (default from PATH)")
	fs.StringVar(&cfg.PdftotextBin, "pdftotext", cfg.PdftotextBin, "pdftotext binary (default from PATH)")
	fs.StringVar(&cfg.ReplayDir, "replay.dir", cfg.ReplayDir, "Directory of saved cloud responses <doc>.<method>.json")
	fs.StringVar(&cfg.IndexDSN, "index.dsn", cfg.IndexDSN, "Results index: SQLite path or postgres:// URL")

	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&opts.logLevel, "log.level", "", "Log level: debug, info, warn or error (overrides -v)")
	fs.BoolVar(&opts.logJSON, "log.json", false, "Emit JSON log lines instead of console output")
	fs.StringVar(&opts.configPath, "config", os.Getenv("PDFX_CONFIG"), "YAML or JSON config file")
	fs.StringVar(&opts.envFiles, "env", "", "Comma-separated dotenv files to load")
	fs.BoolVar(&opts.version, "version", false, "Print build information and exit")
	return fs
}

func setupLogging(w io.Writer, opts cliOptions, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if opts.logJSON {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if opts.logLevel != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(opts.logLevel)); err == nil {
			level = l
		} else {
			log.Warn().Str("level", opts.logLevel).Msg("unknown log level; keeping default")
		}
	}
	zerolog.SetGlobalLevel(level)
}

func run(ctx context.Context, cfg app.Config, extra ...app.Option) error {
	app.ApplyEnvToConfig(&cfg)
	opts := append(ocrOptions(cfg), extra...)
	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
