package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pdfxbench/internal/adapter"
	"github.com/hyperifyio/pdfxbench/internal/cache"
	"github.com/hyperifyio/pdfxbench/internal/detect"
	"github.com/hyperifyio/pdfxbench/internal/export"
	"github.com/hyperifyio/pdfxbench/internal/llm"
	"github.com/hyperifyio/pdfxbench/internal/schema"
	"github.com/hyperifyio/pdfxbench/internal/store"
)

// ErrNoInputs is returned when the input path holds no PDF files. The CLI
// maps it to exit code 2.
var ErrNoInputs = errors.New("no PDF inputs found")

// App runs one benchmark over every PDF below the configured input path.
type App struct {
	cfg      Config
	ocr      detect.OCRMode
	methods  []schema.Method // nil means auto
	registry *adapter.Registry
	client   llm.Client
	llmCache *cache.LLMCache
	index    *store.Store
	timings  *export.Tracker
	now      func() time.Time

	extra []adapter.Adapter
	fixed bool
}

// Option customizes New.
type Option func(*App)

// WithAdapter registers a after the built-in adapters, replacing a built-in
// adapter for the same method. Adapters that need cgo are wired this way.
func WithAdapter(a adapter.Adapter) Option {
	return func(app *App) { app.extra = append(app.extra, a) }
}

// WithRegistry replaces the built-in adapters with r.
func WithRegistry(r *adapter.Registry) Option {
	return func(app *App) {
		app.registry = r
		app.fixed = true
	}
}

// WithLLMClient sets the chat client instead of dialing LLMBaseURL.
func WithLLMClient(c llm.Client) Option {
	return func(app *App) { app.client = c }
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(app *App) { app.now = now }
}

// New validates cfg, applies the cache controls, dials the LLM endpoint when
// a model is configured, registers adapters and opens the results index.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	ocr, err := detect.ParseOCRMode(cfg.OCRMode)
	if err != nil {
		return nil, err
	}
	methods, err := ParseMethods(cfg.Methods)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, ocr: ocr, methods: methods, timings: &export.Tracker{}, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.CacheDir != "" {
		// Apply cache invalidation controls; errors only cost cache hits
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeLLMCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err == nil && n > 0 {
				log.Info().Int("removed", n).Msg("LLM cache entries expired")
			}
		}
		if cfg.CacheMaxEntries > 0 {
			_, _ = cache.EnforceLLMCacheLimits(cfg.CacheDir, 0, cfg.CacheMaxEntries)
		}
		a.llmCache = &cache.LLMCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	if a.client == nil && trim(cfg.LLMModel) != "" {
		a.client = llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, newHighThroughputHTTPClient(cfg.Timeout))
	}
	if a.client != nil && trim(cfg.LLMModel) != "" {
		// Preflight is best-effort: a missing model surfaces later as a
		// failed llm extraction.
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		ok, err := llm.HasModel(pctx, a.client, cfg.LLMModel)
		cancel()
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("LLM model list failed; continuing")
		case !ok:
			log.Warn().Str("model", cfg.LLMModel).Msg("LLM endpoint does not list the configured model")
		}
	}

	if !a.fixed {
		a.registry = adapter.NewRegistry()
		for _, ad := range a.builtinAdapters() {
			a.register(ad)
		}
	}
	for _, ad := range a.extra {
		a.register(ad)
	}
	log.Info().Strs("methods", methodNames(a.registry.Available())).Msg("extraction methods available")

	if cfg.IndexDSN != "" {
		idx, err := store.Open(ctx, cfg.IndexDSN)
		if err != nil {
			return nil, fmt.Errorf("open results index: %w", err)
		}
		a.index = idx
	}
	return a, nil
}

func (a *App) builtinAdapters() []adapter.Adapter {
	runner := adapter.ExecRunner{}
	out := []adapter.Adapter{
		adapter.PDFText{},
		adapter.Poppler{Runner: runner, Bin: a.cfg.PdftotextBin},
	}
	if a.client != nil {
		out = append(out, &adapter.LLM{
			Client: a.client,
			Model:  a.cfg.LLMModel,
			Cache:  a.llmCache,
			Raster: adapter.Rasterizer{Runner: runner, Bin: a.cfg.PdftoppmBin, DPI: a.cfg.LLMDPI},
		})
	}
	if a.cfg.ReplayDir != "" {
		for _, m := range schema.Methods {
			if m.Cloud() {
				out = append(out, adapter.Replay{Dir: a.cfg.ReplayDir, Target: m})
			}
		}
	}
	return out
}

func (a *App) register(ad adapter.Adapter) {
	if err := a.registry.Register(ad); err != nil {
		log.Debug().Str("method", string(ad.Method())).Err(err).Msg("adapter not registered")
	}
}

// Registry exposes the adapters the run can use.
func (a *App) Registry() *adapter.Registry { return a.registry }

// Close releases the results index.
func (a *App) Close() error {
	if a.index == nil {
		return nil
	}
	return a.index.Close()
}

// Run processes every input PDF and writes the summary, manifest and
// checksums. Adapter failures never fail the run; a broken result contract
// or an unwritable output directory does.
func (a *App) Run(ctx context.Context) error {
	pdfs, err := detect.FindPDFs(a.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("find inputs: %w", err)
	}
	if len(pdfs) == 0 {
		return ErrNoInputs
	}
	layout := export.Layout{Root: a.cfg.OutDir}
	if err := layout.Prepare(); err != nil {
		return err
	}

	summary := export.Summary{
		RunID:           uuid.NewString(),
		OutputDirectory: a.cfg.OutDir,
		StartedAt:       a.now().UTC(),
	}
	log.Info().Str("run", summary.RunID).Int("pdfs", len(pdfs)).Str("out", a.cfg.OutDir).Msg("benchmark started")

	var entries []export.ManifestEntry
	ids := export.DocumentIDs{Root: a.cfg.InputPath}
	for i, path := range pdfs {
		if err := ctx.Err(); err != nil {
			return err
		}
		docID := ids.Assign(path)
		ds, err := a.processDocument(ctx, layout, summary.RunID, docID, path)
		if err != nil {
			return err
		}
		summary.Documents = append(summary.Documents, ds)
		if e, err := export.NewManifestEntry(i+1, path, docID, ds.Pages); err == nil {
			entries = append(entries, e)
		} else {
			log.Warn().Str("file", path).Err(err).Msg("manifest digest failed")
		}
	}

	summary.FinishedAt = a.now().UTC()
	summary.ProcessingTime = a.timings.Stats()
	summary.Finalize()
	if err := export.WriteSummary(layout, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := export.WriteManifest(layout, a.manifestMeta(summary, len(entries)), entries); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if a.index != nil {
		run := store.Run{
			ID:             summary.RunID,
			StartedAt:      summary.StartedAt,
			FinishedAt:     summary.FinishedAt,
			TotalPDFs:      summary.TotalPDFs,
			SuccessfulPDFs: summary.SuccessfulPDFs,
			OutputDir:      summary.OutputDirectory,
		}
		if err := a.index.RecordRun(ctx, run); err != nil {
			log.Warn().Err(err).Msg("results index: record run failed")
		}
	}
	if err := export.WriteSHA256SUMS(layout.Root); err != nil {
		return fmt.Errorf("write checksums: %w", err)
	}
	if a.cfg.Bundle {
		out := filepath.Clean(layout.Root) + ".tar.gz"
		if err := export.TarGzDirectory(layout.Root, out); err != nil {
			return fmt.Errorf("bundle outputs: %w", err)
		}
		log.Info().Str("path", out).Msg("output bundle written")
	}

	log.Info().Str("run", summary.RunID).Int("pdfs", summary.TotalPDFs).Int("successful", summary.SuccessfulPDFs).
		Strs("methods", summary.MethodsUsed).Msg("benchmark finished")
	return nil
}

func (a *App) manifestMeta(s export.Summary, docs int) export.ManifestMeta {
	meta := export.ManifestMeta{
		RunID:         s.RunID,
		Methods:       s.MethodsUsed,
		MinConfidence: a.cfg.MinConfidence,
		OCRMode:       string(a.ocr),
		LLMCache:      a.llmCache != nil,
		DocumentCount: docs,
		GeneratedAt:   s.FinishedAt,
		Version:       BuildVersion,
		Commit:        BuildCommit,
	}
	if a.client != nil {
		meta.Model = a.cfg.LLMModel
		meta.LLMBaseURL = a.cfg.LLMBaseURL
	}
	return meta
}

func methodNames(ms []schema.Method) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, string(m))
	}
	return out
}
