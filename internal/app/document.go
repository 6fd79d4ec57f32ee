package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/pdfxbench/internal/adapter"
	"github.com/hyperifyio/pdfxbench/internal/compare"
	"github.com/hyperifyio/pdfxbench/internal/detect"
	"github.com/hyperifyio/pdfxbench/internal/export"
	"github.com/hyperifyio/pdfxbench/internal/normalize"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// extraction is one adapter call after normalization.
type extraction struct {
	result     schema.ExtractionResult
	quarantine []schema.QuarantineEntry
}

// processDocument benchmarks one PDF. Problems with the PDF itself are
// recorded in the returned summary; only a broken result contract or a
// failed write is returned as an error. The report and quarantine file are
// written even when nothing could be extracted.
func (a *App) processDocument(ctx context.Context, l export.Layout, runID, docID, path string) (export.DocumentSummary, error) {
	ds := export.DocumentSummary{
		DocumentID:    docID,
		File:          path,
		MethodsUsed:   []string{},
		FailedMethods: []string{},
	}
	logger := log.With().Str("doc", docID).Logger()
	start := time.Now()
	defer func() { a.timings.Record("document", time.Since(start).Seconds()) }()

	var (
		extractions []extraction
		docErr      error
	)
	info, err := detect.Inspect(path)
	if err == nil {
		ds.Pages = info.PageCount
		ds.Scanned = info.IsScanned
		extractions, docErr = a.extractAll(ctx, docID, path, info)
	} else {
		docErr = fmt.Errorf("inspect: %w", err)
	}
	if docErr != nil {
		ds.Error = docErr.Error()
		logger.Warn().Err(docErr).Msg("document skipped")
	}

	results := make([]schema.ExtractionResult, 0, len(extractions))
	var quarantine []schema.QuarantineEntry
	for _, ex := range extractions {
		results = append(results, ex.result)
		quarantine = append(quarantine, ex.quarantine...)
		ds.MethodsUsed = append(ds.MethodsUsed, string(ex.result.Method))
		if !ex.result.Success {
			ds.FailedMethods = append(ds.FailedMethods, string(ex.result.Method))
		}
	}

	cmpStart := time.Now()
	comparison, err := compare.Compare(results)
	if err != nil {
		return ds, fmt.Errorf("%s: %w", docID, err)
	}
	a.timings.Record("compare", time.Since(cmpStart).Seconds())
	ds.BestOverall = string(comparison.BestOverall)
	ds.BestTables = string(comparison.BestTables)
	ds.BestText = string(comparison.BestText)
	ds.Quarantined = len(quarantine)

	for _, res := range results {
		if _, err := export.ExportResult(l, res, docID); err != nil {
			return ds, fmt.Errorf("%s: export %s: %w", docID, res.Method, err)
		}
	}
	if _, err := export.WriteQuarantine(l, docID, quarantine); err != nil {
		return ds, fmt.Errorf("%s: %w", docID, err)
	}
	opts := export.ReportOptions{Format: a.cfg.ReportFormat, PDF: a.cfg.ReportPDF, Now: a.now}
	if _, err := export.WriteReports(l, docID, comparison, opts); err != nil {
		return ds, fmt.Errorf("%s: %w", docID, err)
	}
	if a.cfg.ReportXLSX && len(results) > 0 {
		if err := export.WriteTablesXLSX(l.TablesWorkbookPath(docID), results); err != nil {
			logger.Warn().Err(err).Msg("tables workbook failed")
		}
	}
	if a.index != nil && !comparison.Empty() {
		if err := a.index.RecordScores(ctx, runID, docID, comparison); err != nil {
			logger.Warn().Err(err).Msg("results index: record scores failed")
		}
	}

	logger.Info().Int("methods", comparison.TotalMethods).Str("best", ds.BestOverall).
		Int("quarantined", ds.Quarantined).Msg("document benchmarked")
	return ds, nil
}

// extractAll runs every selected adapter concurrently and normalizes each
// document independently. Results keep the order of the selected methods.
func (a *App) extractAll(ctx context.Context, docID, path string, info detect.Info) ([]extraction, error) {
	methods, err := a.selectMethods(info)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, errors.New("no extraction methods available")
	}
	pages, err := detect.ParsePageRange(a.cfg.Pages, info.PageCount)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.cfg.Pages) == "" {
		pages = nil
	}
	req := adapter.Request{DocumentID: docID, Path: path, Pages: pages, MinConfidence: a.cfg.MinConfidence}

	out := make([]extraction, len(methods))
	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Concurrency > 0 {
		g.SetLimit(a.cfg.Concurrency)
	}
	for i, m := range methods {
		ad, err := a.registry.Lookup(m)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			doc, elapsed := adapter.Run(gctx, ad, req, a.cfg.Timeout)
			secs := elapsed.Seconds()
			a.timings.Record(string(m), secs)
			errMsg, failed := doc.Error()
			res, q := normalize.New().NormalizeResult(doc, m, secs, !failed, errMsg)
			out[i] = extraction{result: res, quarantine: q}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// selectMethods applies the OCR decision and the registry to the configured
// methods, or to the recommended ones in auto mode.
func (a *App) selectMethods(info detect.Info) ([]schema.Method, error) {
	useOCR, err := detect.ShouldUseOCR(info, a.ocr)
	if err != nil {
		return nil, err
	}
	auto := a.methods == nil
	wanted := a.methods
	if auto {
		wanted = detect.RecommendedMethods(info)
	}

	var out []schema.Method
	hasOCR := false
	for _, m := range wanted {
		if m == schema.MethodTesseract {
			if !useOCR {
				log.Debug().Str("file", filepath.Base(info.Path)).Msg("OCR disabled for document")
				continue
			}
			hasOCR = true
		}
		out = append(out, m)
	}
	if auto && useOCR && !hasOCR {
		out = append([]schema.Method{schema.MethodTesseract}, out...)
	}

	available, missing := a.registry.Filter(out)
	if len(missing) > 0 {
		lvl := log.Warn()
		if auto {
			lvl = log.Debug()
		}
		lvl.Strs("methods", methodNames(missing)).Msg("methods unavailable")
	}
	if auto && a.cfg.AutoLimit > 0 && len(available) > a.cfg.AutoLimit {
		available = available[:a.cfg.AutoLimit]
	}
	return available, nil
}
