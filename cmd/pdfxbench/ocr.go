//go:build !notesseract

package main

import (
	"github.com/hyperifyio/pdfxbench/internal/adapter"
	"github.com/hyperifyio/pdfxbench/internal/adapter/tesseract"
	"github.com/hyperifyio/pdfxbench/internal/app"
)

// ocrOptions registers the Tesseract adapter. Build with -tags notesseract
// to drop the cgo dependency on libtesseract.
func ocrOptions(cfg app.Config) []app.Option {
	raster := adapter.Rasterizer{Runner: adapter.ExecRunner{}, Bin: cfg.PdftoppmBin, DPI: cfg.TesseractDPI}
	langs := splitLangs(cfg.TesseractLang)
	return []app.Option{app.WithAdapter(tesseract.New(raster, langs...))}
}
