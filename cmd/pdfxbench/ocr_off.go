//go:build notesseract

package main

import "github.com/hyperifyio/pdfxbench/internal/app"

func ocrOptions(app.Config) []app.Option { return nil }
