package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// PageImage is one rendered page.
type PageImage struct {
	Page int
	Path string
}

// Rasterizer renders PDF pages to PNG with pdftoppm.
type Rasterizer struct {
	Runner Runner
	Bin    string
	DPI    int
}

func (r Rasterizer) bin() string {
	if r.Bin == "" {
		return "pdftoppm"
	}
	return r.Bin
}

func (r Rasterizer) runner() Runner {
	if r.Runner == nil {
		return ExecRunner{}
	}
	return r.Runner
}

// Probe checks that pdftoppm is installed.
func (r Rasterizer) Probe() error { return lookPath(r.bin()) }

// Render writes one PNG per page into dir and returns them in page order.
// Each page is rendered on its own so the output name does not depend on
// pdftoppm's zero padding.
func (r Rasterizer) Render(ctx context.Context, pdfPath string, pages []int, dir string) ([]PageImage, error) {
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 150
	}
	out := make([]PageImage, 0, len(pages))
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := strconv.Itoa(p)
		prefix := filepath.Join(dir, "page-"+n)
		_, errb, err := r.runner().Run(ctx, r.bin(), "-r", strconv.Itoa(dpi), "-png", "-f", n, "-l", n, "-singlefile", pdfPath, prefix)
		if err != nil {
			return nil, commandError(r.bin(), errb, err)
		}
		img := prefix + ".png"
		if _, err := os.Stat(img); err != nil {
			return nil, fmt.Errorf("pdftoppm produced no image for page %d", p)
		}
		out = append(out, PageImage{Page: p, Path: img})
	}
	return out, nil
}
