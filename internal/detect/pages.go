package detect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidPageRange is returned for malformed or out-of-range page specs.
var ErrInvalidPageRange = errors.New("detect: invalid page range")

// ParsePageRange turns "1,2,5-7" into sorted unique 1-based page numbers.
// An empty expression selects every page.
func ParsePageRange(expr string, total int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		out := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	set := map[int]struct{}{}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty element in %q", ErrInvalidPageRange, expr)
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidPageRange, part)
			}
			if start < 1 || end > total || start > end {
				return nil, fmt.Errorf("%w: %s", ErrInvalidPageRange, part)
			}
			for p := start; p <= end; p++ {
				set[p] = struct{}{}
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPageRange, part)
		}
		if p < 1 || p > total {
			return nil, fmt.Errorf("%w: page %d of %d", ErrInvalidPageRange, p, total)
		}
		set[p] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

// FindPDFs returns path itself when it is a file, or every *.pdf below it
// (case-insensitive) in lexical order when it is a directory.
func FindPDFs(path string) ([]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{path}, nil
	}
	var out []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".pdf") {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
