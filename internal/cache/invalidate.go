package cache

import (
    "errors"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
    if strings.TrimSpace(dir) == "" {
        return errors.New("empty dir")
    }
    if err := os.RemoveAll(dir); err != nil {
        return err
    }
    return os.MkdirAll(dir, 0o755)
}

type entry struct {
    path  string
    size  int64
    mtime time.Time
}

// entries lists cached responses. Only leaf *.json files count; temp files
// from interrupted saves are ignored.
func entries(dir string) ([]entry, error) {
    var out []entry
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            if errors.Is(err, fs.ErrNotExist) {
                return nil
            }
            return err
        }
        if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
            return nil
        }
        info, err := d.Info()
        if err != nil {
            return nil
        }
        out = append(out, entry{path: path, size: info.Size(), mtime: info.ModTime().UTC()})
        return nil
    })
    return out, err
}

// PurgeLLMCacheByAge removes LLM cache entries older than maxAge based on file
// modification time. Get refreshes the mtime, so this evicts unused entries.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
    if maxAge <= 0 {
        return 0, nil
    }
    list, err := entries(dir)
    if err != nil {
        return 0, err
    }
    now := time.Now().UTC()
    removed := 0
    for _, e := range list {
        if now.Sub(e.mtime) <= maxAge {
            continue
        }
        if os.Remove(e.path) == nil {
            removed++
        }
    }
    return removed, nil
}

// EnforceLLMCacheLimits evicts least recently used entries until the cache
// holds at most maxCount entries and maxBytes bytes. A zero limit is ignored.
func EnforceLLMCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
    if maxBytes <= 0 && maxCount <= 0 {
        return 0, nil
    }
    list, err := entries(dir)
    if err != nil {
        return 0, err
    }
    // newest first; everything past the limits is evicted
    sort.Slice(list, func(i, j int) bool { return list[i].mtime.After(list[j].mtime) })
    var total int64
    removed := 0
    for i, e := range list {
        total += e.size
        overCount := maxCount > 0 && i >= maxCount
        overBytes := maxBytes > 0 && total > maxBytes
        if !overCount && !overBytes {
            continue
        }
        if os.Remove(e.path) == nil {
            removed++
        }
    }
    return removed, nil
}
