package cache

import (
    "context"
    "os"
    "path/filepath"
    "testing"
)

// Cached vision responses hold document text, so strict mode must also
// tighten a directory that already existed with loose permissions.
func TestLLMCache_StrictPermsTightensExistingDir(t *testing.T) {
    t.Parallel()
    dir := filepath.Join(t.TempDir(), "llm")
    if err := os.MkdirAll(dir, 0o755); err != nil { t.Fatalf("mkdir: %v", err) }
    if err := os.Chmod(dir, 0o755); err != nil { t.Fatalf("chmod: %v", err) }

    c := &LLMCache{Dir: dir, StrictPerms: true}
    key := KeyFrom("gpt-4o", "Extract page 1", []byte("\x89PNG page-1"))
    if err := c.Save(context.Background(), key, []byte(`{"text_blocks":[]}`)); err != nil {
        t.Fatalf("save: %v", err)
    }
    info, err := os.Stat(dir)
    if err != nil { t.Fatalf("stat dir: %v", err) }
    if got := info.Mode() & 0o777; got != 0o700 {
        t.Fatalf("dir mode = %o, want 0700", got)
    }
    finfo, err := os.Stat(filepath.Join(dir, key+".json"))
    if err != nil { t.Fatalf("stat entry: %v", err) }
    if got := finfo.Mode() & 0o777; got != 0o600 {
        t.Fatalf("entry mode = %o, want 0600", got)
    }
    leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
    if len(leftovers) != 0 {
        t.Fatalf("temp files left behind: %v", leftovers)
    }
}
