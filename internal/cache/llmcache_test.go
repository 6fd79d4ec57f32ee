package cache

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestLLMCache_SaveGet(t *testing.T) {
	tmp := t.TempDir()
	c := &LLMCache{Dir: tmp}
	key := KeyFrom("model", "prompt", []byte("page-1.png"))
	data := []byte(`{"text_blocks":[],"tables":[]}`)
	if err := c.Save(context.Background(), key, data); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := c.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if string(got) != string(data) {
		t.Fatalf("mismatch")
	}
	if _, ok, _ := c.Get(context.Background(), KeyFrom("model", "prompt")); ok {
		t.Fatalf("key without attachments must differ")
	}
}

func TestKeyFrom_Attachments(t *testing.T) {
    a := KeyFrom("m", "p", []byte("one"), []byte("two"))
    b := KeyFrom("m", "p", []byte("two"), []byte("one"))
    if a == b {
        t.Fatalf("attachment order must change the key")
    }
    if a != KeyFrom("m", "p", []byte("one"), []byte("two")) {
        t.Fatalf("key not deterministic")
    }
    if KeyFrom("m1", "p") == KeyFrom("m2", "p") {
        t.Fatalf("model must change the key")
    }
}

func TestLLMCache_Unconfigured(t *testing.T) {
    var c *LLMCache
    if _, _, err := c.Get(context.Background(), "k"); err == nil {
        t.Fatalf("expected error for nil cache")
    }
}

func TestLLMCache_LRUEnforcement(t *testing.T) {
    tmp := t.TempDir()
    c := &LLMCache{Dir: tmp}
    keys := []string{KeyFrom("m","p1"), KeyFrom("m","p2"), KeyFrom("m","p3")}
    base := time.Now().Add(-time.Hour)
    for i, k := range keys {
        if err := c.Save(context.Background(), k, []byte(fmt.Sprintf("%d", i))); err != nil {
            t.Fatalf("save %d: %v", i, err)
        }
        ts := base.Add(time.Duration(i) * time.Minute)
        if err := os.Chtimes(filepath.Join(tmp, k+".json"), ts, ts); err != nil {
            t.Fatalf("chtimes: %v", err)
        }
    }
    // Touch p1 to be most recently used
    if _, ok, _ := c.Get(context.Background(), keys[0]); !ok {
        t.Fatal("expected hit")
    }
    // Enforce count=2 should evict p2, the oldest not recently touched
    removed, err := EnforceLLMCacheLimits(tmp, 0, 2)
    if err != nil { t.Fatalf("enforce: %v", err) }
    if removed != 1 { t.Fatalf("expected 1 removed, got %d", removed) }
    if _, ok, _ := c.Get(context.Background(), keys[1]); ok {
        t.Fatal("expected least recently used evicted")
    }
    if _, ok, _ := c.Get(context.Background(), keys[0]); !ok {
        t.Fatal("touched entry must survive")
    }
}

func TestLLMCache_EnforceBytes(t *testing.T) {
    tmp := t.TempDir()
    c := &LLMCache{Dir: tmp}
    base := time.Now().Add(-time.Hour)
    for i := 0; i < 3; i++ {
        k := KeyFrom("m", fmt.Sprint(i))
        if err := c.Save(context.Background(), k, []byte("0123456789")); err != nil {
            t.Fatalf("save: %v", err)
        }
        ts := base.Add(time.Duration(i) * time.Minute)
        _ = os.Chtimes(filepath.Join(tmp, k+".json"), ts, ts)
    }
    removed, err := EnforceLLMCacheLimits(tmp, 25, 0)
    if err != nil || removed != 1 {
        t.Fatalf("removed=%d err=%v", removed, err)
    }
}

func TestPurgeLLMCacheByAge(t *testing.T) {
    tmp := t.TempDir()
    c := &LLMCache{Dir: tmp}
    oldKey, newKey := KeyFrom("m", "old"), KeyFrom("m", "new")
    for _, k := range []string{oldKey, newKey} {
        if err := c.Save(context.Background(), k, []byte("{}")); err != nil {
            t.Fatalf("save: %v", err)
        }
    }
    past := time.Now().Add(-48 * time.Hour)
    if err := os.Chtimes(filepath.Join(tmp, oldKey+".json"), past, past); err != nil {
        t.Fatalf("chtimes: %v", err)
    }
    removed, err := PurgeLLMCacheByAge(tmp, 24*time.Hour)
    if err != nil || removed != 1 {
        t.Fatalf("removed=%d err=%v", removed, err)
    }
    if _, err := os.Stat(filepath.Join(tmp, newKey+".json")); err != nil {
        t.Fatalf("fresh entry removed: %v", err)
    }
}

func TestClearDir(t *testing.T) {
    tmp := filepath.Join(t.TempDir(), "llm")
    c := &LLMCache{Dir: tmp}
    _ = c.Save(context.Background(), "k", []byte("x"))
    if err := ClearDir(tmp); err != nil {
        t.Fatalf("clear: %v", err)
    }
    list, _ := os.ReadDir(tmp)
    if len(list) != 0 {
        t.Fatalf("expected empty dir, got %d entries", len(list))
    }
    if err := ClearDir("  "); err == nil {
        t.Fatalf("expected error for empty dir")
    }
}
