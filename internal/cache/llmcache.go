package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
    "time"
)

// LLMCache stores vision-model extraction responses keyed by model, prompt
// and the digests of the page images sent with the prompt.
type LLMCache struct {
    Dir         string
    // StrictPerms, when true, enforces 0700 on cache directories and 0600 on
    // files. Cached responses contain document content.
    StrictPerms bool
}

func (c *LLMCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
    perm := os.FileMode(0o755)
    if c.StrictPerms {
        perm = 0o700
    }
    if err := os.MkdirAll(c.Dir, perm); err != nil {
        return err
    }
    // If directory already existed and StrictPerms is on, tighten perms
    if c.StrictPerms {
        if info, err := os.Stat(c.Dir); err == nil {
            if info.Mode()&0o777 != 0o700 {
                _ = os.Chmod(c.Dir, 0o700)
            }
        }
    }
    return nil
}

// KeyFrom builds a cache key from the model name, the prompt and any binary
// attachments. Attachments contribute their own sha256 so the key does not
// depend on how large the page images are.
func KeyFrom(model string, prompt string, attachments ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(model + "\n\n" + prompt))
	for _, a := range attachments {
		d := sha256.Sum256(a)
		h.Write([]byte("\n"))
		h.Write([]byte(hex.EncodeToString(d[:])))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *LLMCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns cached bytes if present.
func (c *LLMCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
    b, err := os.ReadFile(p)
    if err != nil {
        return nil, false, nil
    }
    // Touch file mtime on access for LRU purposes
    now := time.Now()
    _ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes to cache through a temp file so concurrent readers never
// see a partial entry.
func (c *LLMCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	p := c.pathFor(key)
    mode := os.FileMode(0o644)
    if c.StrictPerms {
        mode = 0o600
    }
    tmp, err := os.CreateTemp(c.Dir, key+".*.tmp")
    if err != nil {
        return err
    }
    defer os.Remove(tmp.Name())
    if _, err := tmp.Write(data); err != nil {
        tmp.Close()
        return err
    }
    if err := tmp.Close(); err != nil {
        return err
    }
    if err := os.Chmod(tmp.Name(), mode); err != nil {
        return err
    }
    return os.Rename(tmp.Name(), p)
}
