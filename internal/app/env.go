package app

import (
    "bufio"
    "errors"
    "fmt"
    "os"
    "strings"
)

// LoadEnvFiles reads dotenv files into the process environment so PDFX_*,
// LLM_* and CACHE_* settings can live next to the inputs. Later files win.
// Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
    for _, p := range paths {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        if err := loadEnvFile(p); err != nil {
            if errors.Is(err, os.ErrNotExist) { continue }
            return fmt.Errorf("env file %s: %w", p, err)
        }
    }
    return nil
}

func loadEnvFile(path string) error {
    f, err := os.Open(path)
    if err != nil {
        return err
    }
    defer f.Close()

    scanner := bufio.NewScanner(f)
    for scanner.Scan() {
        key, val, ok := parseEnvLine(scanner.Text())
        if !ok { continue }
        if err := os.Setenv(key, val); err != nil {
            return err
        }
    }
    return scanner.Err()
}

// parseEnvLine accepts KEY=VALUE with an optional "export " prefix. Quoted
// values are taken verbatim; unquoted values lose a trailing " #" comment.
func parseEnvLine(line string) (string, string, bool) {
    line = strings.TrimSpace(line)
    if line == "" || strings.HasPrefix(line, "#") {
        return "", "", false
    }
    line = strings.TrimPrefix(line, "export ")
    key, val, found := strings.Cut(line, "=")
    key = strings.TrimSpace(key)
    if !found || key == "" || strings.ContainsAny(key, " \t") {
        return "", "", false
    }
    val = strings.TrimSpace(val)
    if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') {
        if end := strings.IndexByte(val[1:], val[0]); end >= 0 {
            return key, val[1 : end+1], true
        }
    }
    if i := strings.Index(val, " #"); i >= 0 {
        val = strings.TrimSpace(val[:i])
    }
    return key, val, true
}
