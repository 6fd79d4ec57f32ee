package export

import (
    "archive/tar"
    "compress/gzip"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "io"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
)

// SumsFile is the checksum listing written at the output root.
const SumsFile = "SHA256SUMS"

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v any) error {
    b, err := json.MarshalIndent(v, "", "  ")
    if err != nil { return err }
    return os.WriteFile(path, b, 0o644)
}

// WriteSHA256SUMS lists every file under dir with its digest, using
// slash-separated paths relative to dir in sorted order. The listing itself
// and tarballs are skipped.
func WriteSHA256SUMS(dir string) error {
    var rels []string
    err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
        if err != nil { return err }
        if d.IsDir() { return nil }
        name := d.Name()
        if name == SumsFile || strings.HasSuffix(name, ".tar.gz") { return nil }
        rel, err := filepath.Rel(dir, p)
        if err != nil { return err }
        rels = append(rels, rel)
        return nil
    })
    if err != nil { return err }
    sort.Strings(rels)

    var b strings.Builder
    for _, rel := range rels {
        sum, err := sha256File(filepath.Join(dir, rel))
        if err != nil { return err }
        b.WriteString(sum)
        b.WriteString("  ")
        b.WriteString(filepath.ToSlash(rel))
        b.WriteString("\n")
    }
    return os.WriteFile(filepath.Join(dir, SumsFile), []byte(b.String()), 0o644)
}

func sha256File(path string) (string, error) {
    f, err := os.Open(path)
    if err != nil { return "", err }
    defer f.Close()
    h := sha256.New()
    if _, err := io.Copy(h, f); err != nil { return "", err }
    return hex.EncodeToString(h.Sum(nil)), nil
}

// TarGzDirectory archives srcDir into outPath with entries nested under the
// directory's base name.
func TarGzDirectory(srcDir, outPath string) error {
    out, err := os.Create(outPath)
    if err != nil { return err }
    defer out.Close()
    gz := gzip.NewWriter(out)
    defer gz.Close()
    tw := tar.NewWriter(gz)
    defer tw.Close()

    parent := filepath.Dir(filepath.Clean(srcDir))
    return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
        if err != nil { return err }
        if info.IsDir() { return nil }
        if filepath.Clean(path) == filepath.Clean(outPath) { return nil }
        rel, err := filepath.Rel(parent, path)
        if err != nil { return err }
        hdr, err := tar.FileInfoHeader(info, "")
        if err != nil { return err }
        hdr.Name = filepath.ToSlash(rel)
        if err := tw.WriteHeader(hdr); err != nil { return err }
        f, err := os.Open(path)
        if err != nil { return err }
        if _, err := io.Copy(tw, f); err != nil {
            f.Close()
            return err
        }
        f.Close()
        return nil
    })
}
