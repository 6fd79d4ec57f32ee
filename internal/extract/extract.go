// Package extract parses the positioned markup that layout and OCR tools
// emit: pdftotext -bbox-layout XHTML and Tesseract hOCR.
package extract

import (
    "io"
    "strconv"
    "strings"

    "golang.org/x/net/html"
)

// Box is one positioned run of text. Coordinates are in the producing tool's
// units with the origin at the top-left of the page. Confidence is the
// tool's raw score and is nil when the tool reports none.
type Box struct {
    Page       int
    Kind       string
    Text       string
    X0, Y0     float64
    X1, Y1     float64
    Confidence *float64
}

// ParseBBoxLayout reads pdftotext -bbox-layout output and returns one box
// per <block>. Lines inside a block are joined with newlines and words with
// single spaces. Pages are numbered from 1 in document order.
func ParseBBoxLayout(r io.Reader) ([]Box, error) {
    root, err := html.Parse(r)
    if err != nil {
        return nil, err
    }
    var out []Box
    for i, page := range findAll(root, isTag("page")) {
        for _, block := range findAll(page, isTag("block")) {
            var lines []string
            for _, line := range findAll(block, isTag("line")) {
                var words []string
                for _, w := range findAll(line, isTag("word")) {
                    if t := textOf(w); t != "" {
                        words = append(words, t)
                    }
                }
                if len(words) > 0 {
                    lines = append(lines, strings.Join(words, " "))
                }
            }
            text := strings.Join(lines, "\n")
            if text == "" {
                // blocks without line markup still carry their text
                text = textOf(block)
            }
            if text == "" {
                continue
            }
            b := Box{Page: i + 1, Kind: "block", Text: text}
            b.X0, _ = attrFloat(block, "xmin")
            b.Y0, _ = attrFloat(block, "ymin")
            b.X1, _ = attrFloat(block, "xmax")
            b.Y1, _ = attrFloat(block, "ymax")
            out = append(out, b)
        }
    }
    return out, nil
}

// ParseHOCR reads the hOCR of a single page image and returns one box per
// ocr_line. The line confidence is the mean x_wconf of its words, in the
// 0-100 range Tesseract reports.
func ParseHOCR(r io.Reader, page int) ([]Box, error) {
    root, err := html.Parse(r)
    if err != nil {
        return nil, err
    }
    var out []Box
    for _, line := range findAll(root, hasClass("ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat")) {
        var words []string
        var sum float64
        n := 0
        for _, w := range findAll(line, hasClass("ocrx_word")) {
            t := textOf(w)
            if t == "" {
                continue
            }
            words = append(words, t)
            if c, ok := titleFloat(attr(w, "title"), "x_wconf"); ok {
                sum += c
                n++
            }
        }
        if len(words) == 0 {
            continue
        }
        b := Box{Page: page, Kind: "line", Text: strings.Join(words, " ")}
        if coords := titleProps(attr(line, "title"))["bbox"]; len(coords) == 4 {
            b.X0, _ = strconv.ParseFloat(coords[0], 64)
            b.Y0, _ = strconv.ParseFloat(coords[1], 64)
            b.X1, _ = strconv.ParseFloat(coords[2], 64)
            b.Y1, _ = strconv.ParseFloat(coords[3], 64)
        }
        if n > 0 {
            mean := sum / float64(n)
            b.Confidence = &mean
        }
        out = append(out, b)
    }
    return out, nil
}

// titleProps splits an hOCR title attribute such as
// `bbox 10 20 30 40; x_wconf 93` into its properties.
func titleProps(title string) map[string][]string {
    out := map[string][]string{}
    for _, part := range strings.Split(title, ";") {
        fields := strings.Fields(part)
        if len(fields) == 0 {
            continue
        }
        out[fields[0]] = fields[1:]
    }
    return out
}

func titleFloat(title, key string) (float64, bool) {
    v := titleProps(title)[key]
    if len(v) == 0 {
        return 0, false
    }
    f, err := strconv.ParseFloat(v[0], 64)
    return f, err == nil
}

func isTag(tag string) func(*html.Node) bool {
    return func(n *html.Node) bool {
        return n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
    }
}

func hasClass(classes ...string) func(*html.Node) bool {
    return func(n *html.Node) bool {
        if n.Type != html.ElementNode {
            return false
        }
        for _, c := range strings.Fields(attr(n, "class")) {
            for _, want := range classes {
                if c == want {
                    return true
                }
            }
        }
        return false
    }
}

// findAll returns matching nodes in document order without descending into
// a match.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
    var res []*html.Node
    var dfs func(*html.Node)
    dfs = func(cur *html.Node) {
        if cur != n && match(cur) {
            res = append(res, cur)
            return
        }
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            dfs(c)
        }
    }
    dfs(n)
    return res
}

func attr(n *html.Node, key string) string {
    for _, a := range n.Attr {
        if strings.EqualFold(a.Key, key) {
            return a.Val
        }
    }
    return ""
}

func attrFloat(n *html.Node, key string) (float64, bool) {
    f, err := strconv.ParseFloat(strings.TrimSpace(attr(n, key)), 64)
    return f, err == nil
}

// textOf concatenates the text below n and collapses whitespace.
func textOf(n *html.Node) string {
    var b strings.Builder
    collectText(&b, n)
    return normalizeWhitespace(b.String())
}

func collectText(b *strings.Builder, n *html.Node) {
    if n.Type == html.TextNode {
        b.WriteString(n.Data)
    }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        collectText(b, c)
    }
}

func normalizeWhitespace(s string) string {
    return collapseSpaces(strings.TrimSpace(s))
}

func collapseSpaces(s string) string {
    var b strings.Builder
    lastSpace := false
    for _, r := range s {
        if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
            if !lastSpace {
                b.WriteByte(' ')
                lastSpace = true
            }
            continue
        }
        b.WriteRune(r)
        lastSpace = false
    }
    return b.String()
}
