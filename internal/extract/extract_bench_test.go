package extract

import (
    "fmt"
    "strings"
    "testing"
)

// Benchmark ParseBBoxLayout on documents of increasing page count.
func BenchmarkParseBBoxLayout(b *testing.B) {
	for _, pages := range []int{1, 20, 200} {
		doc := makeLayout(pages, 30)
		b.Run(fmt.Sprintf("pages=%d", pages), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = ParseBBoxLayout(strings.NewReader(doc))
			}
		})
	}
}

func makeLayout(pages int, blocksPerPage int) string {
    builder := new(strings.Builder)
	builder.WriteString("<html><body><doc>")
	for p := 0; p < pages; p++ {
		builder.WriteString(`<page width="612" height="792"><flow>`)
		for i := 0; i < blocksPerPage; i++ {
			y := 20 * i
			fmt.Fprintf(builder, `<block xMin="72" yMin="%d" xMax="540" yMax="%d"><line xMin="72" yMin="%d" xMax="540" yMax="%d">`, y, y+12, y, y+12)
			for _, w := range strings.Fields(sampleText) {
				fmt.Fprintf(builder, `<word xMin="72" yMin="%d" xMax="90" yMax="%d">%s</word>`, y, y+12, w)
			}
			builder.WriteString("</line></block>")
		}
		builder.WriteString("</flow></page>")
	}
	builder.WriteString("</doc></body></html>")
	return builder.String()
}

const sampleText = "Revenue by region for the fiscal year, in thousands of dollars."
