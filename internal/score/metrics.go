package score

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

var (
	currencyRe = regexp.MustCompile(`[\$€£¥]?\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`),
		regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{2,4}\b`),
	}

	mdyRe = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	ymdRe = regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}`)

	numericStrip = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", "%", "")
)

// maxReasonable bounds values treated as plausible by the range check.
const maxReasonable = 1e9

// sumTolerance is the relative tolerance of the subtotal check.
const sumTolerance = 0.1

func tableMetrics(tables []schema.Table) TableMetrics {
	if len(tables) == 0 {
		return TableMetrics{}
	}
	var rows, cols, headers, total, numeric, parsed, nonEmpty int
	unique := make(map[string]struct{})
	for _, t := range tables {
		if len(t.Cells) == 0 {
			continue
		}
		rows += t.Rows()
		cols += t.Cols()
		for _, c := range t.Cells {
			total++
			key := strings.ToLower(strings.TrimSpace(c.RawText))
			unique[key] = struct{}{}
			if key != "" {
				nonEmpty++
			}
			if c.IsHeader {
				headers++
			}
			if LooksNumeric(c.RawText) {
				numeric++
				if c.ParsedNumber != nil {
					parsed++
				}
			}
		}
	}
	n := float64(len(tables))
	m := TableMetrics{
		TableCount:           len(tables),
		AvgRowsPerTable:      float64(rows) / n,
		AvgColsPerTable:      float64(cols) / n,
		HeaderDetectionRate:  float64(headers) / float64(max(total, 1)),
		NumericCellParseRate: float64(parsed) / float64(max(numeric, 1)),
	}
	m.DuplicateCellRate = 1 - float64(len(unique))/float64(max(total, 1))
	m.TableCompletenessScore = float64(nonEmpty) / float64(max(total, 1))
	m.EmptyCellRate = 1 - m.TableCompletenessScore
	return m
}

func textMetrics(blocks []schema.TextBlock) TextMetrics {
	if len(blocks) == 0 {
		return TextMetrics{}
	}
	var chars, readable int
	for _, b := range blocks {
		chars += utf8.RuneCountInString(b.Text)
		if Readable(b.Text) {
			readable++
		}
	}
	return TextMetrics{
		TextBlockCount:   len(blocks),
		AvgTextLength:    float64(chars) / float64(len(blocks)),
		TotalCharacters:  chars,
		ReadableTextRate: float64(readable) / float64(len(blocks)),
	}
}

// LooksNumeric reports whether text is a number once currency symbols,
// thousands separators, whitespace and percent signs are removed.
func LooksNumeric(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return false
	}
	s = numericStrip.Replace(norm.NFKC.String(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Readable reports whether text is at least three characters long after
// trimming and letters make up at least half of its characters.
func Readable(text string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 3 {
		return false
	}
	letters, total := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters)/float64(total) >= 0.5
}

func crossValidation(doc schema.Document) CrossValidation {
	var cv CrossValidation
	var numbers []float64
	var currencies, dates []string
	for _, t := range doc.Tables {
		for _, c := range t.Cells {
			text := strings.TrimSpace(c.RawText)
			if c.ParsedNumber != nil {
				numbers = append(numbers, *c.ParsedNumber)
			}
			if currencyRe.MatchString(text) {
				currencies = append(currencies, text)
			}
			for _, re := range datePatterns {
				if re.MatchString(text) {
					dates = append(dates, text)
					break
				}
			}
		}
	}

	if len(numbers) > 0 {
		ok := 0
		for _, v := range numbers {
			if math.Abs(v) <= maxReasonable {
				ok++
			}
		}
		cv.NumericConsistencyScore = float64(ok) / float64(len(numbers))
	}

	if len(currencies) > 0 {
		formats := map[string]struct{}{}
		for _, v := range currencies {
			switch {
			case strings.Contains(v, "$"):
				formats["USD"] = struct{}{}
			case strings.Contains(v, "€"):
				formats["EUR"] = struct{}{}
			case strings.Contains(v, "£"):
				formats["GBP"] = struct{}{}
			}
		}
		cv.CurrencyFormatConsistency = consistency(len(formats))
	}

	if len(dates) > 0 {
		formats := map[string]struct{}{}
		for _, v := range dates {
			// YMD first: "2024-01-15" also contains an MDY-shaped "24-01-15".
			switch {
			case ymdRe.MatchString(v):
				formats["YMD"] = struct{}{}
			case mdyRe.MatchString(v):
				formats["MDY"] = struct{}{}
			}
		}
		cv.DateFormatConsistency = consistency(len(formats))
	}

	cv.TableSumValidation = tableSumsValid(doc.Tables)
	return cv
}

func consistency(formats int) float64 {
	if formats <= 1 {
		return 1.0
	}
	return 0.5
}

// tableSumsValid reports whether any table of at least 3x3 has a last row
// value within sumTolerance of the sum of the rows above it in that column.
func tableSumsValid(tables []schema.Table) bool {
	type pos struct{ r, c int }
	for _, t := range tables {
		rows, cols := t.Rows(), t.Cols()
		if rows < 3 || cols < 3 {
			continue
		}
		values := make(map[pos]float64)
		for _, c := range t.Cells {
			if c.ParsedNumber != nil {
				values[pos{c.RowIdx, c.ColIdx}] = *c.ParsedNumber
			}
		}
		last := rows - 1
		for col := 0; col < cols; col++ {
			total, ok := values[pos{last, col}]
			if !ok {
				continue
			}
			var sum float64
			for r := 0; r < last; r++ {
				sum += values[pos{r, col}]
			}
			if math.Abs(sum-total)/math.Max(math.Abs(total), 1) < sumTolerance {
				return true
			}
		}
	}
	return false
}
