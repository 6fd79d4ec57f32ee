// Package score computes per-method quality metrics and a bounded overall
// score for normalized extraction results. Scoring is deterministic and
// side-effect free.
package score

import (
	"github.com/hyperifyio/pdfxbench/internal/normalize"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// Weights blend the metric groups into the overall score. The overall score
// divides by the sum of the weights whose group applies. The blend is a
// tuning knob: set Scorer.Weights to rank methods with another weighting.
type Weights struct {
	Success    float64 `json:"success" yaml:"success"`
	Tables     float64 `json:"tables" yaml:"tables"`
	Text       float64 `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// DefaultWeights is the blend the benchmark reports with.
var DefaultWeights = Weights{Success: 0.3, Tables: 0.4, Text: 0.2, Confidence: 0.1}

// Inner blend of the table group.
const (
	tableFillWeight       = 0.3
	tableNumericWeight    = 0.2
	tableCompleteWeight   = 0.3
	tableUniquenessWeight = 0.2
)

// LowConfidenceThreshold separates low from acceptable confidence scores.
const LowConfidenceThreshold = 0.8

// fallbackConfidence is used if the confidence group applies but no average
// could be computed.
const fallbackConfidence = 0.5

// BasicMetrics mirror the pre-aggregated counts of the result.
type BasicMetrics struct {
	Success         bool     `json:"success"`
	TotalTextBlocks int      `json:"total_text_blocks"`
	TotalTables     int      `json:"total_tables"`
	TotalCells      int      `json:"total_cells"`
	EmptyCells      int      `json:"empty_cells"`
	EmptyCellRate   float64  `json:"empty_cell_rate"`
	AvgConfidence   *float64 `json:"avg_confidence"`
}

// TableMetrics are zero when the document has no tables.
type TableMetrics struct {
	TableCount             int     `json:"table_count"`
	AvgRowsPerTable        float64 `json:"avg_rows_per_table"`
	AvgColsPerTable        float64 `json:"avg_cols_per_table"`
	HeaderDetectionRate    float64 `json:"header_detection_rate"`
	NumericCellParseRate   float64 `json:"numeric_cell_parse_rate"`
	DuplicateCellRate      float64 `json:"duplicate_cell_rate"`
	TableCompletenessScore float64 `json:"table_completeness_score"`
	EmptyCellRate          float64 `json:"empty_cell_rate"`
}

// TextMetrics are zero when the document has no text blocks.
type TextMetrics struct {
	TextBlockCount   int     `json:"text_block_count"`
	AvgTextLength    float64 `json:"avg_text_length"`
	TotalCharacters  int     `json:"total_characters"`
	ReadableTextRate float64 `json:"readable_text_rate"`
}

// CrossValidation metrics are diagnostic only and never enter the overall score.
type CrossValidation struct {
	NumericConsistencyScore   float64 `json:"numeric_consistency_score"`
	DateFormatConsistency     float64 `json:"date_format_consistency"`
	CurrencyFormatConsistency float64 `json:"currency_format_consistency"`
	TableSumValidation        bool    `json:"table_sum_validation"`
}

// ConfidenceMetrics summarize every confidence-bearing datum.
type ConfidenceMetrics struct {
	HasConfidenceScores bool     `json:"has_confidence_scores"`
	AvgConfidence       *float64 `json:"avg_confidence"`
	MinConfidence       *float64 `json:"min_confidence"`
	MaxConfidence       *float64 `json:"max_confidence"`
	LowConfidenceRate   float64  `json:"low_confidence_rate"`
}

// Scores is the full breakdown for one result.
type Scores struct {
	Method          schema.Method     `json:"method"`
	OverallScore    float64           `json:"overall_score"`
	Basic           BasicMetrics      `json:"basic_metrics"`
	Table           TableMetrics      `json:"table_metrics"`
	Text            TextMetrics       `json:"text_metrics"`
	CrossValidation CrossValidation   `json:"cross_validation"`
	Confidence      ConfidenceMetrics `json:"confidence_metrics"`
	ProcessingTime  float64           `json:"processing_time"`
}

// Scorer computes Scores. The zero value uses DefaultWeights.
type Scorer struct {
	Weights Weights
}

// New returns a Scorer with the default weights.
func New() *Scorer {
	return &Scorer{Weights: DefaultWeights}
}

func (s *Scorer) weights() Weights {
	if s == nil || s.Weights == (Weights{}) {
		return DefaultWeights
	}
	return s.Weights
}

// Score computes every metric group and the overall score.
func (s *Scorer) Score(res schema.ExtractionResult) Scores {
	doc := res.Document
	out := Scores{
		Method:          res.Method,
		Basic:           basicMetrics(res),
		Table:           tableMetrics(doc.Tables),
		Text:            textMetrics(doc.TextBlocks),
		CrossValidation: crossValidation(doc),
		Confidence:      confidenceMetrics(doc),
		ProcessingTime:  res.ProcessingTime,
	}
	out.OverallScore = overall(s.weights(), out)
	return out
}

func basicMetrics(res schema.ExtractionResult) BasicMetrics {
	b := BasicMetrics{
		Success:         res.Success,
		TotalTextBlocks: res.TotalTextBlocks,
		TotalTables:     res.TotalTables,
		TotalCells:      res.TotalCells,
		EmptyCells:      res.EmptyCells,
	}
	if res.TotalCells > 0 {
		b.EmptyCellRate = float64(res.EmptyCells) / float64(res.TotalCells)
	}
	if res.AvgConfidence != nil {
		v := *res.AvgConfidence
		b.AvgConfidence = &v
	}
	return b
}

func confidenceMetrics(doc schema.Document) ConfidenceMetrics {
	confs := normalize.Count(doc).Confidences
	if len(confs) == 0 {
		return ConfidenceMetrics{}
	}
	var sum float64
	lo, hi := confs[0], confs[0]
	low := 0
	for _, c := range confs {
		sum += c
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
		if c < LowConfidenceThreshold {
			low++
		}
	}
	avg := sum / float64(len(confs))
	return ConfidenceMetrics{
		HasConfidenceScores: true,
		AvgConfidence:       &avg,
		MinConfidence:       &lo,
		MaxConfidence:       &hi,
		LowConfidenceRate:   float64(low) / float64(len(confs)),
	}
}

// overall blends the applicable groups and divides by the sum of the weights
// actually applied. Success always applies, so a successful result with no
// content scores 1.0.
// TODO: decide whether an empty successful extraction should be capped below
// a method that found real content.
func overall(w Weights, s Scores) float64 {
	var score, applied float64

	applied += w.Success
	if s.Basic.Success {
		score += w.Success
	}

	if s.Table.TableCount > 0 {
		t := s.Table
		group := (1-t.EmptyCellRate)*tableFillWeight +
			t.NumericCellParseRate*tableNumericWeight +
			t.TableCompletenessScore*tableCompleteWeight +
			(1-t.DuplicateCellRate)*tableUniquenessWeight
		score += group * w.Tables
		applied += w.Tables
	}

	if s.Text.TextBlockCount > 0 {
		score += s.Text.ReadableTextRate * w.Text
		applied += w.Text
	}

	if s.Confidence.HasConfidenceScores {
		c := fallbackConfidence
		if s.Confidence.AvgConfidence != nil {
			c = *s.Confidence.AvgConfidence
		}
		score += c * w.Confidence
		applied += w.Confidence
	}

	if applied <= 0 {
		return 0
	}
	return score / applied
}
