// Package compare ranks the per-method results for one source document and
// picks category winners.
package compare

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hyperifyio/pdfxbench/internal/schema"
	"github.com/hyperifyio/pdfxbench/internal/score"
)

// ErrContract reports a result that breaks the post-normalization invariants.
// It signals a defect upstream, not bad input data.
var ErrContract = errors.New("compare: result violates contract")

// Ranking is one row of the method ordering.
type Ranking struct {
	Method schema.Method `json:"method"`
	Score  float64       `json:"score"`
}

// Failure names a method that did not succeed and why.
type Failure struct {
	Method schema.Method `json:"method"`
	Error  string        `json:"error"`
}

// Comparison is the cross-method view of one document.
type Comparison struct {
	TotalMethods            int                            `json:"total_methods"`
	BestOverall             schema.Method                  `json:"best_overall"`
	BestTables              schema.Method                  `json:"best_tables"`
	BestText                schema.Method                  `json:"best_text"`
	MethodRankings          []Ranking                      `json:"method_rankings"`
	DetailedScores          map[schema.Method]score.Scores `json:"detailed_scores"`
	FailedMethods           []Failure                      `json:"failed_methods"`
	TableCountConsensus     int                            `json:"table_count_consensus"`
	NumericValidationPassed bool                           `json:"numeric_validation_passed"`
}

// Empty reports whether the comparison was built from zero results.
func (c Comparison) Empty() bool { return c.TotalMethods == 0 }

// MarshalJSON renders an empty comparison as {}.
func (c Comparison) MarshalJSON() ([]byte, error) {
	if c.Empty() {
		return []byte("{}"), nil
	}
	type plain Comparison
	return json.Marshal(plain(c))
}

// Ranked returns the detailed scores in ranking order.
func (c Comparison) Ranked() []score.Scores {
	out := make([]score.Scores, 0, len(c.MethodRankings))
	for _, r := range c.MethodRankings {
		out = append(out, c.DetailedScores[r.Method])
	}
	return out
}

// Comparator scores and ranks results. The zero value uses the default
// scorer weights.
type Comparator struct {
	Scorer *score.Scorer
}

// Compare is Comparator{}.Compare.
func Compare(results []schema.ExtractionResult) (Comparison, error) {
	return Comparator{}.Compare(results)
}

// Compare validates every result, scores it and builds the comparison.
// Rankings are by descending overall score with input order kept among ties;
// category winners are the first maximum in input order.
func (c Comparator) Compare(results []schema.ExtractionResult) (Comparison, error) {
	if len(results) == 0 {
		return Comparison{}, nil
	}
	seen := make(map[schema.Method]bool, len(results))
	for i, r := range results {
		if err := checkContract(r); err != nil {
			return Comparison{}, fmt.Errorf("result %d (%s): %w", i, r.Method, err)
		}
		if seen[r.Method] {
			return Comparison{}, fmt.Errorf("result %d: %w: duplicate method %s", i, ErrContract, r.Method)
		}
		seen[r.Method] = true
	}

	scorer := c.Scorer
	if scorer == nil {
		scorer = score.New()
	}
	scored := make([]score.Scores, len(results))
	for i, r := range results {
		scored[i] = scorer.Score(r)
	}

	out := Comparison{
		TotalMethods:   len(results),
		MethodRankings: rank(scored),
		DetailedScores: make(map[schema.Method]score.Scores, len(scored)),
		FailedMethods:  []Failure{},
	}
	out.BestOverall = out.MethodRankings[0].Method
	out.BestTables = firstMax(scored, func(s score.Scores) int { return s.Table.TableCount })
	out.BestText = firstMax(scored, func(s score.Scores) int { return s.Text.TextBlockCount })
	for i, s := range scored {
		out.DetailedScores[s.Method] = s
		if s.CrossValidation.TableSumValidation {
			out.NumericValidationPassed = true
		}
		if !results[i].Success {
			out.FailedMethods = append(out.FailedMethods, Failure{Method: s.Method, Error: results[i].ErrorMessage})
		}
	}
	out.TableCountConsensus = consensus(results)
	return out, nil
}

func checkContract(r schema.ExtractionResult) error {
	switch {
	case !r.Method.Valid():
		return fmt.Errorf("%w: unknown method %q", ErrContract, r.Method)
	case r.Document.PageCount < 1:
		return fmt.Errorf("%w: page_count %d", ErrContract, r.Document.PageCount)
	case r.ProcessingTime < 0 || math.IsNaN(r.ProcessingTime):
		return fmt.Errorf("%w: processing_time %v", ErrContract, r.ProcessingTime)
	case r.Success && r.ErrorMessage != "":
		return fmt.Errorf("%w: error_message set on success", ErrContract)
	case !r.Success && strings.TrimSpace(r.ErrorMessage) == "":
		return fmt.Errorf("%w: error_message missing on failure", ErrContract)
	}
	return nil
}

func rank(scored []score.Scores) []Ranking {
	out := make([]Ranking, len(scored))
	for i, s := range scored {
		out[i] = Ranking{Method: s.Method, Score: s.OverallScore}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func firstMax(scored []score.Scores, key func(score.Scores) int) schema.Method {
	best, bestVal := scored[0].Method, key(scored[0])
	for _, s := range scored[1:] {
		if v := key(s); v > bestVal {
			best, bestVal = s.Method, v
		}
	}
	return best
}

// consensus is the most common table count among successful results, the
// smallest count on ties, and 0 when nothing succeeded.
func consensus(results []schema.ExtractionResult) int {
	freq := map[int]int{}
	for _, r := range results {
		if r.Success {
			freq[r.TotalTables]++
		}
	}
	best, bestN := 0, 0
	for count, n := range freq {
		if n > bestN || (n == bestN && count < best) {
			best, bestN = count, n
		}
	}
	return best
}
