// Package scorer ranks historical comparable records by similarity to a
// target property profile.
package scorer

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/model"
)

// Signal weights. Region dominates because service fees track local markets
// more than unit shape.
const (
	weightKnownAmount   = 1.0
	weightRegionExact   = 3.0
	weightRegionPartial = 1.5
	weightLayoutExact   = 1.5
	weightAreaMax       = 2.0
	weightGroundTruth   = 0.5
)

// Ranked pairs a comparable record with its similarity score.
type Ranked struct {
	Record model.ComparableRecord
	Score  float64
}

// Rank scores each candidate against the target and returns the survivors
// ordered by score descending. Zero-score candidates are discarded. The sort
// is stable, so ties keep the candidates' retrieval order (most recent
// first).
func Rank(target model.PropertyProfile, candidates []model.ComparableRecord) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		if s := Score(target, c); s > 0 {
			ranked = append(ranked, Ranked{Record: c, Score: s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	zap.L().Debug("scorer: candidates ranked",
		zap.Int("candidates", len(candidates)),
		zap.Int("survivors", len(ranked)),
	)
	return ranked
}

// Score computes the non-negative similarity of one candidate to the target.
func Score(target model.PropertyProfile, c model.ComparableRecord) float64 {
	var s float64

	if c.BestAmount() != nil {
		s += weightKnownAmount
	}
	if c.Estimate.UserAmount != nil {
		// Human-corrected amounts are ground truth; stacks with the known
		// amount signal.
		s += weightGroundTruth
	}

	s += regionScore(target.Region, c.Property.Region)

	if target.Layout != "" && strings.EqualFold(target.Layout, c.Property.Layout) {
		s += weightLayoutExact
	}

	if target.AreaSqm != nil && c.Property.AreaSqm != nil {
		s += areaScore(*target.AreaSqm, *c.Property.AreaSqm)
	}

	return s
}

// regionScore awards the full weight for an exact case-insensitive match and
// half-ish credit when one region contains the other.
func regionScore(target, candidate string) float64 {
	if target == "" || candidate == "" {
		return 0
	}
	a := strings.ToLower(strings.TrimSpace(target))
	b := strings.ToLower(strings.TrimSpace(candidate))
	switch {
	case a == b:
		return weightRegionExact
	case strings.Contains(a, b) || strings.Contains(b, a):
		return weightRegionPartial
	default:
		return 0
	}
}

// areaScore scales up to weightAreaMax by relative closeness of the two
// areas.
func areaScore(a, b float64) float64 {
	closeness := 1 - math.Abs(a-b)/math.Max(math.Max(a, b), 1)
	if closeness < 0 {
		closeness = 0
	}
	return weightAreaMax * closeness
}

// Top returns the first n entries of a ranked list.
func Top(ranked []Ranked, n int) []Ranked {
	if len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}

// Summaries reduces ranked records to the compact prompt/context form.
func Summaries(ranked []Ranked) []model.ComparableSummary {
	out := make([]model.ComparableSummary, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Record.Summary())
	}
	return out
}
