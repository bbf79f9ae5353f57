// Package estimate produces service-fee estimates: a deterministic baseline
// from ranked comparables and an AI estimate that falls back to it.
package estimate

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/scorer"
)

const (
	// DefaultAreaRate is the per-sqm fee rate used when no comparable
	// amounts exist.
	DefaultAreaRate = 1200
	// DefaultAreaSqm substitutes for an unknown area in the rate fallback.
	DefaultAreaSqm = 50
)

// Baseline computes the deterministic fallback amount: the median of the
// comparables' best-known amounts, or an area-rate floor when no amounts are
// known. It is always computable and never fails.
func Baseline(ranked []scorer.Ranked, profile model.PropertyProfile) (float64, model.EstimateMethod) {
	return BaselineWith(ranked, profile, DefaultAreaRate, DefaultAreaSqm)
}

// BaselineWith is Baseline with configurable rate constants.
func BaselineWith(ranked []scorer.Ranked, profile model.PropertyProfile, areaRate, defaultArea float64) (float64, model.EstimateMethod) {
	var amounts []float64
	for _, r := range ranked {
		if amt := r.Record.BestAmount(); amt != nil {
			amounts = append(amounts, *amt)
		}
	}

	if len(amounts) > 0 {
		m := math.Round(median(amounts))
		zap.L().Debug("baseline: median of comparables",
			zap.Int("amounts", len(amounts)),
			zap.Float64("baseline", m),
		)
		return m, model.MethodBaselineMedian
	}

	area := defaultArea
	if profile.AreaSqm != nil {
		area = *profile.AreaSqm
	}
	v := math.Round(area * areaRate)
	zap.L().Debug("baseline: area rate fallback",
		zap.Float64("area_sqm", area),
		zap.Float64("baseline", v),
	)
	return v, model.MethodBaselineAreaRate
}

// median returns the standard median: the middle value for an odd count, the
// mean of the two middle values for an even count.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
