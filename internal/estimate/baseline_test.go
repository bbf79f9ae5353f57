package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/scorer"
)

func f(v float64) *float64 { return &v }

func rankedWithAmounts(amounts ...float64) []scorer.Ranked {
	out := make([]scorer.Ranked, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, scorer.Ranked{
			Record: model.ComparableRecord{
				Estimate: model.EstimateResult{Amount: a, Method: model.MethodAI},
			},
		})
	}
	return out
}

func TestBaseline_NoHistoryKnownArea(t *testing.T) {
	amount, method := Baseline(nil, model.PropertyProfile{AreaSqm: f(60)})
	assert.InDelta(t, 72000, amount, 0.001)
	assert.Equal(t, model.MethodBaselineAreaRate, method)
}

func TestBaseline_NoHistoryUnknownArea(t *testing.T) {
	amount, method := Baseline(nil, model.PropertyProfile{})
	assert.InDelta(t, 60000, amount, 0.001)
	assert.Equal(t, model.MethodBaselineAreaRate, method)
}

func TestBaseline_MedianOdd(t *testing.T) {
	amount, method := Baseline(rankedWithAmounts(140000, 100000, 120000), model.PropertyProfile{})
	assert.InDelta(t, 120000, amount, 0.001)
	assert.Equal(t, model.MethodBaselineMedian, method)
}

func TestBaseline_MedianEven(t *testing.T) {
	amount, _ := Baseline(rankedWithAmounts(100000, 200000, 120000, 140000), model.PropertyProfile{})
	// sorted: 100000 120000 140000 200000 → (120000+140000)/2
	assert.InDelta(t, 130000, amount, 0.001)
}

func TestBaseline_UserAmountPreferredOverAI(t *testing.T) {
	ranked := rankedWithAmounts(100000)
	ranked[0].Record.Estimate.UserAmount = f(150000)

	amount, _ := Baseline(ranked, model.PropertyProfile{})
	assert.InDelta(t, 150000, amount, 0.001)
}

func TestBaseline_BaselineMethodAmountsDoNotCount(t *testing.T) {
	// A stored record whose own amount was a baseline fallback carries no
	// known amount for future medians.
	ranked := []scorer.Ranked{{
		Record: model.ComparableRecord{
			Estimate: model.EstimateResult{Amount: 60000, Method: model.MethodBaselineAreaRate},
		},
	}}

	amount, method := Baseline(ranked, model.PropertyProfile{AreaSqm: f(40)})
	assert.InDelta(t, 48000, amount, 0.001)
	assert.Equal(t, model.MethodBaselineAreaRate, method)
}

func TestMedian_RoundsToNearestInt(t *testing.T) {
	amount, _ := Baseline(rankedWithAmounts(100001, 100002), model.PropertyProfile{})
	// (100001+100002)/2 = 100001.5 → 100002
	assert.InDelta(t, 100002, amount, 0.001)
}
