package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/normalize"
	"github.com/sumika/estimator/internal/scorer"
	"github.com/sumika/estimator/pkg/anthropic"
)

// maxRationale bounds how many rationale lines survive parsing.
const maxRationale = 5

// generationTemperature keeps estimation output near-deterministic.
const generationTemperature = 0.1

const estimatePrompt = `You are a pricing analyst for residential property services.

Target property:
%s

Comparable past cases (most similar first):
%s

Estimate the service fee for the target property in %s, grounded in the
comparable cases. Return strict JSON only, no prose:
{"estimate": <number>, "currency": "%s", "rationale": [<up to %d short strings>], "usedExampleIds": [<ids of cases you relied on>], "confidence": <0.0-1.0>}`

// Generator produces an AI estimate with a deterministic baseline fallback.
// The client is injected so the fallback path is testable without network
// access.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewGenerator creates a Generator. Returns nil if client is nil.
func NewGenerator(client anthropic.Client, modelID string, maxTokens int64) *Generator {
	if client == nil {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{client: client, model: modelID, maxTokens: maxTokens}
}

// Generate asks the model for an estimate over the top comparables and
// parses the reply defensively. The returned amount is never absent: any
// invocation or parse failure resolves to the baseline. No retries.
func (g *Generator) Generate(ctx context.Context, profile model.PropertyProfile, top []scorer.Ranked, baseline float64, baselineMethod model.EstimateMethod) model.EstimateResult {
	result := model.EstimateResult{
		Amount:   baseline,
		Currency: model.DefaultCurrency,
		Method:   baselineMethod,
	}

	temp := generationTemperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(profile, top)},
		},
	})
	if err != nil {
		zap.L().Warn("estimate: generation failed, using baseline",
			zap.Float64("baseline", baseline),
			zap.Error(err),
		)
		return result
	}
	resp.Usage.LogCost(g.model, "estimate")

	parsed, ok := parseModelOutput(anthropic.ExtractText(resp))
	if !ok || parsed.Amount == nil {
		zap.L().Warn("estimate: unparsable model output, using baseline",
			zap.Float64("baseline", baseline),
		)
		result.Rationale = parsed.Rationale
		result.UsedExampleIDs = parsed.UsedExampleIDs
		result.Confidence = parsed.Confidence
		return result
	}

	result.Amount = *parsed.Amount
	result.Method = model.MethodAI
	result.Rationale = parsed.Rationale
	result.UsedExampleIDs = parsed.UsedExampleIDs
	result.Confidence = parsed.Confidence
	if parsed.Currency != "" {
		result.Currency = parsed.Currency
	}

	zap.L().Info("estimate: generated",
		zap.Float64("amount", result.Amount),
		zap.String("currency", result.Currency),
		zap.Int("rationale", len(result.Rationale)),
	)
	return result
}

// parsedOutput is the outcome of defensively parsing model text. Amount nil
// means the estimate field was absent or not coercible; the caller
// substitutes the baseline.
type parsedOutput struct {
	Amount         *float64
	Currency       string
	Rationale      []string
	UsedExampleIDs []string
	Confidence     *float64
}

// parseModelOutput extracts a structured estimate from free-form model text.
// The bool reports whether any JSON object was recovered at all; parse
// failures never propagate as errors.
func parseModelOutput(text string) (parsedOutput, bool) {
	var raw struct {
		Estimate       any    `json:"estimate"`
		Currency       string `json:"currency"`
		Rationale      []any  `json:"rationale"`
		UsedExampleIDs []any  `json:"usedExampleIds"`
		Confidence     any    `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return parsedOutput{}, false
	}

	out := parsedOutput{
		Amount:         normalize.ParseNumberValue(raw.Estimate),
		Currency:       strings.TrimSpace(raw.Currency),
		Rationale:      stringEntries(raw.Rationale, maxRationale),
		UsedExampleIDs: stringEntries(raw.UsedExampleIDs, 0),
		Confidence:     clampConfidence(raw.Confidence),
	}
	return out, true
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// stringEntries keeps trimmed, non-empty string members of a loosely typed
// array. A positive max caps the result length.
func stringEntries(in []any, max int) []string {
	var out []string
	for _, v := range in {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// clampConfidence coerces a loosely typed confidence into [0,1], nil when
// non-numeric or out of range.
func clampConfidence(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	if f < 0 || f > 1 {
		return nil
	}
	return &f
}

// buildPrompt renders the profile and comparable summaries into the
// estimation prompt.
func buildPrompt(profile model.PropertyProfile, top []scorer.Ranked) string {
	var comps strings.Builder
	if len(top) == 0 {
		comps.WriteString("(none)")
	}
	for i, r := range top {
		s := r.Record.Summary()
		fmt.Fprintf(&comps, "%d. id=%s layout=%s area_sqm=%s region=%s amount=%s",
			i+1, s.ID, orDash(s.Layout), floatOrDash(s.AreaSqm), orDash(s.Region), floatOrDash(s.Amount))
		if s.Notes != "" {
			fmt.Fprintf(&comps, " notes=%s", truncate(s.Notes, 120))
		}
		comps.WriteString("\n")
	}

	return fmt.Sprintf(estimatePrompt,
		profileBlock(profile), comps.String(), model.DefaultCurrency, model.DefaultCurrency, maxRationale)
}

func profileBlock(p model.PropertyProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "layout=%s area_sqm=%s region=%s", orDash(p.Layout), floatOrDash(p.AreaSqm), orDash(p.Region))
	if p.BuildingType != "" {
		fmt.Fprintf(&b, " building_type=%s", p.BuildingType)
	}
	if p.Rooms != nil {
		fmt.Fprintf(&b, " rooms=%g", *p.Rooms)
	}
	if p.YearBuilt != nil {
		fmt.Fprintf(&b, " year_built=%g", *p.YearBuilt)
	}
	if len(p.Features) > 0 {
		fmt.Fprintf(&b, " features=%s", strings.Join(p.Features, ","))
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "\nnotes: %s", truncate(p.Notes, 300))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func floatOrDash(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *f)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
