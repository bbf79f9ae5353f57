package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/normalize"
	"github.com/sumika/estimator/pkg/anthropic"
)

const extractionPrompt = `You are a document analyst for residential property services.

Read the attached documents and extract the property details below. Return
strict JSON only, no prose. Use null for anything the documents do not state.
{"layout": <e.g. "2LDK">, "areaSqm": <number or string with unit>, "region": <city/ward>, "address": <street address>, "buildingType": <e.g. "apartment">, "rooms": <number>, "yearBuilt": <number>, "notes": <short free text>, "features": [<short strings>], "summary": <one sentence on what the documents are>}`

// extractionTemperature keeps document extraction near-deterministic.
const extractionTemperature = 0.1

// extract sends the validated attachments to the model and parses the reply
// permissively. Extraction is best-effort: any invocation or parse failure
// yields the zero Extracted value, never an error.
func (e *Engine) extract(ctx context.Context, attachments []model.Attachment) normalize.Extracted {
	docs := make([]anthropic.Document, 0, len(attachments))
	for _, a := range attachments {
		if !supportedMedia(a.ContentType) {
			zap.L().Warn("pipeline: skipping attachment with unsupported content type",
				zap.String("name", a.Name),
				zap.String("content_type", a.ContentType),
			)
			continue
		}
		docs = append(docs, anthropic.Document{MediaType: a.ContentType, Data: a.Data})
	}
	if len(docs) == 0 {
		return normalize.Extracted{}
	}

	temp := extractionTemperature
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.modelID,
		MaxTokens:   e.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: extractionPrompt, Documents: docs},
		},
	})
	if err != nil {
		zap.L().Warn("pipeline: extraction call failed, continuing without extracted fields",
			zap.Error(err),
		)
		return normalize.Extracted{}
	}
	resp.Usage.LogCost(e.modelID, "extract")

	return parseExtraction(anthropic.ExtractText(resp))
}

// parseExtraction coerces loosely typed model output into Extracted,
// defaulting every field on any parse failure.
func parseExtraction(text string) normalize.Extracted {
	var raw struct {
		Layout       any   `json:"layout"`
		AreaSqm      any   `json:"areaSqm"`
		Region       any   `json:"region"`
		Address      any   `json:"address"`
		BuildingType any   `json:"buildingType"`
		Rooms        any   `json:"rooms"`
		YearBuilt    any   `json:"yearBuilt"`
		Notes        any   `json:"notes"`
		Features     []any `json:"features"`
		Summary      any   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		zap.L().Debug("pipeline: unparsable extraction output")
		return normalize.Extracted{}
	}

	var features []string
	for _, f := range raw.Features {
		if s, ok := f.(string); ok && strings.TrimSpace(s) != "" {
			features = append(features, strings.TrimSpace(s))
		}
	}

	return normalize.Extracted{
		Layout:       asString(raw.Layout),
		AreaSqm:      asString(raw.AreaSqm),
		Region:       asString(raw.Region),
		Address:      asString(raw.Address),
		BuildingType: asString(raw.BuildingType),
		Rooms:        asString(raw.Rooms),
		YearBuilt:    asString(raw.YearBuilt),
		Notes:        asString(raw.Notes),
		Features:     features,
		Summary:      asString(raw.Summary),
	}
}

// asString renders a loosely typed JSON scalar as its string form; nulls and
// composites become empty.
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return ""
	}
}

// supportedMedia reports whether the model can consume the content type as
// an inline document.
func supportedMedia(contentType string) bool {
	return contentType == "application/pdf" || strings.HasPrefix(contentType, "image/")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

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

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
