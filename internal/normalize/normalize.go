// Package normalize merges user-typed and AI-extracted property fields into
// one canonical profile.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/model"
)

// tsuboToSqm converts the traditional Japanese area unit to square meters.
const tsuboToSqm = 3.306

var nonNumeric = regexp.MustCompile(`[^0-9.+\-]`)

// tsuboMarkers flag an area value expressed in tsubo rather than sqm.
var tsuboMarkers = []string{"坪", "tsubo"}

// Extracted holds the fields the extraction sub-call pulled out of the
// attachments. All fields are optional; a failed extraction yields the zero
// value.
type Extracted struct {
	Layout       string   `json:"layout"`
	AreaSqm      string   `json:"area_sqm"`
	Region       string   `json:"region"`
	Address      string   `json:"address"`
	BuildingType string   `json:"building_type"`
	Rooms        string   `json:"rooms"`
	YearBuilt    string   `json:"year_built"`
	Notes        string   `json:"notes"`
	Features     []string `json:"features"`
	Summary      string   `json:"summary"`
}

// Merge combines user input with extracted fields into a canonical profile.
// User input wins per field; extracted values fill the gaps. The merged
// profile must carry at least one of layout, area, or region.
func Merge(user model.PropertyInput, extracted Extracted) (model.PropertyProfile, error) {
	p := model.PropertyProfile{
		Layout:        cleanString(pick(user.Layout, extracted.Layout)),
		AreaSqm:       ParseArea(pick(user.AreaSqm, extracted.AreaSqm)),
		Region:        cleanString(pick(user.Region, extracted.Region)),
		Address:       cleanString(pick(user.Address, extracted.Address)),
		BuildingType:  cleanString(pick(user.BuildingType, extracted.BuildingType)),
		Rooms:         ParseNumber(pick(user.Rooms, extracted.Rooms)),
		YearBuilt:     ParseNumber(pick(user.YearBuilt, extracted.YearBuilt)),
		Notes:         cleanString(pick(user.Notes, extracted.Notes)),
		SourceSummary: cleanString(extracted.Summary),
	}

	if len(user.Features) > 0 {
		p.Features = cleanFeatures(user.Features)
	} else {
		p.Features = cleanFeatures(extracted.Features)
	}

	if !p.HasSignal() {
		return model.PropertyProfile{}, apperr.Validation(
			"insufficient property detail: provide at least one of layout, area, or region")
	}
	return p, nil
}

// ParseNumber coerces a free-form string to a number. Full-width characters
// are folded to ASCII, then everything but digits, '.', '+', '-' is
// stripped. Returns nil when no valid number remains.
func ParseNumber(s string) *float64 {
	folded := width.Fold.String(strings.TrimSpace(s))
	stripped := nonNumeric.ReplaceAllString(folded, "")
	if stripped == "" {
		return nil
	}
	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseNumberValue coerces a loosely typed JSON value to a number: literal
// numbers pass through, strings go through ParseNumber, everything else is
// nil.
func ParseNumberValue(v any) *float64 {
	switch val := v.(type) {
	case float64:
		f := val
		return &f
	case string:
		return ParseNumber(val)
	default:
		return nil
	}
}

// ParseArea coerces an area string to square meters. A tsubo marker in the
// original string converts the value and rounds to the nearest integer.
func ParseArea(s string) *float64 {
	n := ParseNumber(s)
	if n == nil {
		return nil
	}
	lower := strings.ToLower(s)
	for _, marker := range tsuboMarkers {
		if strings.Contains(lower, marker) {
			v := math.Round(*n * tsuboToSqm)
			return &v
		}
	}
	return n
}

// pick returns the user value when it is non-blank, else the extracted one.
func pick(user, extracted string) string {
	if strings.TrimSpace(user) != "" {
		return user
	}
	return extracted
}

func cleanString(s string) string {
	return strings.TrimSpace(s)
}

func cleanFeatures(in []string) []string {
	var out []string
	for _, f := range in {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
