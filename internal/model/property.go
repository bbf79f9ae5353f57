package model

// PropertyProfile is the canonical, merged description of the property being
// estimated. It is built fresh per request from user input and AI-extracted
// document fields; it is never persisted on its own, only embedded in a
// ComparableRecord.
type PropertyProfile struct {
	Layout        string   `json:"layout,omitempty"`
	AreaSqm       *float64 `json:"area_sqm,omitempty"`
	Region        string   `json:"region,omitempty"`
	Address       string   `json:"address,omitempty"`
	BuildingType  string   `json:"building_type,omitempty"`
	Rooms         *float64 `json:"rooms,omitempty"`
	YearBuilt     *float64 `json:"year_built,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Features      []string `json:"features,omitempty"`
	SourceSummary string   `json:"source_summary,omitempty"`
}

// HasSignal reports whether the profile carries enough information to
// estimate against: at least one of layout, area, or region.
func (p PropertyProfile) HasSignal() bool {
	return p.Layout != "" || p.AreaSqm != nil || p.Region != ""
}

// PropertyInput holds the raw, user-typed property fields before
// normalization. Numeric fields arrive as strings so that unit markers
// ("60坪") survive until the normalizer sees them.
type PropertyInput struct {
	Layout       string   `json:"layout,omitempty"`
	AreaSqm      string   `json:"area_sqm,omitempty"`
	Region       string   `json:"region,omitempty"`
	Address      string   `json:"address,omitempty"`
	BuildingType string   `json:"building_type,omitempty"`
	Rooms        string   `json:"rooms,omitempty"`
	YearBuilt    string   `json:"year_built,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Features     []string `json:"features,omitempty"`
}
