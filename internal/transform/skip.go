package transform

// SkipRule marks a team abbreviation as having no usable data before a season.
type SkipRule struct {
	Abbrev       string
	BeforeSeason int
}

// DefaultSkipRules lists (team, season) pairs the API lists but has no roster for.
func DefaultSkipRules() []SkipRule {
	return []SkipRule{
		// Utah entered the league in 2024-25; earlier seasons return empty or 404
		{Abbrev: "UTA", BeforeSeason: 20242025},
	}
}

// KnownInvalid reports whether the (abbrev, seasonID) roster request should not be issued
func (t *Transformer) KnownInvalid(abbrev string, seasonID int) bool {
	for _, rule := range t.skipRules {
		if rule.Abbrev == abbrev && seasonID < rule.BeforeSeason {
			return true
		}
	}
	return false
}
