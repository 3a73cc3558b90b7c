package model

// TargetBusiness describes the business whose local visibility is being
// measured. Every field is optional; matching falls through whatever
// signals are absent.
type TargetBusiness struct {
	PlaceID     string `json:"place_id,omitempty"`
	CID         string `json:"cid,omitempty"`
	Phone       string `json:"phone,omitempty"`
	WebsiteHost string `json:"website,omitempty"`
	Name        string `json:"name,omitempty"`
}

// HasSignal reports whether at least one identifying field is populated.
// Matching without any signal is meaningless and always yields no rank.
func (t TargetBusiness) HasSignal() bool {
	return t.PlaceID != "" || t.CID != "" || t.Phone != "" || t.WebsiteHost != "" || t.Name != ""
}

// ResultRecord is one business entry from a cell's search results.
// Records are transient: fetched fresh per poll, never persisted raw.
// A zero RankGroup/RankAbsolute means the provider omitted the field.
type ResultRecord struct {
	RankGroup    int     `json:"rank_group,omitempty"`
	RankAbsolute int     `json:"rank_absolute,omitempty"`
	Title        string  `json:"title,omitempty"`
	PlaceID      string  `json:"place_id,omitempty"`
	CID          string  `json:"cid,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	WebsiteHost  string  `json:"website,omitempty"`
	Address      string  `json:"address,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	RatingCount  int     `json:"rating_count,omitempty"`
}
