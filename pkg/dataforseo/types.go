package dataforseo

import "fmt"

// Task is one maps-search task descriptor for task_post.
type Task struct {
	Keyword            string `json:"keyword"`
	LocationCoordinate string `json:"location_coordinate"`
	Device             string `json:"device,omitempty"`
	LanguageCode       string `json:"language_code,omitempty"`
	Depth              int    `json:"depth,omitempty"`
	LocNameCanonical   bool   `json:"loc_name_canonical"`
	SearchParam        string `json:"search_param,omitempty"`
	Tag                string `json:"tag,omitempty"`
}

// FormatLocation renders the provider's location string: "lat,lng" or
// "lat,lng,15z". The zoom suffix changes result framing for maps-mode
// searches and must be preserved when set.
func FormatLocation(lat, lng float64, zoom string) string {
	if zoom == "" {
		return fmt.Sprintf("%.6f,%.6f", lat, lng)
	}
	return fmt.Sprintf("%.6f,%.6f,%s", lat, lng, zoom)
}

// Rating is the provider's rating object on a maps item.
type Rating struct {
	Value      float64 `json:"value"`
	VotesCount int     `json:"votes_count"`
}

// AddressInfo is the provider's structured address on a maps item.
type AddressInfo struct {
	StreetAddress string `json:"address"`
	City          string `json:"city"`
	Region        string `json:"region"`
	Zip           string `json:"zip"`
	CountryCode   string `json:"country_code"`
}

// Item is one business entry in a completed task result.
type Item struct {
	Type         string       `json:"type"`
	RankGroup    int          `json:"rank_group"`
	RankAbsolute int          `json:"rank_absolute"`
	Title        string       `json:"title"`
	PlaceID      string       `json:"place_id"`
	CID          string       `json:"cid"`
	Phone        string       `json:"phone"`
	Domain       string       `json:"domain"`
	URL          string       `json:"url"`
	Address      string       `json:"address"`
	AddressInfo  *AddressInfo `json:"address_info"`
	Snippet      string       `json:"snippet"`
	Rating       *Rating      `json:"rating"`
}

// DisplayAddress picks the best address representation: the flat address
// string, then joined structured parts, then the snippet.
func (it Item) DisplayAddress() string {
	if it.Address != "" {
		return it.Address
	}
	if ai := it.AddressInfo; ai != nil {
		var parts []string
		for _, p := range []string{ai.StreetAddress, ai.City, ai.Region, ai.Zip, ai.CountryCode} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			return joinParts(parts)
		}
	}
	return it.Snippet
}

func joinParts(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// Website returns the item's website field, preferring domain over url.
func (it Item) Website() string {
	if it.Domain != "" {
		return it.Domain
	}
	return it.URL
}

// TaskResult is the fetched state of one task: the task-level status code
// and message plus the result items, empty until the task completes.
type TaskResult struct {
	ID            string
	StatusCode    int
	StatusMessage string
	Items         []Item
}

// envelope is the common response wrapper on every endpoint.
type envelope struct {
	StatusCode    int            `json:"status_code"`
	StatusMessage string         `json:"status_message"`
	TasksCount    int            `json:"tasks_count"`
	TasksError    int            `json:"tasks_error"`
	Tasks         []taskEnvelope `json:"tasks"`
}

type taskEnvelope struct {
	ID            string       `json:"id"`
	StatusCode    int          `json:"status_code"`
	StatusMessage string       `json:"status_message"`
	Result        []taskResult `json:"result"`
}

type taskResult struct {
	ID    string `json:"id"`
	Items []Item `json:"items"`
}

// statusOK is the provider's envelope-level success code.
const statusOK = 20000

// ProviderError is a non-success response reported by the provider itself,
// as opposed to a transport failure. The status code and message are
// surfaced verbatim (capped) for operator troubleshooting.
type ProviderError struct {
	HTTPStatus int
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("dataforseo: status %d (http %d): %s", e.StatusCode, e.HTTPStatus, e.Message)
}

// maxDiagnosticLen caps provider messages carried in errors.
const maxDiagnosticLen = 300

func capMessage(s string) string {
	if len(s) > maxDiagnosticLen {
		return s[:maxDiagnosticLen]
	}
	return s
}
