// Package places is a thin client for the Google Geocoding and Places
// "find place from text" endpoints, used to resolve a business name into a
// canonical identifier and coordinate.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultGeocodeBaseURL = "https://maps.googleapis.com/maps/api/geocode"
	defaultPlacesBaseURL  = "https://maps.googleapis.com/maps/api/place"
)

// Client performs Google geocoding and place lookups.
type Client interface {
	// Geocode resolves free-form location text to a coordinate. Returns
	// nil without error when the service has no result.
	Geocode(ctx context.Context, text string) (*LatLng, error)
	// FindPlace looks up place candidates for a business name, optionally
	// biased toward a circular area.
	FindPlace(ctx context.Context, input string, bias *CircleBias) ([]Candidate, error)
}

// LatLng is a geographic point in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CircleBias biases a find-place query toward a circular area.
type CircleBias struct {
	Center  LatLng
	RadiusM float64
}

// Candidate is one possible resolution of a business name.
type Candidate struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Location         LatLng `json:"location"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURLs overrides the geocode and places base URLs.
func WithBaseURLs(geocodeURL, placesURL string) Option {
	return func(c *httpClient) {
		c.geocodeBaseURL = geocodeURL
		c.placesBaseURL = placesURL
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey         string
	geocodeBaseURL string
	placesBaseURL  string
	http           *http.Client
}

// NewClient creates a Places client. The API key is a fatal precondition.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("places: missing API key")
	}
	c := &httpClient{
		apiKey:         apiKey,
		geocodeBaseURL: defaultGeocodeBaseURL,
		placesBaseURL:  defaultPlacesBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location LatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *httpClient) Geocode(ctx context.Context, text string) (*LatLng, error) {
	q := url.Values{}
	q.Set("address", text)
	q.Set("key", c.apiKey)

	var out geocodeResponse
	if err := c.get(ctx, c.geocodeBaseURL+"/json?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return nil, nil
	}
	loc := out.Results[0].Geometry.Location
	return &loc, nil
}

type findPlaceResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Candidates   []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location LatLng `json:"location"`
		} `json:"geometry"`
	} `json:"candidates"`
}

func (c *httpClient) FindPlace(ctx context.Context, input string, bias *CircleBias) ([]Candidate, error) {
	q := url.Values{}
	q.Set("inputtype", "textquery")
	q.Set("fields", "place_id,name,geometry,formatted_address")
	q.Set("input", input)
	q.Set("key", c.apiKey)
	if bias != nil {
		q.Set("locationbias", fmt.Sprintf("circle:%d@%f,%f",
			int(bias.RadiusM), bias.Center.Lat, bias.Center.Lng))
	}

	var out findPlaceResponse
	if err := c.get(ctx, c.placesBaseURL+"/findplacefromtext/json?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Status != "OK" {
		return nil, eris.Errorf("places: find place status %s: %s", out.Status, out.ErrorMessage)
	}

	candidates := make([]Candidate, 0, len(out.Candidates))
	for _, cand := range out.Candidates {
		candidates = append(candidates, Candidate{
			PlaceID:          cand.PlaceID,
			Name:             cand.Name,
			FormattedAddress: cand.FormattedAddress,
			Location:         cand.Geometry.Location,
		})
	}
	return candidates, nil
}

func (c *httpClient) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "places: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}
