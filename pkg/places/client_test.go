package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key",
		WithBaseURLs(srv.URL+"/geocode", srv.URL+"/place"),
		WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Torrington, CT", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"status": "OK",
			"results": []map[string]any{{
				"geometry": map[string]any{
					"location": map[string]float64{"lat": 41.8007, "lng": -73.1212},
				},
			}},
		})
	})

	loc, err := c.Geocode(context.Background(), "Torrington, CT")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, 41.8007, loc.Lat)
	assert.Equal(t, -73.1212, loc.Lng)
}

func TestGeocodeZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS"}) //nolint:errcheck
	})

	loc, err := c.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestFindPlaceWithBias(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/findplacefromtext/json", r.URL.Path)
		assert.Equal(t, "textquery", r.URL.Query().Get("inputtype"))
		assert.Equal(t, "Acme Plumbing", r.URL.Query().Get("input"))
		assert.Contains(t, r.URL.Query().Get("locationbias"), "circle:25000@")

		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"status": "OK",
			"candidates": []map[string]any{{
				"place_id":          "ChIJ123",
				"name":              "Acme Plumbing",
				"formatted_address": "1 Main St, Torrington, CT",
				"geometry": map[string]any{
					"location": map[string]float64{"lat": 41.8, "lng": -73.12},
				},
			}},
		})
	})

	bias := &CircleBias{Center: LatLng{Lat: 41.8, Lng: -73.12}, RadiusM: 25000}
	candidates, err := c.FindPlace(context.Background(), "Acme Plumbing", bias)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "ChIJ123", candidates[0].PlaceID)
	assert.Equal(t, "1 Main St, Torrington, CT", candidates[0].FormattedAddress)
	assert.Equal(t, 41.8, candidates[0].Location.Lat)
}

func TestFindPlaceNoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS"}) //nolint:errcheck
	})

	_, err := c.FindPlace(context.Background(), "does not exist", nil)
	assert.Error(t, err)
}
