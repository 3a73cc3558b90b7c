// Package resolve turns a business name plus optional location text into a
// TargetBusiness descriptor via the places provider: geocode the location
// for a circular bias, then find-place-from-text.
package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/pkg/places"
)

// Bias radius bounds in meters. Values outside are clamped, matching the
// Places API's accepted range.
const (
	minBiasRadiusM     = 1000
	maxBiasRadiusM     = 50000
	defaultBiasRadiusM = 25000
)

// Result is a resolved target plus the full candidate list for operator
// disambiguation.
type Result struct {
	Best       model.TargetBusiness `json:"best"`
	Center     model.Coordinate     `json:"center"`
	Candidates []places.Candidate   `json:"candidates"`
}

// Resolve looks up name, biased toward locationText when provided. The
// first candidate is taken as best; callers needing a different candidate
// pick from Candidates.
func Resolve(ctx context.Context, client places.Client, name, locationText string, radiusM float64) (*Result, error) {
	if name == "" {
		return nil, eris.New("resolve: business name is required")
	}
	if radiusM <= 0 {
		radiusM = defaultBiasRadiusM
	}
	if radiusM < minBiasRadiusM {
		radiusM = minBiasRadiusM
	}
	if radiusM > maxBiasRadiusM {
		radiusM = maxBiasRadiusM
	}

	var bias *places.CircleBias
	if locationText != "" {
		loc, err := client.Geocode(ctx, locationText)
		if err != nil {
			return nil, eris.Wrap(err, "resolve: geocode location bias")
		}
		if loc != nil {
			bias = &places.CircleBias{Center: *loc, RadiusM: radiusM}
		} else {
			zap.L().Warn("location text did not geocode, searching unbiased",
				zap.String("location", locationText),
			)
		}
	}

	candidates, err := client.FindPlace(ctx, name, bias)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: find place")
	}
	if len(candidates) == 0 {
		return nil, eris.Errorf("resolve: no candidates for %q", name)
	}

	best := candidates[0]
	return &Result{
		Best: model.TargetBusiness{
			PlaceID: best.PlaceID,
			Name:    best.Name,
		},
		Center: model.Coordinate{
			Latitude:  best.Location.Lat,
			Longitude: best.Location.Lng,
		},
		Candidates: candidates,
	}, nil
}
