// Package grid builds the deterministic set of sample coordinates around a
// business location. One cell maps to one independent provider search task.
package grid

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rankgrid/internal/model"
)

// earthRadiusMeters is the WGS-84 equatorial radius used for the
// meters-to-degrees conversion.
const earthRadiusMeters = 6378137.0

// Build generates a size×size grid of cells centered on center, spaced
// spacingMeters apart, in row-major order. Size must be an odd positive
// integer; the center cell's coordinate equals the input center exactly.
//
// Longitude spacing is divided by cos(latitude) so cells stay square away
// from the equator; without the correction the grid skews into a rectangle
// as |latitude| grows.
func Build(center model.Coordinate, size int, spacingMeters float64) ([]model.GridCell, error) {
	if err := center.Validate(); err != nil {
		return nil, eris.Wrap(err, "grid: invalid center")
	}
	if size < 1 || size%2 == 0 {
		return nil, eris.Errorf("grid: size must be an odd positive integer, got %d", size)
	}
	if spacingMeters <= 0 {
		return nil, eris.Errorf("grid: spacing must be positive, got %f", spacingMeters)
	}

	latStep := spacingMeters / earthRadiusMeters * 180 / math.Pi
	lngStep := spacingMeters / (earthRadiusMeters * math.Cos(center.Latitude*math.Pi/180)) * 180 / math.Pi

	half := size / 2
	cells := make([]model.GridCell, 0, size*size)
	for r := -half; r <= half; r++ {
		for c := -half; c <= half; c++ {
			cells = append(cells, model.GridCell{
				Row: r + half,
				Col: c + half,
				Coordinate: model.Coordinate{
					Latitude:  center.Latitude + float64(r)*latStep,
					Longitude: center.Longitude + float64(c)*lngStep,
				},
			})
		}
	}
	return cells, nil
}
