package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Coordinate is a WGS-84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate is within valid degree ranges.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return eris.Errorf("latitude %f out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return eris.Errorf("longitude %f out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// String formats the coordinate as "lat,lng" with six decimal places,
// the precision the search provider expects in location strings.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// GridCell is one sampled point in an N×N grid. Row and Col are zero-based
// with the center cell at row = col = N/2. Cells are immutable once built;
// their row-major order is the canonical ordering used for task submission
// and result display.
type GridCell struct {
	Row        int        `json:"row"`
	Col        int        `json:"col"`
	Coordinate Coordinate `json:"coordinate"`
}
