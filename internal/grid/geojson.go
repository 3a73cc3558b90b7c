package grid

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/sells-group/rankgrid/internal/model"
)

// GeoJSON renders the grid as a point FeatureCollection so operators can
// overlay the sampling pattern on any map tool. Feature properties carry
// the cell's row, col and canonical index.
func GeoJSON(cells []model.GridCell) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, cell := range cells {
		f := geojson.NewFeature(orb.Point{cell.Coordinate.Longitude, cell.Coordinate.Latitude})
		f.Properties["row"] = cell.Row
		f.Properties["col"] = cell.Col
		f.Properties["index"] = i
		fc.Append(f)
	}
	return fc
}
