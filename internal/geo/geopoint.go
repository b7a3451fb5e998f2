package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Landmark positions are persisted as EPSG:3857 points in WKB form so the
// store can hold them without spatial awareness (SQLite fallback). When the
// map metadata carries a 4326 reference for its origin, local map-frame
// meters are applied as offsets from the projected reference; otherwise the
// raw map-frame coordinates are stored as-is.

// Coords3857From4326 projects a longitude/latitude pair to EPSG:3857.
func Coords3857From4326(longitude, latitude float64) geom.Point {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
}

// LandmarkPoint converts a world/map-frame position into the point persisted
// with a confirmed record.
func LandmarkPoint(meta MapMetadata, x, y float64) geom.Point {
	if !meta.HasGeodeticRef() {
		return geom.NewPoint(geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		})
	}

	ref := Coords3857From4326(meta.RefLongitude, meta.RefLatitude)
	coords, ok := ref.Coordinates()
	if !ok {
		return geom.NewPoint(geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		})
	}
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: coords.X + x, Y: coords.Y + y},
	})
}
