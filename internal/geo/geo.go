// Package geo converts between the dataset's plain coordinate types and
// GIS geometry. Archive rows store geometry in WKB via simplefeatures;
// circuit locations arrive as EPSG 4326 lat/long and are stored as 3857
// so the SQLite backend needs no spatial awareness.
package geo

import (
	"errors"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// ErrTooFewPoints is returned when an outline has fewer than two points.
var ErrTooFewPoints = errors.New("outline must have at least 2 points")

// CircuitLocation3857 converts a circuit's longitude/latitude to a
// web-mercator point for the archive map index.
func CircuitLocation3857(longitude, latitude float64) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
}

// OutlineToLineString converts a track or pit-lane outline into a
// LineString for geometry storage.
func OutlineToLineString(points []telemetry.TrackPoint) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, ErrTooFewPoints
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}

// OutlineFromLineString converts stored geometry back into the dataset's
// plain outline form.
func OutlineFromLineString(ls geom.LineString) []telemetry.TrackPoint {
	seq := ls.Coordinates()
	points := make([]telemetry.TrackPoint, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		points[i] = telemetry.TrackPoint{X: xy.X, Y: xy.Y}
	}
	return points
}

// Downsample keeps every nth point of a position array, always retaining
// the final point so interpolation can still reach the end of the lap.
// The upstream provider samples densely; a factor around 10 matches what
// the display layer needs.
func Downsample(points []telemetry.TrackPoint, n int) []telemetry.TrackPoint {
	if n <= 1 || len(points) <= 2 {
		return points
	}
	out := make([]telemetry.TrackPoint, 0, len(points)/n+2)
	for i := 0; i < len(points); i += n {
		out = append(out, points[i])
	}
	if last := points[len(points)-1]; out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}
