package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/geopaparazzi/tracklog/pkg/core"
)

// GEO POINTS
// Track points are stored with a 3857 geometry column in addition to the
// raw 4326 lon/lat values, because SQLite has no spatial awareness and we
// need point data that map frontends can consume without reprojecting.
// Geometry data is stored in the WKB format.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

const earthRadiusMeters = 6371000.0

// DistanceMeters computes the haversine great-circle distance in meters
// between two WGS84 lat/lon pairs.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// SampleDistance returns the distance in meters between two samples.
func SampleDistance(a, b *core.Sample) float64 {
	return DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// PositionFromString parses a "long,lat" or "long,lat,elev" string into a core.Position.
func PositionFromString(coords string) (core.Position, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Position{}, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(coordsSplit[0], 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(coordsSplit[1], 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	var elev float64
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(coordsSplit[2], 64)
		if err != nil {
			return core.Position{}, ErrInvalidCoordinates
		}
	}
	return core.Position{Longitude: long, Latitude: lat, Elevation: elev}, nil
}

// Coords3857From4326 creates a geometry point in web mercator from a
// WGS84 longitude and latitude.
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	var x, y float64
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	point, err = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	return point, nil
}
