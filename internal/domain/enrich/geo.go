package enrich

import (
	"math"

	"github.com/okian/etaflow/internal/domain/model"
)

const earthRadiusMiles = 3958.8

// Haversine returns the great-circle distance between a and b in miles.
func Haversine(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
