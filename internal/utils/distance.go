package utils

import (
	"math"
)

const EarthRadiusKM = 6371.0

// GreatCircleDistance returns the haversine distance in kilometers between two
// points given in degrees.
func GreatCircleDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// RoundDistance rounds kilometers to two decimals.
func RoundDistance(km float64) float64 {
	return math.Round(km*100) / 100
}
