package models

// Location is a GeoJSON point with a display address.
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	Address     string    `json:"address" bson:"address"`
}

func NewLocation(address string, latitude, longitude float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
		Address:     address,
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}
