package domain

// GeoPoint is a named location on the itinerary of a tour.
// Coordinates follow the GeoJSON convention: longitude first, latitude second.
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address,omitempty"`
	Description string     `json:"description,omitempty"`
	// Day is the itinerary day this stop belongs to. Zero for the start location.
	Day int `json:"day,omitempty"`
}

// Lng returns the point's longitude.
func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }

// Lat returns the point's latitude.
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// IsZero reports whether the point carries no coordinates.
func (p GeoPoint) IsZero() bool {
	return p.Coordinates[0] == 0 && p.Coordinates[1] == 0 && p.Address == ""
}
