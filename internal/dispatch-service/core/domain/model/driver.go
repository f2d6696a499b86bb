package model

import "time"

// DriverPresence is a driver's availability flag plus last known position.
// Position is nil until the first location report and is never guaranteed fresh.
type DriverPresence struct {
	DriverID    int64
	Available   bool
	Latitude    *float64
	Longitude   *float64
	VehicleType string
	UpdatedAt   time.Time
}

// HasLocation reports whether the driver has ever reported a position.
func (p DriverPresence) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// BoundingBox is a latitude/longitude rectangle in degree space.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

func (b BoundingBox) Height() float64 { return b.MaxLat - b.MinLat }

func (b BoundingBox) Width() float64 { return b.MaxLng - b.MinLng }

func (b BoundingBox) Center() (lat, lng float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}
