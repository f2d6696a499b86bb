package services

import (
	"context"
	"math"
	"sort"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"
)

const (
	// DegreesPerKm converts a kilometre radius into a latitude delta.
	DegreesPerKm = 1.0 / 111.0

	DefaultNearbyLimit = 50
)

type MatchingService struct {
	mylog mylogger.Logger
	index ports.IDriverIndex
}

func NewMatchingService(log mylogger.Logger, index ports.IDriverIndex) ports.IMatchingService {
	return &MatchingService{
		mylog: log,
		index: index,
	}
}

// FindNearby returns the available drivers inside the radius box around the
// pickup point, nearest first. The box is a degree-space approximation (radius
// divided by 111 km/degree, longitude adjusted for latitude) and the ranking is
// squared Euclidean distance in degrees; both are fine at city scale. An empty
// result is not an error.
func (ms *MatchingService) FindNearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]model.DriverPresence, error) {
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return nil, myerrors.Validation("invalid search point (%v, %v)", lat, lng)
	}
	if radiusKm <= 0 {
		return nil, myerrors.Validation("radius must be positive")
	}
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	box := SearchBox(lat, lng, radiusKm)

	candidates, err := ms.index.Candidates(ctx, box)
	if err != nil {
		ms.mylog.Action("FindNearby").Error("candidate lookup failed", err)
		return nil, myerrors.Internal("driver index lookup", err)
	}

	// The index may over-approximate; apply the exact contract here.
	matched := make([]model.DriverPresence, 0, len(candidates))
	for _, p := range candidates {
		if !p.Available || !p.HasLocation() {
			continue
		}
		if !box.Contains(*p.Latitude, *p.Longitude) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		return squaredDegreeDistance(matched[i], lat, lng) < squaredDegreeDistance(matched[j], lat, lng)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// SearchBox builds the degree-space bounding box for a radius around a point.
func SearchBox(lat, lng, radiusKm float64) model.BoundingBox {
	dLat := radiusKm * DegreesPerKm
	cos := math.Cos(lat * math.Pi / 180)
	if math.Abs(cos) < 1e-9 {
		cos = 1e-9
	}
	dLng := radiusKm * DegreesPerKm / cos
	return model.BoundingBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: lng - dLng,
		MaxLng: lng + dLng,
	}
}

func squaredDegreeDistance(p model.DriverPresence, lat, lng float64) float64 {
	dLat := *p.Latitude - lat
	dLng := *p.Longitude - lng
	return dLat*dLat + dLng*dLng
}
