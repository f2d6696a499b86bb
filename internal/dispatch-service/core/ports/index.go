package ports

import (
	"context"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
)

// IDriverIndex answers bounding-box candidate queries for the matching engine.
// Candidates may over-approximate (return drivers outside the box or ones that
// just went unavailable); the matching engine applies the exact filter. It must
// never under-approximate: every available driver inside the box is returned.
type IDriverIndex interface {
	Upsert(ctx context.Context, p model.DriverPresence) error
	Remove(ctx context.Context, driverID int64) error
	Candidates(ctx context.Context, box model.BoundingBox) ([]model.DriverPresence, error)
}
