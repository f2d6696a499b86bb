package index

import (
	"context"
	"sync"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/ports"
)

// ScanRegistry is the reference driver index: a guarded map with a linear
// bounding-box scan. Fine for small driver counts; the R-tree variant exists
// for pools where the scan starts to hurt.
type ScanRegistry struct {
	mu      sync.RWMutex
	drivers map[int64]model.DriverPresence
}

func NewScanRegistry() *ScanRegistry {
	return &ScanRegistry{
		drivers: make(map[int64]model.DriverPresence),
	}
}

var _ ports.IDriverIndex = (*ScanRegistry)(nil)

func (r *ScanRegistry) Upsert(ctx context.Context, p model.DriverPresence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[p.DriverID] = p
	return nil
}

func (r *ScanRegistry) Remove(ctx context.Context, driverID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drivers, driverID)
	return nil
}

func (r *ScanRegistry) Candidates(ctx context.Context, box model.BoundingBox) ([]model.DriverPresence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.DriverPresence
	for _, p := range r.drivers {
		if !p.HasLocation() {
			continue
		}
		if box.Contains(*p.Latitude, *p.Longitude) {
			out = append(out, p)
		}
	}
	return out, nil
}
