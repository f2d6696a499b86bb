package index

import (
	"context"
	"sync"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"

	"github.com/dhconnelly/rtreego"
)

// pointTolerance is the tiny rectangle a driver position occupies in the tree.
const pointTolerance = 0.0001

type driverItem struct {
	presence model.DriverPresence
	rect     rtreego.Rect
}

func (d *driverItem) Bounds() rtreego.Rect {
	return d.rect
}

// RTreeRegistry is the spatial-index variant of the driver registry, for driver
// pools where the linear scan stops being cheap. Same contract as ScanRegistry.
type RTreeRegistry struct {
	mu    sync.Mutex
	tree  *rtreego.Rtree
	items map[int64]*driverItem
}

func NewRTreeRegistry() *RTreeRegistry {
	return &RTreeRegistry{
		tree:  rtreego.NewTree(2, 25, 50),
		items: make(map[int64]*driverItem),
	}
}

var _ ports.IDriverIndex = (*RTreeRegistry)(nil)

func (r *RTreeRegistry) Upsert(ctx context.Context, p model.DriverPresence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.items[p.DriverID]; ok {
		r.tree.Delete(old)
		delete(r.items, p.DriverID)
	}
	if !p.HasLocation() {
		// nothing to place in the tree yet; the driver shows up on the
		// first location report
		return nil
	}

	item := &driverItem{
		presence: p,
		rect:     rtreego.Point{*p.Latitude, *p.Longitude}.ToRect(pointTolerance),
	}
	r.tree.Insert(item)
	r.items[p.DriverID] = item
	return nil
}

func (r *RTreeRegistry) Remove(ctx context.Context, driverID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.items[driverID]; ok {
		r.tree.Delete(old)
		delete(r.items, driverID)
	}
	return nil
}

func (r *RTreeRegistry) Candidates(ctx context.Context, box model.BoundingBox) ([]model.DriverPresence, error) {
	height := box.Height()
	width := box.Width()
	if height <= 0 {
		height = pointTolerance
	}
	if width <= 0 {
		width = pointTolerance
	}

	rect, err := rtreego.NewRect(rtreego.Point{box.MinLat, box.MinLng}, []float64{height, width})
	if err != nil {
		return nil, myerrors.Internal("build search rect", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	results := r.tree.SearchIntersect(rect)
	out := make([]model.DriverPresence, 0, len(results))
	for _, s := range results {
		if item, ok := s.(*driverItem); ok {
			out = append(out, item.presence)
		}
	}
	return out, nil
}
