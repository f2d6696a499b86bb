package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"

	"github.com/go-redis/redis/v8"
	"github.com/mmcloughlin/geohash"
)

const (
	availableKey = "drivers:available"

	// full-resolution hash stored per driver; cell sets are kept for every
	// prefix length so a region query can pick the precision that covers it
	cellPrecision = 6
)

// geohash cell dimensions in degrees per prefix length (lat height, lng width)
var cellSizes = [cellPrecision + 1][2]float64{
	{},
	{45, 45},
	{5.625, 11.25},
	{1.40625, 1.40625},
	{0.17578125, 0.3515625},
	{0.0439453125, 0.0439453125},
	{0.0054931640625, 0.010986328125},
}

// PresenceRepo is the durable driver registry. It satisfies both the presence
// port and the driver index port: each available driver is a member of one
// geohash cell set per prefix length, so Candidates only reads the nine cells
// around the search box instead of every driver.
type PresenceRepo struct {
	rdb   *Redis
	mylog mylogger.Logger
}

func NewPresenceRepo(rdb *Redis, mylog mylogger.Logger) *PresenceRepo {
	return &PresenceRepo{
		rdb:   rdb,
		mylog: mylog,
	}
}

var (
	_ ports.IPresenceRepo = (*PresenceRepo)(nil)
	_ ports.IDriverIndex  = (*PresenceRepo)(nil)
)

func driverKey(driverID int64) string {
	return fmt.Sprintf("driver:%d", driverID)
}

func cellKey(cell string) string {
	return fmt.Sprintf("drivers:cell:%s", cell)
}

func (pr *PresenceRepo) SetAvailability(ctx context.Context, driverID int64, available bool, vehicleType string) error {
	client := pr.rdb.GetClient()

	prev, err := client.HGetAll(ctx, driverKey(driverID)).Result()
	if err != nil {
		return myerrors.Internal("fetch driver presence", err)
	}

	fields := map[string]interface{}{
		"available":  boolField(available),
		"updated_at": time.Now().Format(time.RFC3339Nano),
	}
	if vehicleType != "" {
		fields["vehicle_type"] = vehicleType
	}

	pipe := client.TxPipeline()
	pipe.HSet(ctx, driverKey(driverID), fields)
	if available {
		pipe.SAdd(ctx, availableKey, driverID)
		addCellMembership(ctx, pipe, driverID, prev["geohash"])
	} else {
		pipe.SRem(ctx, availableKey, driverID)
		removeCellMembership(ctx, pipe, driverID, prev["geohash"])
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return myerrors.Internal("store driver availability", err)
	}
	return nil
}

func (pr *PresenceRepo) UpdateLocation(ctx context.Context, driverID int64, lat, lng float64) error {
	client := pr.rdb.GetClient()

	prev, err := client.HGetAll(ctx, driverKey(driverID)).Result()
	if err != nil {
		return myerrors.Internal("fetch driver presence", err)
	}

	hash := geohash.EncodeWithPrecision(lat, lng, cellPrecision)

	pipe := client.TxPipeline()
	pipe.HSet(ctx, driverKey(driverID), map[string]interface{}{
		"latitude":   lat,
		"longitude":  lng,
		"geohash":    hash,
		"updated_at": time.Now().Format(time.RFC3339Nano),
	})
	if prev["available"] == "1" {
		if old := prev["geohash"]; old != hash {
			removeCellMembership(ctx, pipe, driverID, old)
		}
		addCellMembership(ctx, pipe, driverID, hash)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return myerrors.Internal("store driver location", err)
	}
	return nil
}

func (pr *PresenceRepo) Get(ctx context.Context, driverID int64) (model.DriverPresence, error) {
	values, err := pr.rdb.GetClient().HGetAll(ctx, driverKey(driverID)).Result()
	if err != nil {
		return model.DriverPresence{}, myerrors.Internal("fetch driver presence", err)
	}
	if len(values) == 0 {
		return model.DriverPresence{}, myerrors.NotFound("driver %d has no presence record", driverID)
	}
	return parsePresence(driverID, values), nil
}

func (pr *PresenceRepo) ListAvailable(ctx context.Context) ([]model.DriverPresence, error) {
	ids, err := pr.rdb.GetClient().SMembers(ctx, availableKey).Result()
	if err != nil {
		return nil, myerrors.Internal("list available drivers", err)
	}
	return pr.fetchAll(ctx, ids)
}

// Upsert and Remove let the repo double as the driver index; the durable writes
// above already maintain the cell sets, so these are thin re-applications.
func (pr *PresenceRepo) Upsert(ctx context.Context, p model.DriverPresence) error {
	if err := pr.SetAvailability(ctx, p.DriverID, p.Available, p.VehicleType); err != nil {
		return err
	}
	if p.HasLocation() {
		return pr.UpdateLocation(ctx, p.DriverID, *p.Latitude, *p.Longitude)
	}
	return nil
}

func (pr *PresenceRepo) Remove(ctx context.Context, driverID int64) error {
	return pr.SetAvailability(ctx, driverID, false, "")
}

// Candidates reads the geohash cells around the box. The precision is chosen so
// a single cell is at least as large as the box; the center cell plus its eight
// neighbors are then a guaranteed superset of the box contents.
func (pr *PresenceRepo) Candidates(ctx context.Context, box model.BoundingBox) ([]model.DriverPresence, error) {
	prec := coveringPrecision(box)
	if prec == 0 {
		// box wider than the largest cell; fall back to the full pool
		return pr.ListAvailable(ctx)
	}

	lat, lng := box.Center()
	center := geohash.EncodeWithPrecision(lat, lng, prec)
	cells := append(geohash.Neighbors(center), center)

	keys := make([]string, 0, len(cells))
	for _, c := range cells {
		keys = append(keys, cellKey(c))
	}

	ids, err := pr.rdb.GetClient().SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, myerrors.Internal("read driver cells", err)
	}
	return pr.fetchAll(ctx, ids)
}

func (pr *PresenceRepo) fetchAll(ctx context.Context, ids []string) ([]model.DriverPresence, error) {
	client := pr.rdb.GetClient()

	pipe := client.Pipeline()
	cmds := make(map[int64]*redis.StringStringMapCmd, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		cmds[id] = pipe.HGetAll(ctx, driverKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, myerrors.Internal("fetch driver presences", err)
	}

	out := make([]model.DriverPresence, 0, len(cmds))
	for id, cmd := range cmds {
		values, err := cmd.Result()
		if err != nil || len(values) == 0 {
			continue
		}
		out = append(out, parsePresence(id, values))
	}
	return out, nil
}

func addCellMembership(ctx context.Context, pipe redis.Pipeliner, driverID int64, hash string) {
	if hash == "" {
		return
	}
	for p := 1; p <= len(hash); p++ {
		pipe.SAdd(ctx, cellKey(hash[:p]), driverID)
	}
}

func removeCellMembership(ctx context.Context, pipe redis.Pipeliner, driverID int64, hash string) {
	if hash == "" {
		return
	}
	for p := 1; p <= len(hash); p++ {
		pipe.SRem(ctx, cellKey(hash[:p]), driverID)
	}
}

func coveringPrecision(box model.BoundingBox) uint {
	for p := cellPrecision; p >= 1; p-- {
		if cellSizes[p][0] >= box.Height() && cellSizes[p][1] >= box.Width() {
			return uint(p)
		}
	}
	return 0
}

func parsePresence(driverID int64, values map[string]string) model.DriverPresence {
	p := model.DriverPresence{
		DriverID:    driverID,
		Available:   values["available"] == "1",
		VehicleType: values["vehicle_type"],
	}
	if lat, err := strconv.ParseFloat(values["latitude"], 64); err == nil {
		if lng, err := strconv.ParseFloat(values["longitude"], 64); err == nil {
			p.Latitude = &lat
			p.Longitude = &lng
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, values["updated_at"]); err == nil {
		p.UpdatedAt = ts
	}
	return p
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
