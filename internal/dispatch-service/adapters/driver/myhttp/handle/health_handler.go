package handle

import (
	"context"
	"net/http"
)

// Pinger is what the health endpoint needs from a backing connection.
type Pinger interface {
	IsAlive(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	cache  Pinger
	broker interface{ IsAlive() bool }
}

func NewHealthHandler(db, cache Pinger, broker interface{ IsAlive() bool }) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		broker: broker,
	}
}

func (hh *HealthHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"broker":   "ok",
		}
		healthy := true

		if err := hh.db.IsAlive(r.Context()); err != nil {
			status["database"] = err.Error()
			healthy = false
		}
		if err := hh.cache.IsAlive(r.Context()); err != nil {
			status["cache"] = err.Error()
			healthy = false
		}
		if !hh.broker.IsAlive() {
			status["broker"] = "connection closed"
			healthy = false
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		jsonResponse(w, code, status)
	}
}
