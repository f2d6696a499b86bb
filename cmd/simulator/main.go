package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	driverID := flag.Int64("driver_id", 0, "driver id to simulate")
	token := flag.String("token", "", "driver JWT")
	baseURL := flag.String("base_url", "http://localhost:3000", "dispatch service base URL")
	wsURL := flag.String("ws_url", "ws://localhost:3000", "dispatch service websocket URL")
	lat := flag.Float64("lat", 43.238949, "initial latitude")
	lng := flag.Float64("lng", 76.889709, "initial longitude")
	flag.Parse()

	if *driverID <= 0 || *token == "" {
		log.Fatal("driver_id and token are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := &Logger{}
	sim := NewDriverSimulator(ctx, *driverID, *token, *baseURL, *wsURL, *lat, *lng, logger)

	if err := sim.Run(); err != nil {
		logger.Error("simulator stopped: %v", err)
	}
}
