package main

import "time"

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

// Pacing constants so the simulator does not hammer a local stack.
const (
	LocationUpdateInterval = 3 * time.Second
	HTTPRequestDelay       = 200 * time.Millisecond
	RidePhaseDelay         = 5 * time.Second
)

// API paths on the dispatch service.
const (
	DriverStatusPath   = "/drivers/status"
	DriverLocationPath = "/drivers/location"
	RideAcceptPath     = "/rides/%d/accept"
	RideStartPath      = "/rides/%d/start"
	RideCompletePath   = "/rides/%d/complete"
	WSDriverPath       = "/ws/drivers/%d"
)
