package main

import (
	"context"
	"fmt"
	"os"

	"ride-dispatch/internal/config"
	dispatchservice "ride-dispatch/internal/dispatch-service"
	"ride-dispatch/internal/mylogger"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}

	if err := dispatchservice.Execute(context.Background(), mylog, cfg); err != nil {
		mylog.Error("dispatch service exited with error", err)
		os.Exit(1)
	}
}
