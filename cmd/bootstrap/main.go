package main

import (
	"context"
	"os"

	"github.com/aws/aws-xray-sdk-go/xray"
	adapterlogger "practice-governance/internal/adapters/logger"
	"practice-governance/internal/platform/server"
)

func main() {
	ctx := context.Background()
	cfg, err := server.LoadConfig(os.Getenv)
	if err != nil {
		adapterlogger.New(adapterlogger.ParseLevel("")).Error(ctx, "configuration error", "error", err)
		os.Exit(1)
	}
	logger := adapterlogger.New(cfg.LogLevel)
	xray.Configure(xray.Config{LogLevel: "error"})

	e, err := server.NewRouter(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize router", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "starting http server", "port", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
