package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-xray-sdk-go/xray"
	adapterlogger "practice-governance/internal/adapters/logger"
	lambdahandler "practice-governance/internal/platform/lambda"
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
	lambda.Start(lambdahandler.NewHandler(e, logger))
}
