package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/babycare-backend/internal/app"
	"github.com/yungbote/babycare-backend/internal/platform/shutdown"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		a.Log.Error("Background start failed", "error", err)
		a.Close(context.Background())
		os.Exit(1)
	}

	runErr := a.Run(ctx)

	graceCtx, cancel := shutdown.Grace(a.Cfg.HTTP.ShutdownTimeout.Duration)
	defer cancel()
	if runErr != nil {
		a.Log.Error("Server exited", "error", runErr)
		a.Close(graceCtx)
		os.Exit(1)
	}
	a.Log.Info("Server stopped")
	a.Close(graceCtx)
}
