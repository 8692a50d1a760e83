package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/wolfman30/workshop-concierge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/workshop-concierge/internal/config"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	loader := func(ctx context.Context) (*bootstrap.App, error) {
		cfg := appconfig.Load()
		return bootstrap.BuildApp(ctx, cfg, logging.NewWithWriter(os.Stderr, "warn"))
	}
	if err := newRootCmd(loader).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
