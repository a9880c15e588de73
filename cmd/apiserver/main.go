// Command apiserver runs the reaction HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/ARChemistry/internal/bootstrap"
	"github.com/turtacn/ARChemistry/internal/config"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/config.yaml"

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int) error {
	cfg, watched, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if watched {
		if err := app.WatchConfig(configPath); err != nil {
			app.Logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	app.Logger.Info("starting archem API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()),
		logging.String("storage_backend", cfg.Storage.Backend),
	)
	if err := app.Serve(ctx, nil, version); err != nil {
		app.Logger.Error("HTTP server error", logging.Err(err))
		return err
	}
	app.Logger.Info("server stopped")
	return nil
}

// loadConfig reads configPath, or falls back to environment-only
// configuration when the file does not exist.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg, err := config.Load(config.WithConfigPath(path))
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, config.ErrConfigFileNotFound) {
		return nil, false, err
	}
	fmt.Fprintf(os.Stderr, "warning: %v; using environment configuration\n", err)
	cfg, err = config.LoadFromEnv()
	return cfg, false, err
}
