// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/farmapi"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/farmtools"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
)

var (
	address    = flag.String("address", "", "The address to bind the tool server to")
	port       = flag.Int("port", 0, "The port to bind the tool server to")
	apiBaseURL = flag.String("api-base-url", "", "Base URL of the farm management REST API")
	logLevel   = flag.String("log-level", "", "Logging level: debug, info, warn, error, fatal")
	logFile    = flag.String("log-file", "", "Log file path (default: stdout)")
	version    = flag.Bool("version", false, "Show version information and exit")
)

func main() {
	flag.Parse()

	cfg := loadConfig()

	if *version {
		log.Printf("farm-tools version %s", cfg.Server.Version)
		os.Exit(0)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	logging.SetDefaultLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := farmapi.NewClient(&cfg.Farm, logger)
	srv := farmtools.NewServer(cfg, api, logger)

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to start tool server: %v", err)
	}

	waitForShutdown(cancel, srv, logger)
}

// loadConfig loads configuration from environment and command line flags
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	config.FromEnv(cfg)

	if *address != "" {
		cfg.Farm.Address = *address
	}
	if *port != 0 {
		cfg.Farm.Port = *port
	}
	if *apiBaseURL != "" {
		cfg.Farm.APIBaseURL = *apiBaseURL
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.FilePath = *logFile
	}

	if cfg.Farm.Port < 1 || cfg.Farm.Port > 65535 {
		log.Fatalf("Invalid configuration: invalid tool server port: %d", cfg.Farm.Port)
	}

	return cfg
}

// newLogger builds the process logger from the logging configuration
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.FilePath != "" {
		return logging.FileLogger(cfg.Logging.FilePath, level)
	}
	return logging.New(logging.Options{Level: level}), nil
}

// waitForShutdown waits for termination signals and performs cleanup
func waitForShutdown(cancel context.CancelFunc, srv *farmtools.Server, logger *logging.Logger) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	<-signalCh
	logger.Infof("Received termination signal, shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	shutdownDone := make(chan struct{})
	go func() {
		if err := srv.Stop(); err != nil {
			logger.Errorf("Error during shutdown: %v", err)
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Infof("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		logger.Warnf("Shutdown timed out")
	}
}
