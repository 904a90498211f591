// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/agent"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/auth"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/health"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/history"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/orchestrator"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/prompt"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/render"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/server"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/singleton"
)

var (
	address         = flag.String("address", "", "The address to bind the server to")
	port            = flag.Int("port", 0, "The port to bind the server to")
	logLevel        = flag.String("log-level", "", "Logging level: debug, info, warn, error, fatal")
	logFile         = flag.String("log-file", "", "Log file path (default: stdout)")
	version         = flag.Bool("version", false, "Show version information and exit")
	aiProvider      = flag.String("ai-provider", "", "AI provider: openai, gemini or anthropic (default: gemini)")
	aiBaseURL       = flag.String("ai-base-url", "", "Custom base URL for OpenAI-compatible endpoints (e.g. Ollama, vLLM, Groq, LiteLLM)")
	aiModel         = flag.String("ai-model", "", "AI model to use for chat")
	aiMaxIterations = flag.Int("ai-max-iterations", 0, "Maximum model/tool round trips per message (default: 10)")
	toolServers     = flag.String("tool-servers", "", "Tool servers as name=url pairs separated by commas")
	healthSchedule  = flag.String("health-schedule", "", "Cron schedule for tool server health probes (empty disables)")
	redisURL        = flag.String("redis-url", "", "Redis URL for conversation history")
	lockPath        = flag.String("lock-path", "", "Singleton lock file path")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg := loadConfig()

	// Show version and exit if requested
	if *version {
		log.Printf("%s version %s", cfg.Server.Name, cfg.Server.Version)
		os.Exit(0)
	}

	// Create a context that will be cancelled on interrupt signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the application
	app, err := createApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Start the application
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for termination signal
	waitForShutdown(cancel, app)
}

// loadConfig loads configuration from environment and command line flags
func loadConfig() *config.Config {
	// Start with defaults
	cfg := config.DefaultConfig()

	// Override with environment variables
	config.FromEnv(cfg)

	// Override with command-line flags
	applyCommandLineFlagsToConfig(cfg)

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// applyCommandLineFlagsToConfig applies command line flags to the configuration
func applyCommandLineFlagsToConfig(cfg *config.Config) {
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.FilePath = *logFile
	}
	if *aiProvider != "" {
		cfg.AI.Provider = *aiProvider
	}
	if *aiBaseURL != "" {
		cfg.AI.BaseURL = *aiBaseURL
	}
	if *aiModel != "" {
		cfg.AI.Model = *aiModel
	}
	if *aiMaxIterations > 0 {
		cfg.AI.MaxToolIterations = *aiMaxIterations
	}
	if *toolServers != "" {
		if servers := config.ParseServerList(*toolServers); len(servers) > 0 {
			cfg.Tools.Servers = servers
		}
	}
	if *healthSchedule != "" {
		cfg.Tools.HealthSchedule = *healthSchedule
	}
	if *redisURL != "" {
		cfg.History.RedisURL = *redisURL
	}
	if *lockPath != "" {
		cfg.Tools.LockFilePath = *lockPath
	}
}

// Application represents the running application
type Application struct {
	lock         *singleton.Lock
	orchestrator *orchestrator.Orchestrator
	monitor      *health.Monitor
	server       *server.Server
	logger       *logging.Logger
}

// createApp creates a new application instance
func createApp(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logging.SetDefaultLogger(logger)

	// Only one agent instance may own the tool sessions and history writes
	lock, isPrimary, err := singleton.TryAcquire(cfg.Tools.LockFilePath)
	if err != nil {
		return nil, fmt.Errorf("acquire singleton lock: %w", err)
	}
	if !isPrimary {
		return nil, fmt.Errorf("another agent instance is already running (lock: %s)", cfg.Tools.LockFilePath)
	}

	// Connect to the tool servers
	orch := orchestrator.New(&cfg.Tools, logger)
	if err := orch.Connect(ctx); err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("connect tool servers: %w", err)
	}

	// Conversation history
	hist, err := history.NewStore(&cfg.History, logger)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("create history store: %w", err)
	}

	// Model provider and agent loop
	provider, err := agent.NewModelProvider(cfg)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("create model provider: %w", err)
	}
	loop := agent.NewLoop(cfg, provider, orch, hist, prompt.System(), logger)

	// HTML renderer; degrades to escaped text when the render model is
	// unavailable
	renderKey := cfg.AI.GeminiAPIKey
	if renderKey == "" {
		renderKey = cfg.AI.APIKey
	}
	var renderer server.Renderer
	htmlRenderer, err := render.NewHTMLTransformer(renderKey, cfg.AI.RenderModel, logger)
	if err != nil {
		logger.Warnf("Render model unavailable, responses will use escaped text: %v", err)
		renderer = render.NewHTMLTransformerWithGenerator(func(context.Context, string, string) (string, error) {
			return "", fmt.Errorf("render model not configured")
		}, logger)
	} else {
		renderer = htmlRenderer
	}

	monitor := health.NewMonitor(orch, cfg.Tools.HealthSchedule, logger)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	srv := server.NewServer(cfg, loop, renderer, verifier, logger)

	return &Application{
		lock:         lock,
		orchestrator: orch,
		monitor:      monitor,
		server:       srv,
		logger:       logger,
	}, nil
}

// newLogger builds the process logger from the logging configuration
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.FilePath != "" {
		return logging.FileLogger(cfg.Logging.FilePath, level)
	}
	return logging.New(logging.Options{Level: level}), nil
}

// Start starts the application
func (a *Application) Start(ctx context.Context) error {
	if err := a.monitor.Start(ctx); err != nil {
		return err
	}
	a.logger.Infof("Tool server health monitor started")

	if err := a.server.Start(ctx); err != nil {
		return err
	}
	a.logger.Infof("Chat server started")

	return nil
}

// Stop stops the application
func (a *Application) Stop() error {
	a.monitor.Stop()
	a.logger.Infof("Health monitor stopped")

	if err := a.server.Stop(); err != nil {
		a.logger.Errorf("Error stopping chat server: %v", err)
		return err
	}
	a.logger.Infof("Chat server stopped")

	if err := a.orchestrator.Close(); err != nil {
		a.logger.Warnf("Error closing tool sessions: %v", err)
	}
	a.logger.Infof("Tool sessions closed")

	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			a.logger.Warnf("Error releasing singleton lock: %v", err)
		}
	}

	return nil
}

// waitForShutdown waits for termination signals and performs cleanup
func waitForShutdown(cancel context.CancelFunc, app *Application) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	<-signalCh
	app.logger.Infof("Received termination signal, shutting down...")

	// Cancel the context to initiate shutdown
	cancel()

	// Stop the application with a timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	shutdownDone := make(chan struct{})
	go func() {
		if err := app.Stop(); err != nil {
			app.logger.Errorf("Error during shutdown: %v", err)
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		app.logger.Infof("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		app.logger.Warnf("Shutdown timed out")
	}
}
