package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/mechnet/internal/config"
	"github.com/vk/mechnet/internal/ctxlog"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelPath string

	// Trials overrides the model file's run block when positive.
	Trials int
	// Context selects the execution context to evaluate under.
	Context string

	LogFormat string
	LogLevel  string
}

// NewConfig validates an app configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("ModelPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and the
// loaded model.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	logger.Debug("Model loaded and translated into unified form.",
		"nodes", len(model.Nodes), "projections", len(model.Projections))

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  model,
	}, nil
}

// Model returns the loaded model. This is primarily for testing.
func (a *App) Model() *config.Model { return a.model }
