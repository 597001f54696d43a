// Package app wires the cascade together: settings, locations, planning,
// compilation, selection, and execution.
package app

import (
	"io"
	"log/slog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger.
func NewApp(outW io.Writer, config *Config) *App {
	return &App{
		outW:   outW,
		logger: newLogger(config.LogLevel, config.LogFormat, outW),
		config: config,
	}
}
