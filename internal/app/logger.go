package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production emits JSON without source
// annotations; everything else defaults to text with source locations, with
// LOG_FORMAT=json forcing JSON either way.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	switch {
	case cfg != nil && cfg.IsProduction():
		opts.AddSource = false
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case cfg != nil && cfg.LogFormat == "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "gestionexus"))
}
