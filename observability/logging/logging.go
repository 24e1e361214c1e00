// Package logging wires structured JSON logging for the staking daemon. Every
// process gets one call to Setup at boot; after that both slog and the
// standard library logger emit tagged JSON lines.
package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// renameAttrs maps slog's built-in keys onto the field names the log pipeline
// expects: timestamp, severity (uppercased) and message.
func renameAttrs(groups []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	return attr
}

// Setup installs the daemon's JSON handler as the slog default and returns a
// logger carrying the service name and, when provided, the environment. The
// standard library logger is bridged through the same handler so legacy
// call sites keep producing structured lines.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: renameAttrs,
	})

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	base := slog.New(handler.WithAttrs(attrs))
	slog.SetDefault(base)

	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
