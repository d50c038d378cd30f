// Package log provides basin's structured logging facade.
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the standard
// library's slog through a bridge handler, so libraries speaking slog or the
// legacy *log.Logger (Pebble does) can be routed through the same
// formatter/output pipeline.
//
// Quick start:
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("resp"), log.Str("ns", "default"))
//	l.Info("server started", log.Int("port", 6379))
package log
