// Package logging assembles structured slog loggers and formatting helpers used
// across the publish daemons.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so batch code can tag log lines
// with the axis, run, and batch identifiers automatically. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every daemon emits
// records with the same keys regardless of which axis it drains.
package logging
