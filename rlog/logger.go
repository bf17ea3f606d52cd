// Package rlog provides the minimal structured-logging abstraction shared by
// every resilience mechanism. It follows the layered-observability approach
// used across the rest of the stack: a small interface the mechanisms depend
// on, a no-op default so construction never requires a logger, and a JSON/text
// production implementation for applications that want real output.
package rlog

import "context"

// Logger is the logging contract every mechanism accepts. It intentionally
// mirrors the shape of loggers found elsewhere in this codebase so adapters
// for zap, zerolog, or a test spy are trivial to write.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAware lets a logger attach a fixed component label (e.g.
// "resilience/circuitbreaker") to every record it emits afterward.
type ComponentAware interface {
	Logger
	WithComponent(component string) Logger
}

// NoOp discards everything. It is the default logger for every mechanism
// config so callers never have to thread a logger through just to get
// started.
type NoOp struct{}

func (NoOp) Info(string, map[string]interface{})  {}
func (NoOp) Error(string, map[string]interface{}) {}
func (NoOp) Warn(string, map[string]interface{})  {}
func (NoOp) Debug(string, map[string]interface{}) {}

func (NoOp) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOp) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOp) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOp) DebugWithContext(context.Context, string, map[string]interface{}) {}

// WithComponent satisfies ComponentAware so call sites can unconditionally
// attach a component name without type-switching on NoOp.
func (NoOp) WithComponent(string) Logger { return NoOp{} }
