package rlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Config controls the Production logger's verbosity and output format.
type Config struct {
	// Level is the minimum level that reaches Output ("debug", "info",
	// "warn", "error"). Debug records are emitted when Level is "debug" or
	// Debug is set.
	Level string
	// Format is either "json" (structured, one record per line) or "text"
	// (human-readable, for local development).
	Format string
	// Output selects the destination stream: "stdout" or "stderr".
	Output string
	// Debug force-enables debug-level records regardless of Level.
	Debug bool
}

// Production is a dependency-free structured logger. It is deliberately
// simple: one allocation-light JSON/text encode per call, no buffering, no
// background flush goroutine, so every mechanism can default to it without
// worrying about shutdown ordering.
type Production struct {
	component string
	level     string
	debug     bool
	format    string
	output    io.Writer
}

// NewProduction builds a Production logger. component is attached to every
// record, e.g. "resilience/retry".
func NewProduction(cfg Config, component string) *Production {
	out := io.Writer(os.Stdout)
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	format := cfg.Format
	if format == "" {
		format = "json"
	}
	level := strings.ToLower(cfg.Level)
	if level == "" {
		level = "info"
	}
	return &Production{
		component: component,
		level:     level,
		debug:     cfg.Debug || level == "debug",
		format:    format,
		output:    out,
	}
}

func (p *Production) WithComponent(component string) Logger {
	clone := *p
	clone.component = component
	return &clone
}

func (p *Production) Info(msg string, fields map[string]interface{})  { p.emit("INFO", msg, fields, nil) }
func (p *Production) Error(msg string, fields map[string]interface{}) { p.emit("ERROR", msg, fields, nil) }
func (p *Production) Warn(msg string, fields map[string]interface{})  { p.emit("WARN", msg, fields, nil) }
func (p *Production) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.emit("DEBUG", msg, fields, nil)
	}
}

func (p *Production) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.emit("INFO", msg, fields, ctx)
}
func (p *Production) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.emit("ERROR", msg, fields, ctx)
}
func (p *Production) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.emit("WARN", msg, fields, ctx)
}
func (p *Production) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.emit("DEBUG", msg, fields, ctx)
	}
}

func (p *Production) emit(level, msg string, fields map[string]interface{}, ctx context.Context) {
	if !p.levelEnabled(level) {
		return
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if p.format == "text" {
		var b strings.Builder
		fmt.Fprintf(&b, "%s [%s] [%s] %s", timestamp, level, p.component, msg)
		for k, v := range fields {
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
		fmt.Fprintln(p.output, b.String())
		return
	}

	record := make(map[string]interface{}, len(fields)+4)
	record["timestamp"] = timestamp
	record["level"] = level
	record["component"] = p.component
	record["message"] = msg
	for k, v := range fields {
		record[k] = v
	}
	if data, err := json.Marshal(record); err == nil {
		fmt.Fprintln(p.output, string(data))
	}
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func (p *Production) levelEnabled(level string) bool {
	if strings.ToLower(level) == "debug" {
		return p.debug
	}
	min, ok := levelRank[p.level]
	if !ok {
		min = levelRank["info"]
	}
	return levelRank[strings.ToLower(level)] >= min
}
