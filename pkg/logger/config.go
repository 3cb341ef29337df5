package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // slog text handler
	BackendZap Backend = "zap" // zap core behind a slog handler
)

type Config struct {
	// Common attributes stamped on every record.
	Service    string
	Version    string
	InstanceID string

	// Output control.
	Level   slog.Level
	Env     Env
	Backend Backend // default: zap for stage/prod, std for dev
	Debug   bool

	// Zap sampling under log bursts.
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}
