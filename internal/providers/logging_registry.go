package providers

import (
	"context"
	"fmt"
	"sync/atomic"

	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
)

// logLevels mirrors RFC 5424 severity ordering, matching the
// "oneof" validator on mcpproto.LoggingSetLevelParams.Level.
var logLevels = map[string]int{
	"debug":     0,
	"info":      1,
	"notice":    2,
	"warning":   3,
	"error":     4,
	"critical":  5,
	"alert":     6,
	"emergency": 7,
}

// LogLevelRegistry is a thread-safe LoggingProvider tracking the
// server's current minimum emitted log level, adjustable at runtime
// via "logging/setLevel".
type LogLevelRegistry struct {
	level atomic.Int32
}

// NewLogLevelRegistry constructs a LogLevelRegistry starting at the
// given initial level (must be one of the eight RFC 5424 names).
func NewLogLevelRegistry(initial string) (*LogLevelRegistry, error) {
	rank, ok := logLevels[initial]
	if !ok {
		return nil, ierrors.New("providers", "NewLogLevelRegistry", ierrors.ErrBadRequest, fmt.Errorf("unknown log level %q", initial))
	}
	r := &LogLevelRegistry{}
	r.level.Store(int32(rank))
	return r, nil
}

// SetLevel implements providers.LoggingProvider.
func (r *LogLevelRegistry) SetLevel(ctx context.Context, level string) error {
	rank, ok := logLevels[level]
	if !ok {
		return ierrors.New("providers", "SetLevel", ierrors.ErrBadRequest, fmt.Errorf("unknown log level %q", level))
	}
	r.level.Store(int32(rank))
	return nil
}

// Enabled reports whether a message at level should be emitted given
// the current minimum level.
func (r *LogLevelRegistry) Enabled(level string) bool {
	rank, ok := logLevels[level]
	if !ok {
		return false
	}
	return int32(rank) >= r.level.Load()
}
