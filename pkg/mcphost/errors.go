package mcphost

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed server spec. It is returned before any
// connection attempt so bad configuration fails fast.
type ConfigError struct {
	Server string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("mcphost: server %q: %s", e.Server, e.Reason)
	}
	return fmt.Sprintf("mcphost: server %q: %s (field %q)", e.Server, e.Reason, e.Field)
}

// NotReadyError reports an operation attempted while a client is outside the
// ready state.
type NotReadyError struct {
	Server string
	Status Status
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("mcphost: server %q is not ready (status %s)", e.Server, e.Status)
}

// IsNotReady reports whether err is (or wraps) a NotReadyError.
func IsNotReady(err error) bool {
	var nr *NotReadyError
	return errors.As(err, &nr)
}

// SecretError reports a failed secret resolution. The message names the
// reference that failed, never the resolved value.
type SecretError struct {
	Ref    string
	Reason string
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("mcphost: resolve %s: %s", e.Ref, e.Reason)
}
