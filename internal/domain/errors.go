package domain

import "fmt"

// ConfigError reports invalid station or parameter configuration. It is
// fatal and surfaced before any network call.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// TransportError reports an endpoint failure that exhausted the retry
// budget, or one not worth retrying at all (4xx responses). Err is the
// last underlying cause.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %d attempt(s) failed: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a structurally unusable result set. Individual bad
// rows or values never produce a ParseError; they are skipped.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse: " + e.Reason
}
