package llm

import "fmt"

// ConfigurationError reports a missing or invalid setting detected while
// building a backend. It is fatal; nothing falls back.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// CompletionError wraps a transport or provider failure of a single chat
// completion. It is never retried.
type CompletionError struct {
	Backend string
	Model   string
	Err     error
}

func (e *CompletionError) Error() string {
	if e == nil {
		return "completion error"
	}
	return fmt.Sprintf("%s completion (model %s) failed: %v", e.Backend, e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
