package beat

import (
	"errors"
	"fmt"
)

// ErrInputExhausted is returned by Tick once the audio source reports
// inactive (spec.md §7, "input exhaustion"). Run treats it as a clean
// stop, not a failure.
var ErrInputExhausted = errors.New("beat: audio source exhausted")

// ConfigError reports a setup-time configuration inconsistency
// (spec.md §7, "configuration inconsistency") — always returned
// before the first tick runs, never mid-stream.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("beat: invalid configuration field %q: %s", e.Field, e.Reason)
}
