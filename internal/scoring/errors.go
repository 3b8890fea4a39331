package scoring

import "fmt"

// ConfigError is returned for invalid scoring profiles and coverage weights.
type ConfigError struct {
	Profile string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	prefix := "scoring config error"
	if e.Profile != "" {
		prefix = fmt.Sprintf("scoring config error in profile %q", e.Profile)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
