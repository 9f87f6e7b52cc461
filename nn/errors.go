package nn

import "fmt"

// ConfigError reports a structural problem in a network definition found at
// construction time. Construction aborts; no partial network is usable.
type ConfigError struct {
	msg string
}

// NewConfigError creates a ConfigError with a formatted description.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return "network config: " + e.msg
}
