// Package config loads and validates the iotops configuration.
package config

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}
