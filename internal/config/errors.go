package config

// ConfigError reports a failure to resolve settings or load a config file.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return "config: " + e.Op
	}
	return "config: " + e.Op + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }
