package normalizer

import "errors"

// ConfigError reports a table preprocessor definition that can never run.
// It is raised while building transforms, before any data is read.
type ConfigError struct {
	Table  string
	reason error
}

func (e ConfigError) Error() string {
	if e.Table == "" {
		return e.reason.Error()
	}
	return "table " + e.Table + ": " + e.reason.Error()
}

func (e ConfigError) Unwrap() error {
	return e.reason
}

func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}
