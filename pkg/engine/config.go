package engine

import "github.com/rhuss/dolmetsch/pkg/api"

// Config holds configuration for the core engine.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string

	// Validation bounds incoming requests. The zero value applies
	// api.DefaultValidationConfig.
	Validation api.ValidationConfig
}

// validation returns the effective validation configuration.
func (c Config) validation() api.ValidationConfig {
	if c.Validation == (api.ValidationConfig{}) {
		return api.DefaultValidationConfig()
	}
	return c.Validation
}
