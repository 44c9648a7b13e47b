package language

import "errors"

// Sentinel errors for the language package.
var (
	// ErrNoLanguages indicates an empty supported set.
	ErrNoLanguages = errors.New("language: at least one supported language is required")

	// ErrUnsupportedDefault indicates the default language is not in the supported set.
	ErrUnsupportedDefault = errors.New("language: default language is not supported")

	// ErrInvalidThreshold indicates a relative distance outside [0, 0.99].
	ErrInvalidThreshold = errors.New("language: relative distance must be in [0, 0.99]")
)
