package config

import "errors"

var (
	// ErrUnknownEnvironment means the requested environment is not one of the
	// registered overlay names.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrMissingRequired means a mandatory key is absent after all layers
	// were merged.
	ErrMissingRequired = errors.New("missing required configuration")

	// ErrMergeConflict means two inputs disagree about the shape of a
	// configuration path and no precedence rule can resolve them.
	ErrMergeConflict = errors.New("configuration merge conflict")
)
