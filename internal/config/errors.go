package config

import "errors"

// Errors returned by Load and Validate.
var (
	// ErrInvalidConfig carries every validation problem, joined with "; ".
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps file, environment and decoding failures.
	ErrLoadConfig = errors.New("load config failed")
)
