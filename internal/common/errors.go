// Package common provides shared utilities and types used across the application.
package common

import "errors"

// Common application errors.
var (
	// Predictor configuration errors.
	ErrMissingAttribute = errors.New("no attribute to predict configured")
	ErrUnknownExtractor = errors.New("unknown feature extractor")

	// Entry processing errors.
	ErrMergeMismatch = errors.New("transaction count mismatch while merging entries")

	// Storage errors.
	ErrNotFound = errors.New("not found")
)
