// Package common defines shared constants and sentinel errors used across
// the engine's layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Sync-specific errors.
	ErrorMalformedPayload = errors.New("malformed payload")
	ErrorDecryptFailed    = errors.New("decryption failed")
)
