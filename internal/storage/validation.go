// Package storage provides the snapshot persistence layer for the receipts application.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validation and lookup errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrNoSnapshot is returned by Load when the slot has never been written.
	ErrNoSnapshot = errors.New("no snapshot stored")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSnapshot rejects payloads that could never be read back.
func validateSnapshot(snapshot []byte) error {
	if len(snapshot) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidSnapshot)
	}
	if !json.Valid(snapshot) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrInvalidSnapshot)
	}
	return nil
}
