package services

import (
	"errors"
	"fmt"
)

var (
	// auth
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrTokenRevoked       = errors.New("token has been revoked")

	// quota
	ErrQuotaExceeded = errors.New("daily spending limit reached")

	// chat
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrNoPendingClear = errors.New("no clear request is pending")

	// extraction
	ErrUnsupportedFormat = errors.New("unsupported file format, only .txt, .pdf and .docx are supported")
)

// ProviderError is a failure reported by the completion provider or the transport to it.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error (%d): %s", e.StatusCode, e.Message)
	}
	return "provider error: " + e.Message
}

// PersistenceError is a failed usage save. It never aborts a request.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "failed to save usage: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
