package org

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAuthenticated is returned when the org rejects the access token.
	ErrNotAuthenticated = errors.New("org session is invalid or expired, re-authorize the org")

	// ErrRetrieveNotFound is returned when a retrieve job id is unknown to the org.
	ErrRetrieveNotFound = errors.New("retrieve job not found")
)

// APIError is a non-2xx response from the org API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "org API error (HTTP %d)", e.StatusCode)
	if e.ErrorCode != "" {
		fmt.Fprintf(&b, " %s", e.ErrorCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// Unwrap maps well-known status codes to sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrNotAuthenticated
	case 404:
		if e.ErrorCode == "RETRIEVE_NOT_FOUND" {
			return ErrRetrieveNotFound
		}
	}
	return nil
}
