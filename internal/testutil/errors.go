// Package testutil provides testing utilities for nixpr.
//
// This package contains mock errors used across test files to simulate
// failure scenarios. It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
var (
	// ErrMockGHFailed indicates a mock gh command failed (used in tests).
	ErrMockGHFailed = errors.New("gh command failed")

	// ErrMockCommandFailed indicates a mock subprocess failed (used in tests).
	ErrMockCommandFailed = errors.New("command failed")

	// ErrMockNotFound indicates a mock resource was not found (used in tests).
	ErrMockNotFound = errors.New("not found")

	// ErrMockNetwork indicates a mock network error occurred (used in tests).
	ErrMockNetwork = errors.New("network error")

	// ErrMockEvalFailed indicates a mock evaluation failure (used in tests).
	ErrMockEvalFailed = errors.New("evaluation failed")
)
