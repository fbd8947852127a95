// Package errors provides centralized error handling for nixpr.
//
// This package defines sentinel errors used for programmatic error
// categorization throughout the application. All error types can be checked
// using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
var (
	// ErrWorkspaceExists indicates a build directory with the requested name
	// already exists, usually left behind by a crashed or concurrent run.
	ErrWorkspaceExists = errors.New("workspace already exists")

	// ErrWorkspaceNotFound indicates the requested workspace does not exist.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrWorkspaceBusy indicates the cache root lock is held by another run.
	ErrWorkspaceBusy = errors.New("workspace cache is locked by another process")

	// ErrCleanupIncomplete indicates workspace teardown could not remove all
	// on-disk state.
	ErrCleanupIncomplete = errors.New("workspace cleanup incomplete")

	// ErrNotGitRepo indicates the path is not inside a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrGitOperation indicates that a git command failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrRefNotFound indicates a ref could not be fetched or resolved.
	ErrRefNotFound = errors.New("ref not found")

	// ErrNixOperation indicates that a nix command failed during execution.
	ErrNixOperation = errors.New("nix operation failed")

	// ErrEvalFailed indicates the batched attribute evaluation could not run
	// or produced unparseable output. Fatal for the current target.
	ErrEvalFailed = errors.New("attribute evaluation failed")

	// ErrBuildInvocation indicates the batch build could not be started at
	// all. Individual attribute build failures are report outcomes, not
	// errors.
	ErrBuildInvocation = errors.New("build invocation failed")

	// ErrMalformedInventory indicates the package listing output could not be
	// parsed.
	ErrMalformedInventory = errors.New("malformed package inventory")

	// ErrUnknownAttribute indicates a user-specified include name is neither
	// in the changed set nor a test attribute.
	ErrUnknownAttribute = errors.New("attribute not in changed set")

	// ErrInvalidRegex indicates a user-specified filter pattern does not
	// compile.
	ErrInvalidRegex = errors.New("invalid filter pattern")

	// ErrEmptyDiff indicates a working-tree review was requested but the
	// local diff is empty.
	ErrEmptyDiff = errors.New("local diff is empty")

	// ErrGitHubOperation indicates a gh CLI invocation failed.
	ErrGitHubOperation = errors.New("github operation failed")

	// ErrPRNotFound indicates the requested pull request was not found.
	ErrPRNotFound = errors.New("pull request not found")

	// ErrGistNotFound indicates no CI evaluation gist exists for the target.
	ErrGistNotFound = errors.New("ci evaluation gist not found")

	// ErrTargetsFailed indicates at least one target in a batch failed to
	// build.
	ErrTargetsFailed = errors.New("one or more targets failed")

	// ErrAttrsFailed indicates the report contains failed attributes. Used
	// for the exit status in no-shell mode.
	ErrAttrsFailed = errors.New("one or more attributes failed to build")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidNix indicates an invalid nix configuration value.
	ErrConfigInvalidNix = errors.New("invalid nix configuration")

	// ErrConfigInvalidGitHub indicates an invalid github configuration value.
	ErrConfigInvalidGitHub = errors.New("invalid github configuration")

	// ErrConfigExists indicates the configuration file already exists.
	ErrConfigExists = errors.New("configuration already exists")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrCommandNotConfigured indicates that a mock command was not
	// configured in tests.
	ErrCommandNotConfigured = errors.New("command not configured")

	// ErrReportNotFound indicates the requested report directory has no
	// persisted report.
	ErrReportNotFound = errors.New("report not found")

	// ErrOperationCanceled indicates the user canceled an operation.
	ErrOperationCanceled = errors.New("operation canceled by user")
)
