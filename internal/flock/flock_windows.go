//go:build windows

// Package flock provides cross-platform file locking utilities.
package flock

import "golang.org/x/sys/windows"

// LockFileEx/UnlockFileEx parameters. The lock covers a single byte,
// which on Windows is enough to make the whole file mutually exclusive
// for our purposes.
// See: https://learn.microsoft.com/en-us/windows/win32/api/fileapi/nf-fileapi-lockfileex
const (
	lockReserved  = 0 // reserved, must be zero
	lockBytesLow  = 1 // low 32 bits of the locked byte range
	lockBytesHigh = 0 // high 32 bits of the locked byte range
)

// Exclusive takes a non-blocking exclusive lock on the file handle. If
// another process already holds the lock the call fails instead of waiting.
func Exclusive(fd uintptr) error {
	return windows.LockFileEx(
		windows.Handle(fd),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		lockReserved,
		lockBytesLow,
		lockBytesHigh,
		&windows.Overlapped{},
	)
}

// Unlock releases the lock held on the file handle.
func Unlock(fd uintptr) error {
	return windows.UnlockFileEx(
		windows.Handle(fd),
		lockReserved,
		lockBytesLow,
		lockBytesHigh,
		&windows.Overlapped{},
	)
}
