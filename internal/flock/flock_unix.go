//go:build unix

// Package flock provides cross-platform file locking utilities.
package flock

import "syscall"

// Exclusive takes a non-blocking exclusive flock(2) on fd. If another
// process already holds the lock the call fails instead of waiting.
func Exclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX|syscall.LOCK_NB)
}

// Unlock drops the flock(2) held on fd.
func Unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
