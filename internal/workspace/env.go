// Package workspace provides isolated build directories for nixpr reviews.
// This file implements the scoped process-environment override.
package workspace

import "os"

// EnvScope is a saved-and-restored process environment mutation. The build
// engine discovers the package tree through NIX_PATH, so the override has to
// live in the process environment for the lifetime of one workspace; the
// scope guarantees the prior state comes back exactly on every exit path.
type EnvScope struct {
	applied bool
	saved   map[string]*string // nil value means the variable was unset
	values  map[string]string
}

// NewEnvScope prepares a scope that will set the given variables.
func NewEnvScope(values map[string]string) *EnvScope {
	return &EnvScope{values: values}
}

// Apply saves the current state of each variable and sets the override.
func (s *EnvScope) Apply() error {
	if s.applied {
		return nil
	}

	s.saved = make(map[string]*string, len(s.values))
	for key, value := range s.values {
		if prev, ok := os.LookupEnv(key); ok {
			prevCopy := prev
			s.saved[key] = &prevCopy
		} else {
			s.saved[key] = nil
		}
		if err := os.Setenv(key, value); err != nil {
			s.restoreSaved()
			return err
		}
	}

	s.applied = true
	return nil
}

// Restore puts every variable back exactly as it was before Apply: reset if
// it existed, unset if it did not. Safe to call when Apply never ran or
// failed partway; idempotent.
func (s *EnvScope) Restore() {
	if s.saved == nil {
		return
	}
	s.restoreSaved()
	s.saved = nil
	s.applied = false
}

func (s *EnvScope) restoreSaved() {
	for key, prev := range s.saved {
		if prev == nil {
			_ = os.Unsetenv(key)
		} else {
			_ = os.Setenv(key, *prev)
		}
	}
}

// Environ returns the override as KEY=VALUE pairs for passing by value into
// subprocess invocations that should not depend on the ambient state.
func (s *EnvScope) Environ() []string {
	env := make([]string, 0, len(s.values))
	for key, value := range s.values {
		env = append(env, key+"="+value)
	}
	return env
}
