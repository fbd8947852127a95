// Package git provides git operations for nixpr.
// This file implements the revision fetcher.
package git

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nixpr/nixpr/internal/constants"
	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// Fetcher resolves symbolic refs on a remote to concrete commit hashes.
//
// Each requested ref is mapped to a private indexed local ref slot
// (refs/nixpr/<i>) in a single forced, non-pruning fetch, then all slots
// are resolved in one rev-parse call. The slot counter is process-wide so concurrent
// fetches against different remotes within one session never collide.
type Fetcher struct {
	repoPath string
	logger   zerolog.Logger

	mu       sync.Mutex
	nextSlot int
}

// NewFetcher creates a Fetcher operating on the repository at repoPath.
func NewFetcher(repoPath string, logger zerolog.Logger) *Fetcher {
	return &Fetcher{repoPath: repoPath, logger: logger}
}

// Fetch fetches the given refs from remote and returns their commit hashes,
// one per input ref, order-preserving. A failure to fetch or resolve any ref
// is an error; partial results are never returned.
func (f *Fetcher) Fetch(ctx context.Context, remote string, refs ...string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	slots := f.reserveSlots(len(refs))

	args := []string{"fetch", "--force", "--no-prune", remote}
	for i, ref := range refs {
		args = append(args, fmt.Sprintf("%s:%s", ref, slots[i]))
	}

	f.logger.Debug().
		Str("remote", remote).
		Strs("refs", refs).
		Msg("fetching refs into local slots")

	if _, err := RunCommand(ctx, f.repoPath, args...); err != nil {
		return nil, fmt.Errorf("fetching %v from %s: %w: %w", refs, remote, nixprerrors.ErrRefNotFound, err)
	}

	out, err := RunCommand(ctx, f.repoPath, append([]string{"rev-parse"}, slots...)...)
	if err != nil {
		return nil, fmt.Errorf("resolving %v (from %v): %w: %w", slots, refs, nixprerrors.ErrRefNotFound, err)
	}
	revs := strings.Fields(out)
	if len(revs) != len(refs) {
		return nil, fmt.Errorf("resolving %v: expected %d revisions, got %d: %w",
			slots, len(refs), len(revs), nixprerrors.ErrRefNotFound)
	}

	return revs, nil
}

// reserveSlots allocates n distinct local ref slot names.
func (f *Fetcher) reserveSlots(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots := make([]string, n)
	for i := range slots {
		slots[i] = fmt.Sprintf("%s%d", constants.RefSlotPrefix, f.nextSlot)
		f.nextSlot++
	}
	return slots
}
