package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nixpr/nixpr/internal/config"
	"github.com/nixpr/nixpr/internal/constants"
	"github.com/nixpr/nixpr/internal/diff"
	nixprerrors "github.com/nixpr/nixpr/internal/errors"
	"github.com/nixpr/nixpr/internal/filter"
	"github.com/nixpr/nixpr/internal/git"
	"github.com/nixpr/nixpr/internal/github"
	"github.com/nixpr/nixpr/internal/nix"
	"github.com/nixpr/nixpr/internal/report"
	"github.com/nixpr/nixpr/internal/workspace"
)

// Result is the outcome of one reviewed target.
type Result struct {
	// Target is the reviewed target.
	Target Target
	// Report classifies every requested attribute into exactly one bucket.
	Report *report.Report
	// Dir is where the report artifacts were preserved, empty when
	// preservation failed.
	Dir string
}

// Options configures a review session.
type Options struct {
	// Config is the merged configuration. Required.
	Config *config.Config
	// RepoPath is the root of the user's package tree checkout. Required.
	RepoPath string
	// Criteria narrows the changed set before building.
	Criteria filter.Criteria
	// NoShell skips the interactive shell into successful results.
	NoShell bool
	// OnResult is called after each target's report is persisted, while the
	// workspace is still alive. May be nil.
	OnResult func(ctx context.Context, res *Result) error
	// Logger receives session progress. Defaults to a disabled logger.
	Logger zerolog.Logger

	// Executor runs the nix subprocesses. Defaults to the real
	// subprocess-backed executor; tests inject a scripted one.
	Executor nix.Executor
	// GitHub overrides the gh-backed client. Defaults to a client for the
	// configured repository.
	GitHub *github.Client
}

// Session runs reviews end to end: it acquires an isolated workspace,
// establishes base and revised trees, diffs the package inventories, builds
// the changed subset and persists a classified report.
type Session struct {
	cfg      *config.Config
	repoPath string
	criteria filter.Criteria
	noShell  bool
	onResult func(ctx context.Context, res *Result) error
	logger   zerolog.Logger
	runID    string

	manager *workspace.Manager
	fetcher *git.Fetcher
	lister  *nix.Lister
	builder *nix.Builder
	gh      *github.Client
}

// New wires a Session from configuration. The returned session is safe for
// sequential use only.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, nixprerrors.ErrConfigNil
	}
	if opts.RepoPath == "" {
		return nil, nixprerrors.Wrap(nixprerrors.ErrEmptyValue, "repository path is required")
	}

	// The run identifier ties the report, its log lines and the preserved
	// artifacts of one invocation together.
	runID := uuid.NewString()
	logger := opts.Logger.With().Str("run_id", runID).Logger()

	manager, err := workspace.NewManager(opts.RepoPath, opts.Config.Cache.Root, logger)
	if err != nil {
		return nil, err
	}

	var cache *nix.InventoryCache
	if opts.Config.Cache.Inventory {
		cache = nix.NewInventoryCache(filepath.Join(manager.CacheRoot(), "inventory"), logger)
	}

	executor := opts.Executor
	if executor == nil {
		executor = nix.NewExecutor()
	}
	gh := opts.GitHub
	if gh == nil {
		gh = github.NewClient(opts.Config.GitHub.Repo, github.WithLogger(logger))
	}

	return &Session{
		cfg:      opts.Config,
		repoPath: opts.RepoPath,
		criteria: opts.Criteria,
		noShell:  opts.NoShell,
		onResult: opts.OnResult,
		logger:   logger,
		runID:    runID,
		manager:  manager,
		fetcher:  git.NewFetcher(opts.RepoPath, logger),
		lister:   nix.NewLister(executor, cache, logger),
		builder:  nix.NewBuilder(executor, logger),
		gh:       gh,
	}, nil
}

// Run reviews every target sequentially. A failing target is recorded and
// the batch continues; ErrTargetsFailed is returned when any target failed.
// An empty working diff aborts the whole batch early.
func (s *Session) Run(ctx context.Context, targets []Target) error {
	if len(targets) == 0 {
		return nixprerrors.Wrap(nixprerrors.ErrEmptyValue, "no review targets given")
	}

	var failed []string
	for _, target := range targets {
		s.logger.Info().Str("target", target.String()).Msg("reviewing")

		if err := s.review(ctx, target); err != nil {
			if errors.Is(err, nixprerrors.ErrEmptyDiff) || errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Error().Err(err).Str("target", target.String()).Msg("target failed")
			failed = append(failed, target.String())
		}
	}

	if len(failed) > 0 {
		return nixprerrors.Wrapf(nixprerrors.ErrTargetsFailed,
			"%d of %d targets failed: %s", len(failed), len(targets), strings.Join(failed, ", "))
	}

	return nil
}

// review runs the full pipeline for one target. The workspace is released
// on every path; a cleanup failure surfaces only when the review itself
// succeeded.
func (s *Session) review(ctx context.Context, target Target) (err error) {
	ch, err := s.resolve(ctx, target)
	if err != nil {
		return err
	}

	ws, err := s.manager.Acquire(ctx, target.Name(), ch.baseRev)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := s.manager.Release(ctx, ws); relErr != nil && err == nil {
			err = relErr
		}
	}()

	attrNames, err := s.changedAttrs(ctx, ws, ch)
	if err != nil {
		return err
	}

	var rep *report.Report
	if len(attrNames) == 0 {
		s.logger.Info().Msg("no packages changed, nothing to build")
		rep = report.Classify(ctx, nil, s.builder, s.system())
	} else {
		if rep, err = s.build(ctx, ws, attrNames); err != nil {
			return err
		}
	}

	// Subject metadata identifies the report regardless of whether anything
	// was built.
	rep.RunID = s.runID
	rep.PR = target.PR
	if target.Rev != "" {
		rep.Revision = ch.headRev
	}

	return s.finish(ctx, target, ws, rep)
}

// resolve dispatches the target into its tagged change variant, fetching
// whatever revisions it needs.
func (s *Session) resolve(ctx context.Context, target Target) (*change, error) {
	switch {
	case target.PR != 0:
		return s.resolvePR(ctx, target.PR)
	case target.Rev != "":
		return s.resolveRev(ctx, target.Rev)
	default:
		return s.resolveWip(ctx)
	}
}

// resolvePR fetches the PR base branch and head in one batch. When CI has
// published an evaluation gist for the head, the precise changed set is
// taken from it and the review runs in commit mode, skipping the
// before-snapshot entirely.
func (s *Session) resolvePR(ctx context.Context, number int) (*change, error) {
	pr, err := s.gh.PR(ctx, number)
	if err != nil {
		return nil, err
	}

	base := pr.Base.Ref
	if base == "" {
		base = s.cfg.Git.BaseBranch
	}

	revs, err := s.fetcher.Fetch(ctx, s.cfg.Git.Remote, base, prHeadRef(number))
	if err != nil {
		return nil, err
	}
	baseRev, headRev := revs[0], revs[1]

	if s.cfg.GitHub.UseEvalGist {
		attrs, gistErr := s.gh.EvalGistAttrs(ctx, pr.Head.SHA, s.system())
		switch {
		case gistErr == nil && len(attrs) > 0:
			s.logger.Info().Int("attrs", len(attrs)).Msg("using CI evaluation result")
			return &change{kind: changeCommit, baseRev: baseRev, headRev: headRev, attrs: attrs}, nil
		case gistErr != nil && !errors.Is(gistErr, nixprerrors.ErrGistNotFound):
			s.logger.Warn().Err(gistErr).Msg("CI evaluation lookup failed, falling back to local diff")
		}
	}

	return &change{kind: changeMerge, baseRev: baseRev, headRev: headRev}, nil
}

// resolveRev reviews a commit against its first parent.
func (s *Session) resolveRev(ctx context.Context, rev string) (*change, error) {
	headRev, err := git.ResolveRev(ctx, s.repoPath, rev)
	if err != nil {
		return nil, err
	}
	baseRev, err := git.ResolveRev(ctx, s.repoPath, headRev+"^")
	if err != nil {
		return nil, err
	}
	return &change{kind: changeCommit, baseRev: baseRev, headRev: headRev}, nil
}

// resolveWip reviews the uncommitted local diff against HEAD. An empty diff
// aborts the session.
func (s *Session) resolveWip(ctx context.Context) (*change, error) {
	patch, err := git.WorkingDiff(ctx, s.repoPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(patch) == "" {
		return nil, nixprerrors.ErrEmptyDiff
	}
	baseRev, err := git.HeadRev(ctx, s.repoPath)
	if err != nil {
		return nil, err
	}
	return &change{kind: changeDiff, baseRev: baseRev, patch: patch}, nil
}

// changedAttrs establishes the revised tree in the workspace and returns
// the sorted changed attribute names after filtering.
func (s *Session) changedAttrs(ctx context.Context, ws *workspace.Workspace, ch *change) ([]string, error) {
	var changedSet map[string]struct{}

	if ch.attrs != nil {
		if err := s.applyChange(ctx, ws, ch); err != nil {
			return nil, err
		}
		changedSet = make(map[string]struct{}, len(ch.attrs))
		for _, name := range ch.attrs {
			changedSet[name] = struct{}{}
		}
	} else {
		before, err := s.lister.List(ctx, ws.Worktree, s.system(), false)
		if err != nil {
			return nil, err
		}
		if err := s.applyChange(ctx, ws, ch); err != nil {
			return nil, err
		}
		after, err := s.lister.List(ctx, ws.Worktree, s.system(), true)
		if err != nil {
			return nil, err
		}

		changed, removed := diff.Changed(before, after)
		if len(removed) > 0 {
			s.logger.Info().Int("count", len(removed)).Msg("packages removed by the change")
		}
		changedSet = diff.AttrSet(changed)
	}

	filtered, err := filter.Apply(changedSet, s.criteria, s.logger)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(filtered))
	for name := range filtered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// applyChange turns the base checkout into the revised tree.
func (s *Session) applyChange(ctx context.Context, ws *workspace.Workspace, ch *change) error {
	switch ch.kind {
	case changeMerge:
		s.logger.Debug().Str("rev", git.ShortRev(ch.headRev)).Msg("merging head")
		return git.Merge(ctx, ws.Worktree, ch.headRev)
	case changeCommit:
		s.logger.Debug().Str("rev", git.ShortRev(ch.headRev)).Msg("checking out")
		return git.Checkout(ctx, ws.Worktree, ch.headRev)
	case changeDiff:
		patchFile := filepath.Join(ws.Dir, "wip.patch")
		if err := os.WriteFile(patchFile, []byte(ch.patch), constants.FilePerm); err != nil {
			return nixprerrors.Wrap(err, "failed to stage local diff")
		}
		s.logger.Debug().Msg("applying local diff")
		return git.ApplyPatch(ctx, ws.Worktree, patchFile)
	default:
		return nixprerrors.Wrapf(nixprerrors.ErrGitOperation, "unknown change kind %d", ch.kind)
	}
}

// build runs the batch build and classifies every requested attribute.
// The configured build timeout bounds only the build pipeline, not the
// surrounding bookkeeping.
func (s *Session) build(ctx context.Context, ws *workspace.Workspace, attrNames []string) (*report.Report, error) {
	buildCtx := ctx
	if s.cfg.Nix.BuildTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, s.cfg.Nix.BuildTimeout)
		defer cancel()
	}

	attrs, err := s.builder.Build(buildCtx, nix.BuildOptions{
		Worktree:  ws.Worktree,
		WorkDir:   ws.Dir,
		Env:       ws.Env(),
		Attrs:     attrNames,
		System:    s.system(),
		ExtraArgs: s.cfg.Nix.BuildArgs,
	})
	if err != nil {
		return nil, err
	}

	return report.Classify(ctx, attrs, s.builder, s.system()), nil
}

// finish persists the report, hands it to the result hook and drops the
// user into a shell with the successful results unless disabled.
func (s *Session) finish(ctx context.Context, target Target, ws *workspace.Workspace, rep *report.Report) error {
	if err := rep.Persist(ctx, ws.ReportDir(), s.builder, s.logger); err != nil {
		return err
	}

	dir, err := s.manager.KeepReport(ws, filepath.Join(s.manager.CacheRoot(), constants.ReportDirName))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to preserve report artifacts")
		dir = ""
	}

	res := &Result{Target: target, Report: rep, Dir: dir}
	if s.onResult != nil {
		if err := s.onResult(ctx, res); err != nil {
			return err
		}
	}

	if !s.noShell {
		if succeeded := rep.Succeeded(); len(succeeded) > 0 {
			names := make([]string, 0, len(succeeded))
			for _, a := range succeeded {
				names = append(names, a.Name)
			}
			s.logger.Info().Int("attrs", len(names)).Msg("entering shell with built packages")
			if err := nix.Shell(ctx, ws.Worktree, ws.Dir, ws.Env(), names); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Session) system() string {
	return s.cfg.Nix.System
}

// prHeadRef is the hidden ref a code host exposes for a PR's head commit.
func prHeadRef(number int) string {
	return fmt.Sprintf("pull/%d/head", number)
}
