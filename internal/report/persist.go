// Package report aggregates classified attribute results.
// This file persists a report and its supporting artifacts to disk.
package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nixpr/nixpr/internal/constants"
	nixprerrors "github.com/nixpr/nixpr/internal/errors"
	"github.com/nixpr/nixpr/internal/nix"
)

// LogSource fetches captured build logs from the engine's log store.
type LogSource interface {
	BuildLog(ctx context.Context, attr *nix.Attr) (string, error)
}

// logFetchParallelism bounds concurrent `nix log` invocations during
// persistence.
const logFetchParallelism = 4

// Persist writes the rendered report, per-failed-attribute build logs and
// result symlinks under dir:
//
//	report.md, report.json
//	logs/<attr>.log          one per failed attribute (best-effort)
//	results/<attr>           symlink per built attribute with a path
//	failed_results/<attr>    symlink per failed attribute with a path
//
// Log capture failures are non-fatal: the attribute's log is omitted and a
// warning logged, but the report is still written in full.
func (r *Report) Persist(ctx context.Context, dir string, logs LogSource, logger zerolog.Logger) error {
	if err := os.MkdirAll(dir, constants.DirPerm); err != nil {
		return nixprerrors.Wrapf(err, "failed to create report directory '%s'", dir)
	}

	if err := os.WriteFile(filepath.Join(dir, constants.ReportMarkdownName), []byte(r.Markdown()), constants.FilePerm); err != nil {
		return nixprerrors.Wrap(err, "failed to write markdown report")
	}

	data, err := r.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, constants.ReportJSONName), data, constants.FilePerm); err != nil {
		return nixprerrors.Wrap(err, "failed to write json report")
	}

	r.persistLogs(ctx, dir, logs, logger)
	r.persistSymlinks(dir, logger)

	return nil
}

// persistLogs captures build logs for every failed attribute, a few at a
// time. Each fetch is independently best-effort.
func (r *Report) persistLogs(ctx context.Context, dir string, logs LogSource, logger zerolog.Logger) {
	if logs == nil || len(r.Failed) == 0 {
		return
	}

	logDir := filepath.Join(dir, constants.BuildLogsDirName)
	if err := os.MkdirAll(logDir, constants.DirPerm); err != nil {
		logger.Warn().Err(err).Msg("cannot create build log directory, skipping log capture")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(logFetchParallelism)

	for _, attr := range r.Failed {
		g.Go(func() error {
			text, err := logs.BuildLog(gctx, attr)
			if err != nil {
				logger.Warn().Err(err).Str("attr", attr.Name).Msg("build log unavailable")
				return nil
			}
			path := filepath.Join(logDir, safeFileName(attr.Name)+".log")
			if err := os.WriteFile(path, []byte(text), constants.FilePerm); err != nil {
				logger.Warn().Err(err).Str("attr", attr.Name).Msg("failed to write build log")
			}
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes completion.
	_ = g.Wait()
}

// persistSymlinks links resolvable output paths into results/ and
// failed_results/ for easy inspection. Link failures are non-fatal.
func (r *Report) persistSymlinks(dir string, logger zerolog.Logger) {
	link := func(subdir string, attrs []*nix.Attr) {
		target := filepath.Join(dir, subdir)
		if err := os.MkdirAll(target, constants.DirPerm); err != nil {
			logger.Warn().Err(err).Str("dir", target).Msg("cannot create results directory")
			return
		}
		for _, attr := range attrs {
			if attr.Path == "" {
				continue
			}
			linkPath := filepath.Join(target, safeFileName(attr.Name))
			_ = os.Remove(linkPath)
			if err := os.Symlink(attr.Path, linkPath); err != nil {
				logger.Warn().Err(err).Str("attr", attr.Name).Msg("failed to create result symlink")
			}
		}
	}

	link(constants.ResultsDirName, r.Built)
	link(constants.FailedResultsDir, r.Failed)
}

// safeFileName flattens a dotted attribute path into a single path element.
func safeFileName(attr string) string {
	return strings.ReplaceAll(strings.ReplaceAll(attr, string(os.PathSeparator), "_"), "..", "_")
}
