package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nixpr/nixpr/internal/session"
)

var (
	glamourRenderer     *glamour.TermRenderer //nolint:gochecknoglobals // cached renderer for performance
	glamourRendererOnce sync.Once             //nolint:gochecknoglobals // sync.Once for renderer initialization
)

// getGlamourRenderer returns a cached glamour renderer for markdown output.
func getGlamourRenderer() *glamour.TermRenderer {
	glamourRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			glamourRenderer = r
		}
	})
	return glamourRenderer
}

// resultStyles holds the lipgloss styles for the summary line.
type resultStyles struct {
	success lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
}

func newResultStyles() resultStyles {
	return resultStyles{
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF87")).
			Bold(true),
		failure: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080")),
	}
}

// displayResult writes one target's report to stdout. JSON output mode
// emits the machine-readable report; text mode renders the markdown for
// terminals and falls back to raw markdown otherwise.
func displayResult(cmd *cobra.Command, global *GlobalFlags, res *session.Result) error {
	out := cmd.OutOrStdout()

	if global.Output == OutputJSON {
		data, err := res.Report.JSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	}

	markdown := res.Report.Markdown()
	if isTerminal() {
		if renderer := getGlamourRenderer(); renderer != nil {
			if rendered, err := renderer.Render(markdown); err == nil {
				markdown = rendered
			}
		}
	}
	_, _ = fmt.Fprint(out, markdown)

	styles := newResultStyles()
	built := len(res.Report.Built)
	total := res.Report.Total()
	summary := fmt.Sprintf("%d of %d packages built", built, total)
	if res.Report.HasFailures() {
		summary = styles.failure.Render(summary)
	} else {
		summary = styles.success.Render(summary)
	}
	_, _ = fmt.Fprintln(out, summary)
	if res.Dir != "" {
		_, _ = fmt.Fprintln(out, styles.dim.Render("report: "+res.Dir))
	}

	return nil
}

// confirmPost asks before publishing a review comment. Non-interactive
// invocations (no TTY) are treated as consent since the flag was explicit.
func confirmPost(number int) (bool, error) {
	if !isTerminal() {
		return true, nil
	}

	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Post the review result to PR #%d?", number)).
				Description("The markdown report will be published as a comment.").
				Affirmative("Yes, post").
				Negative("No").
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirm, nil
}

// isTerminal is a variable so tests can override terminal detection.
//
//nolint:gochecknoglobals // Required for test injection of terminal detection
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
