// Package report aggregates classified attribute results.
// This file renders a report to markdown and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Markdown renders the human-readable report. Output is deterministic for
// identical input: buckets appear in classification order and attributes in
// insertion order.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Result of `nixpr %s` on `%s`\n", r.subject(), r.System)

	for _, bkt := range r.buckets() {
		if len(bkt.attrs) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n### %s %d %s %s:\n",
			bucketSymbol(bkt.key), len(bkt.attrs), plural(len(bkt.attrs)), bkt.label)
		for _, attr := range bkt.attrs {
			if len(attr.Aliases) > 0 {
				fmt.Fprintf(&b, "- %s (aliases: %s)\n", attr.Name, strings.Join(attr.Aliases, ", "))
			} else {
				fmt.Fprintf(&b, "- %s\n", attr.Name)
			}
		}
	}

	if r.Total() == 0 {
		b.WriteString("\nNo changed attributes to build.\n")
	}

	return b.String()
}

// JSON renders the machine-readable report. The schema is stable: system,
// pr/revision, and one array of attribute names per outcome bucket.
func (r *Report) JSON() ([]byte, error) {
	out := map[string]any{
		"system": r.System,
	}
	if r.RunID != "" {
		out["run_id"] = r.RunID
	}
	if r.PR != 0 {
		out["pr"] = r.PR
	}
	if r.Revision != "" {
		out["revision"] = r.Revision
	}
	for _, bkt := range r.buckets() {
		names := make([]string, 0, len(bkt.attrs))
		for _, attr := range bkt.attrs {
			names = append(names, attr.Name)
		}
		out[bkt.key] = names
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}

// subject names what was reviewed for the report heading.
func (r *Report) subject() string {
	if r.PR != 0 {
		return fmt.Sprintf("pr %d", r.PR)
	}
	if r.Revision != "" {
		return fmt.Sprintf("rev %s", r.Revision)
	}
	return "wip"
}

func bucketSymbol(key string) string {
	switch key {
	case "built", "tests":
		return "✅"
	case "failed", "timed_out":
		return "❌"
	default:
		return "⚠️"
	}
}

func plural(n int) string {
	if n == 1 {
		return "package"
	}
	return "packages"
}
