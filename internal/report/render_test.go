package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixpr/nixpr/internal/nix"
)

func sampleReport() *Report {
	return &Report{
		System: "x86_64-linux",
		PR:     12345,
		Built: []*nix.Attr{
			{Name: "hello", Path: "/nix/store/ok"},
			{Name: "gcc", Path: "/nix/store/gcc", Aliases: []string{"gcc13", "gcc-latest"}},
		},
		Failed: []*nix.Attr{{Name: "flaky", Path: "/nix/store/fa"}},
	}
}

func TestMarkdown(t *testing.T) {
	t.Run("heading names the subject and system", func(t *testing.T) {
		md := sampleReport().Markdown()
		assert.Contains(t, md, "## Result of `nixpr pr 12345` on `x86_64-linux`")
	})

	t.Run("revision subject", func(t *testing.T) {
		r := &Report{System: "x86_64-linux", Revision: "abc123"}
		assert.Contains(t, r.Markdown(), "`nixpr rev abc123`")
	})

	t.Run("wip subject", func(t *testing.T) {
		r := &Report{System: "x86_64-linux"}
		assert.Contains(t, r.Markdown(), "`nixpr wip`")
	})

	t.Run("aliases are listed alongside the canonical name", func(t *testing.T) {
		md := sampleReport().Markdown()
		assert.Contains(t, md, "- gcc (aliases: gcc13, gcc-latest)")
		assert.Contains(t, md, "- hello\n")
	})

	t.Run("empty buckets are omitted", func(t *testing.T) {
		md := sampleReport().Markdown()
		assert.NotContains(t, md, "timed out")
		assert.NotContains(t, md, "blacklisted")
	})

	t.Run("singular and plural counts", func(t *testing.T) {
		md := sampleReport().Markdown()
		assert.Contains(t, md, "1 package failed to build")
		assert.Contains(t, md, "2 packages built successfully")
	})

	t.Run("empty report", func(t *testing.T) {
		r := &Report{System: "x86_64-linux"}
		assert.Contains(t, r.Markdown(), "No changed attributes to build.")
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, sampleReport().Markdown(), sampleReport().Markdown())
	})
}

func TestJSON(t *testing.T) {
	t.Run("schema", func(t *testing.T) {
		data, err := sampleReport().JSON()
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Equal(t, "x86_64-linux", decoded["system"])
		assert.Equal(t, float64(12345), decoded["pr"])
		assert.NotContains(t, decoded, "revision")

		built, ok := decoded["built"].([]any)
		require.True(t, ok)
		assert.Equal(t, []any{"hello", "gcc"}, built)

		// Every bucket is present even when empty.
		for _, key := range []string{"broken", "blacklisted", "skipped", "timed_out", "non_existent", "tests", "failed", "built"} {
			assert.Contains(t, decoded, key)
		}
	})

	t.Run("run id is included when set", func(t *testing.T) {
		r := &Report{System: "x86_64-linux", RunID: "0b7a2f"}
		data, err := r.JSON()
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "0b7a2f", decoded["run_id"])

		// Reports without one keep the old shape.
		bare, err := (&Report{System: "x86_64-linux"}).JSON()
		require.NoError(t, err)
		var bareDecoded map[string]any
		require.NoError(t, json.Unmarshal(bare, &bareDecoded))
		assert.NotContains(t, bareDecoded, "run_id")
	})

	t.Run("revision replaces pr", func(t *testing.T) {
		r := &Report{System: "x86_64-linux", Revision: "abc123"}
		data, err := r.JSON()
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "abc123", decoded["revision"])
		assert.NotContains(t, decoded, "pr")
	})
}
