package filter

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

func set(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func TestCriteriaEmpty(t *testing.T) {
	assert.True(t, Criteria{}.Empty())
	assert.False(t, Criteria{IncludeNames: []string{"foo"}}.Empty())
	assert.False(t, Criteria{ExcludeRegexes: []string{"^python"}}.Empty())
}

func TestApply(t *testing.T) {
	logger := zerolog.Nop()
	changed := set("hello", "python3Packages.requests", "python3Packages.flask", "vim")

	t.Run("no criteria returns input unchanged", func(t *testing.T) {
		got, err := Apply(changed, Criteria{}, logger)
		require.NoError(t, err)
		assert.Equal(t, changed, got)
	})

	t.Run("include names select exactly", func(t *testing.T) {
		got, err := Apply(changed, Criteria{IncludeNames: []string{"hello", "vim"}}, logger)
		require.NoError(t, err)
		assert.Equal(t, set("hello", "vim"), got)
	})

	t.Run("unknown include name is fatal", func(t *testing.T) {
		_, err := Apply(changed, Criteria{IncludeNames: []string{"nonexistent"}}, logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrUnknownAttribute)
		assert.Contains(t, err.Error(), "nonexistent")
	})

	t.Run("test attributes bypass the changed-set check", func(t *testing.T) {
		got, err := Apply(changed, Criteria{IncludeNames: []string{"nixosTests.nginx"}}, logger)
		require.NoError(t, err)
		assert.Equal(t, set("nixosTests.nginx"), got)
	})

	t.Run("include regex adds matches", func(t *testing.T) {
		got, err := Apply(changed, Criteria{IncludeRegexes: []string{`^python3Packages\.`}}, logger)
		require.NoError(t, err)
		assert.Equal(t, set("python3Packages.requests", "python3Packages.flask"), got)
	})

	t.Run("names and regexes combine", func(t *testing.T) {
		got, err := Apply(changed, Criteria{
			IncludeNames:   []string{"hello"},
			IncludeRegexes: []string{`flask`},
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, set("hello", "python3Packages.flask"), got)
	})

	t.Run("empty include selection degrades to full set", func(t *testing.T) {
		got, err := Apply(changed, Criteria{IncludeRegexes: []string{`^nomatch$`}}, logger)
		require.NoError(t, err)
		assert.Equal(t, changed, got)
	})

	t.Run("exclude names remove", func(t *testing.T) {
		got, err := Apply(changed, Criteria{ExcludeNames: []string{"vim"}}, logger)
		require.NoError(t, err)
		assert.NotContains(t, got, "vim")
		assert.Len(t, got, 3)
	})

	t.Run("exclude regex removes after inclusion", func(t *testing.T) {
		got, err := Apply(changed, Criteria{
			IncludeRegexes: []string{`^python3Packages\.`},
			ExcludeRegexes: []string{`requests`},
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, set("python3Packages.flask"), got)
	})

	t.Run("invalid include regex is fatal", func(t *testing.T) {
		_, err := Apply(changed, Criteria{IncludeRegexes: []string{"["}}, logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrInvalidRegex)
	})

	t.Run("invalid exclude regex is fatal", func(t *testing.T) {
		_, err := Apply(changed, Criteria{ExcludeRegexes: []string{"("}}, logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrInvalidRegex)
	})

	t.Run("input set is not mutated by excludes", func(t *testing.T) {
		input := set("a", "b")
		_, err := Apply(input, Criteria{ExcludeNames: []string{"a"}}, logger)
		require.NoError(t, err)
		assert.Len(t, input, 2)
	})
}
