package nix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

func TestParseInventory(t *testing.T) {
	t.Run("basic items", func(t *testing.T) {
		input := `<?xml version='1.0' encoding='utf-8'?>
<items>
  <item attrPath="hello" name="hello-2.12.1">
    <output name="out" path="/nix/store/abc-hello-2.12.1" />
  </item>
  <item attrPath="vim" name="vim-9.0" version="9.0">
    <output name="out" path="/nix/store/def-vim-9.0" />
  </item>
</items>`

		pkgs, err := parseInventory(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, pkgs, 2)

		assert.Equal(t, "hello", pkgs[0].AttrPath)
		assert.Equal(t, "hello-2.12.1", pkgs[0].Name)
		assert.Equal(t, "2.12.1", pkgs[0].Version)
		assert.Equal(t, "/nix/store/abc-hello-2.12.1", pkgs[0].StorePath)

		assert.Equal(t, "9.0", pkgs[1].Version)
	})

	t.Run("items without an out output are dropped", func(t *testing.T) {
		input := `<items>
  <item attrPath="docs-only" name="docs-only-1.0">
    <output name="doc" path="/nix/store/abc-docs" />
  </item>
  <item attrPath="kept" name="kept-1.0">
    <output name="doc" path="/nix/store/def-doc" />
    <output name="out" path="/nix/store/def-kept" />
  </item>
</items>`

		pkgs, err := parseInventory(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.Equal(t, "kept", pkgs[0].AttrPath)
	})

	t.Run("string metadata", func(t *testing.T) {
		input := `<items>
  <item attrPath="hello" name="hello-2.12.1">
    <output name="out" path="/nix/store/abc-hello" />
    <meta name="description" type="string" value="A friendly program" />
    <meta name="homepage" type="string" value="https://example.org/hello" />
    <meta name="position" type="string" value="pkgs/hello/default.nix:12" />
  </item>
</items>`

		pkgs, err := parseInventory(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.Equal(t, "A friendly program", pkgs[0].Description)
		assert.Equal(t, "https://example.org/hello", pkgs[0].Homepage)
		assert.Equal(t, "pkgs/hello/default.nix:12", pkgs[0].Position)
	})

	t.Run("string-list metadata is joined", func(t *testing.T) {
		input := `<items>
  <item attrPath="hello" name="hello-2.12.1">
    <output name="out" path="/nix/store/abc-hello" />
    <meta name="homepage" type="strings">
      <string value="https://a.example" />
      <string value="https://b.example" />
    </meta>
  </item>
</items>`

		pkgs, err := parseInventory(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.Equal(t, "https://a.example, https://b.example", pkgs[0].Homepage)
	})

	t.Run("unknown metadata is ignored", func(t *testing.T) {
		input := `<items>
  <item attrPath="hello" name="hello-1.0">
    <output name="out" path="/nix/store/abc-hello" />
    <meta name="maintainers" type="string" value="someone" />
  </item>
</items>`

		pkgs, err := parseInventory(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := parseInventory(strings.NewReader(`<items><item attrPath="x"`))
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrMalformedInventory)
	})

	t.Run("empty document", func(t *testing.T) {
		pkgs, err := parseInventory(strings.NewReader(`<items></items>`))
		require.NoError(t, err)
		assert.Empty(t, pkgs)
	})
}

func TestVersionFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"hello-2.12.1", "2.12.1"},
		{"gnumake-4.4", "4.4"},
		{"python3-minimal-3.11.2", "3.11.2"},
		{"unversioned", ""},
		{"trailing-dash-", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, versionFromName(tt.name))
		})
	}
}
