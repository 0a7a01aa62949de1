package illustrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPromptsSelectByImageType(t *testing.T) {
	p := DefaultPrompts()
	require.Contains(t, p.For(true), "portrait")
	require.NotContains(t, p.For(false), "portrait")
	require.NotEmpty(t, p.For(false))
}

func TestLoadPromptsEmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	require.Equal(t, DefaultPrompts(), p)
}

func TestLoadPromptsOverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("person: woodcut portrait style\n"), 0o644))

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	require.Equal(t, "woodcut portrait style", p.Person)
	// Unset fields keep their defaults
	require.Equal(t, DefaultPrompts().Generic, p.Generic)
}

func TestLoadPromptsMissingFileFallsBack(t *testing.T) {
	p, err := LoadPrompts("/does/not/exist.yaml")
	require.Error(t, err)
	require.Equal(t, DefaultPrompts(), p)
}
