package job

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace(t *testing.T) {
	base := t.TempDir()

	ws, err := NewWorkspace(base, "run-abc")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(ws.Dir()), "run-abc_"))
	assert.Equal(t, filepath.Join(ws.Dir(), "clip.mp3"), ws.Path("clip.mp3"))

	// Files inside the workspace disappear with it.
	require.NoError(t, os.WriteFile(ws.Path("clip.mp3"), []byte("data"), 0600))
	require.NoError(t, ws.Release())

	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))

	// Release is idempotent.
	assert.NoError(t, ws.Release())
}

func TestWorkspaceIsolation(t *testing.T) {
	base := t.TempDir()

	first, err := NewWorkspace(base, "run-1")
	require.NoError(t, err)
	second, err := NewWorkspace(base, "run-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Dir(), second.Dir())

	require.NoError(t, os.WriteFile(second.Path("clip.mp3"), []byte("data"), 0600))
	require.NoError(t, first.Release())

	// Releasing one workspace leaves the other untouched.
	_, err = os.Stat(second.Path("clip.mp3"))
	assert.NoError(t, err)
}
