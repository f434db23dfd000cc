package homedir

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	base := t.TempDir()
	skel := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(skel, ".bashrc"), []byte("export PS1='$ '\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(skel, ".config", "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skel, ".config", "app", "settings"), []byte("x=1\n"), 0o600))

	m := NewManager(base, skel)
	m.lookup = func(username string) (*user.User, error) {
		return nil, errors.New("unknown user")
	}
	return m
}

func TestCreateCopiesSkeleton(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Create("alice", 0o750))

	home := m.Path("alice")
	info, err := os.Stat(home)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())

	content, err := os.ReadFile(filepath.Join(home, ".bashrc"))
	require.NoError(t, err)
	assert.Equal(t, "export PS1='$ '\n", string(content))

	_, err = os.Stat(filepath.Join(home, ".config", "app", "settings"))
	assert.NoError(t, err)
}

func TestCreateIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Create("alice", 0o750))

	// Pre-existing content survives a second run.
	marker := filepath.Join(m.Path("alice"), "existing.txt")
	require.NoError(t, os.WriteFile(marker, []byte("keep me"), 0o644))

	require.NoError(t, m.Create("alice", 0o750))

	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(content))
}

func TestCreateUnresolvableUserSkipsOwnership(t *testing.T) {
	m := newTestManager(t)

	// lookup always fails in the test manager; creation must still
	// succeed.
	assert.NoError(t, m.Create("ghost", 0o750))
	assert.True(t, m.Exists("ghost"))
}

func TestExists(t *testing.T) {
	m := newTestManager(t)

	assert.False(t, m.Exists("alice"))
	require.NoError(t, m.Create("alice", 0o750))
	assert.True(t, m.Exists("alice"))

	// A plain file at the home path is not a home directory.
	require.NoError(t, os.WriteFile(m.Path("bob"), []byte("not a dir"), 0o644))
	assert.False(t, m.Exists("bob"))
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	m := newTestManager(t)

	assert.NoError(t, m.Remove("never-existed"))

	require.NoError(t, m.Create("alice", 0o750))
	require.NoError(t, m.Remove("alice"))
	assert.False(t, m.Exists("alice"))
}
