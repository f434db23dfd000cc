package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFile(t *testing.T) {
	e := newTestEngine()

	manifest := `# class of 2026
1001 students alice Ivanova Alice secret123

1002 students,staff bob Petrov Boris secret456
`
	path := writeManifest(t, manifest)

	results := e.ProcessFile(context.Background(), path, []Step{StepHome})

	assert.Equal(t, map[string]bool{"alice": true, "bob": true}, results)
	assert.True(t, e.home.Exists("alice"))
	assert.True(t, e.home.Exists("bob"))
	assert.Empty(t, e.dir.calls, "home-only runs must not touch the directory")
}

func TestProcessFileSkipsMalformedLines(t *testing.T) {
	e := newTestEngine()

	manifest := `1001 students alice Ivanova Alice secret123
too few fields
1002 students bob Petrov Boris secret456 extra-field
abc students carol Sidorova Carol secret789
1003 students dave Orlov Dave secret000
`
	path := writeManifest(t, manifest)

	results := e.ProcessFile(context.Background(), path, []Step{StepHome})

	// Only the well-formed lines made it through; the rest were skipped
	// without stopping the run.
	assert.Equal(t, map[string]bool{"alice": true, "dave": true}, results)
	assert.NotContains(t, results, "bob")
	assert.NotContains(t, results, "carol")
}

func TestProcessFileMissingFile(t *testing.T) {
	e := newTestEngine()

	results := e.ProcessFile(context.Background(), "/nonexistent/users.txt", AllSteps())

	assert.Empty(t, results)
}

func TestProcessFileGroupParsing(t *testing.T) {
	e := newTestEngine()
	e.dir.groups["students"] = []string{}
	e.dir.groups["staff"] = []string{}

	path := writeManifest(t, "1002 students,staff bob Petrov Boris secret456\n")

	results := e.ProcessFile(context.Background(), path, []Step{StepLDAP})

	assert.Equal(t, map[string]bool{"bob": true}, results)
	assert.Contains(t, e.dir.calls, "AddGroupMember(students,bob)")
	assert.Contains(t, e.dir.calls, "AddGroupMember(staff,bob)")
}
