package shellfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindShellScripts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o700))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o700))

	for _, path := range []string{
		filepath.Join(root, "scripts", "deploy.sh"),
		filepath.Join(root, "run.sh"),
		filepath.Join(root, "notes.txt"),
		filepath.Join(root, "node_modules", "pkg", "install.sh"),
	} {
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o600))
	}

	scripts, err := FindShellScripts(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "run.sh"),
		filepath.Join(root, "scripts", "deploy.sh"),
	}, scripts)
}
