package assets

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b", "run.zip")
	files := map[string][]byte{
		"Assets/a.mat": []byte(materialYAML(legacyMaterial, "a")),
		"Assets/b.mat": []byte(materialYAML(modernMaterial, "b")),
	}
	size, err := WriteBackup(path, "run-1", files)
	require.NoError(t, err)
	assert.Positive(t, size)

	manifest, got, err := ReadBackup(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", manifest.RunID)
	assert.Len(t, manifest.Files, 2)
	assert.Equal(t, files, got)
}

func TestRestoreRefusesEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.zip")
	_, err := WriteBackup(path, "run", map[string][]byte{"../outside.mat": []byte("x")})
	require.NoError(t, err)

	_, err = RestoreBackup(path, filepath.Join(dir, "project"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "outside.mat"))
}
