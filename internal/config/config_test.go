package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/matfixer/internal/matfix"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadProjectWithoutFile(t *testing.T) {
	cfg, err := LoadProject(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, matfix.Options{StandardShader: "Standard", SpecularShader: "Standard (Specular setup)"}, cfg.MatchOptions())
	assert.Equal(t, matfix.DefaultMatcher(), cfg.Matcher())
	assert.Equal(t, matfix.DefaultStateSelector(), cfg.Selector())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
materials: [Assets/Maps/de_dust]
options:
  specular_workflow: true
  normal_maps: true
categories:
  fade: [glass, window]
custom_shaders:
  Custom/Brush: "{fileID: 4800000, guid: 0123456789abcdef0123456789abcdef, type: 3}"
`)
	cfg, err := LoadProject(dir, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Assets/Maps/de_dust"}, cfg.Materials)
	assert.Equal(t, []string{"Assets"}, cfg.Textures)
	assert.Equal(t, []string{"glass", "window"}, cfg.Categories.Fade)
	assert.Equal(t, matfix.DefaultCutoutKeywords, cfg.Categories.Cutout)
	assert.Equal(t, "_normal", cfg.Markers.Normal)
	assert.Contains(t, cfg.CustomShaders, "Custom/Brush")

	opts := cfg.MatchOptions()
	assert.True(t, opts.SpecularWorkflow)
	assert.True(t, opts.AssignNormalMaps)
	assert.False(t, opts.Transparency)
	assert.Equal(t, "Standard (Specular setup)", opts.Shader())
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "debug: true\n")
	cfg, err := LoadProject(t.TempDir(), path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)

	_, err = LoadProject(dir, filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "materials: [\n"},
		{"no materials", "materials: []\n"},
		{"no textures", "textures: []\n"},
		{"empty marker", "markers:\n  normal: \"\"\n"},
		{"empty exclude", "markers:\n  exclude: [_spec, \"\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	root := filepath.Join("/", "proj")
	assert.Equal(t, filepath.Join(root, ".matfixer", "history.db"), Resolve(root, Default().History))
	assert.Equal(t, filepath.Join("/", "abs"), Resolve(root, filepath.Join("/", "abs")))
	assert.Equal(t, "", Resolve(root, ""))
}
