package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/matfixer/internal/matfix"
)

func loadTestProject(t *testing.T, root string) *Project {
	t.Helper()
	p, err := OpenProject(root, nil, nil)
	require.NoError(t, err)
	_, err = p.LoadMaterials([]string{"Assets/Materials"})
	require.NoError(t, err)
	_, err = p.LoadTextures([]string{"Assets/Textures"})
	require.NoError(t, err)
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestProjectLoad(t *testing.T) {
	p := loadTestProject(t, newTestProject(t))

	require.Len(t, p.Materials(), 2)
	assert.Equal(t, "ivy_trellis", p.Materials()[0].Name())
	assert.Equal(t, "wall_glass_01", p.Materials()[1].Name())

	require.Len(t, p.Textures(), 2)
	assert.Equal(t, "wall_glass_01", p.Textures()[0].Name())
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", p.Textures()[0].GUID)
	assert.Positive(t, p.Textures()[0].Size)

	tex, ok := p.TextureByGUID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.True(t, ok)
	assert.Equal(t, "wall_glass_01_normal", tex.Name())

	tex, ok = p.ResolveTexturePath("Assets/Textures/Wall_Glass_01")
	require.True(t, ok)
	assert.Equal(t, "wall_glass_01", tex.Name())
}

func TestProjectAssignEndToEnd(t *testing.T) {
	root := newTestProject(t)
	wallPath := filepath.Join(root, "Assets", "Materials", "wall_glass_01.mat")
	ivyPath := filepath.Join(root, "Assets", "Materials", "ivy_trellis.mat")
	normalMeta := filepath.Join(root, "Assets", "Textures", "wall_glass_01_normal.png.meta")
	origWall := readFile(t, wallPath)
	origIvy := readFile(t, ivyPath)
	origMeta := readFile(t, normalMeta)

	p := loadTestProject(t, root)
	d := matfix.NewDriver(p, matfix.Options{AssignNormalMaps: true, Transparency: true}, nil)
	textures := HostTextures(p.Textures())

	rep := d.Assign(HostMaterials(p.Materials()), textures)
	assert.Equal(t, "2 materials: 1 assigned, 1 normal maps, 1 failed", rep.Summary())
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "ivy_trellis", rep.Failed[0].Material)
	assert.Equal(t, ivyPath, rep.Failed[0].Path)

	fix := d.FixNormalMaps(textures)
	assert.Equal(t, []string{"wall_glass_01_normal"}, fix.Reimported)
	assert.Empty(t, fix.Errors)

	backup := filepath.Join(root, ".matfixer", "backups", "run.zip")
	res, err := p.Save(SaveOptions{BackupPath: backup, RunID: "run"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Assets/Materials/ivy_trellis.mat",
		"Assets/Materials/wall_glass_01.mat",
		"Assets/Textures/wall_glass_01_normal.png.meta",
	}, res.Written)
	assert.Equal(t, backup, res.BackupPath)
	assert.Positive(t, res.BackupSize)

	wall, err := LoadMaterial(wallPath)
	require.NoError(t, err)
	assert.Equal(t, matfix.ShaderStandard, wall.ShaderName())
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", wall.TextureGUID(matfix.PropMainTex))
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", wall.TextureGUID(matfix.PropBumpMap))
	assert.Equal(t, []string{"_ALPHABLEND_ON", "_NORMALMAP"}, wall.Keywords())
	assert.Equal(t, 3000, wall.RenderQueue())

	ivy, err := LoadMaterial(ivyPath)
	require.NoError(t, err)
	assert.Equal(t, "", ivy.TextureGUID(matfix.PropMainTex))
	assert.Equal(t, []string{"_ALPHATEST_ON"}, ivy.Keywords())
	assert.Equal(t, 2450, ivy.RenderQueue())

	meta, err := LoadMeta(filepath.Join(root, "Assets", "Textures", "wall_glass_01_normal.png"))
	require.NoError(t, err)
	typ, err := meta.TextureType()
	require.NoError(t, err)
	assert.Equal(t, TextureTypeNormalMap, typ)
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", meta.GUID())

	restored, err := RestoreBackup(backup, root)
	require.NoError(t, err)
	assert.Len(t, restored, 3)
	assert.Equal(t, origWall, readFile(t, wallPath))
	assert.Equal(t, origIvy, readFile(t, ivyPath))
	assert.Equal(t, origMeta, readFile(t, normalMeta))
}

func TestProjectSecondRunIsClean(t *testing.T) {
	root := newTestProject(t)
	opts := matfix.Options{AssignNormalMaps: true, Transparency: true}

	p := loadTestProject(t, root)
	matfix.NewDriver(p, opts, nil).Assign(HostMaterials(p.Materials()), HostTextures(p.Textures()))
	_, err := p.Save(SaveOptions{})
	require.NoError(t, err)

	again := loadTestProject(t, root)
	matfix.NewDriver(again, opts, nil).Assign(HostMaterials(again.Materials()), HostTextures(again.Textures()))
	pending, err := again.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProjectDryRunWritesNothing(t *testing.T) {
	root := newTestProject(t)
	wallPath := filepath.Join(root, "Assets", "Materials", "wall_glass_01.mat")
	orig := readFile(t, wallPath)

	p := loadTestProject(t, root)
	matfix.NewDriver(p, matfix.Options{}, nil).Assign(HostMaterials(p.Materials()), HostTextures(p.Textures()))

	backup := filepath.Join(root, "backup.zip")
	res, err := p.Save(SaveOptions{DryRun: true, BackupPath: backup})
	require.NoError(t, err)
	assert.Len(t, res.Written, 2)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, orig, readFile(t, wallPath))
	assert.NoFileExists(t, backup)
}

func TestProjectOverrides(t *testing.T) {
	p := loadTestProject(t, newTestProject(t))
	overrides := p.ResolveOverrides(map[string]string{
		"ivy_trellis": "Assets/Textures/wall_glass_01",
		"other":       "plain_name",
	})
	assert.Equal(t, map[string]string{"ivy_trellis": "wall_glass_01", "other": "plain_name"}, overrides)

	d := matfix.NewDriver(p, matfix.Options{}, nil)
	d.Overrides = overrides
	rep := d.Assign(HostMaterials(p.Materials()), HostTextures(p.Textures()))
	assert.Empty(t, rep.Failed)
	assert.Contains(t, rep.Assigned, matfix.Assignment{Material: "ivy_trellis", Texture: "wall_glass_01", Kind: matfix.MatchManual})

	ivy := p.Materials()[0]
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ivy.TextureGUID(matfix.PropMainTex))
}

func TestProjectUnassign(t *testing.T) {
	root := newTestProject(t)
	p := loadTestProject(t, root)
	d := matfix.NewDriver(p, matfix.Options{AssignNormalMaps: true}, nil)
	d.Assign(HostMaterials(p.Materials()), HostTextures(p.Textures()))
	_, err := p.Save(SaveOptions{})
	require.NoError(t, err)

	again := loadTestProject(t, root)
	rep := matfix.NewDriver(again, matfix.Options{}, nil).Unassign(HostMaterials(again.Materials()))
	assert.Equal(t, "2 materials cleared", rep.Summary())

	wall := again.Materials()[1]
	assert.Equal(t, "", wall.TextureGUID(matfix.PropMainTex))
	assert.Equal(t, "", wall.TextureGUID(matfix.PropBumpMap))
	assert.NotContains(t, wall.Keywords(), matfix.KeywordNormalMap)
}

func TestReimportWithoutMeta(t *testing.T) {
	root := newTestProject(t)
	writeFile(t, filepath.Join(root, "Assets", "Textures", "floor_normal.png"), pngBytes(t, false))

	p := loadTestProject(t, root)
	rep := matfix.NewDriver(p, matfix.Options{}, nil).FixNormalMaps(HostTextures(p.Textures()))
	assert.Equal(t, []string{"wall_glass_01_normal"}, rep.Reimported)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "floor_normal", rep.Errors[0].Subject)
}

func TestLoadShaders(t *testing.T) {
	root := newTestProject(t)
	dir := filepath.Join(root, "Assets", "Shaders")
	writeFile(t, filepath.Join(dir, "Lit.shader"), []byte(`Shader "Custom/Lit" {
	Properties {
		_MainTex ("Albedo", 2D) = "white" {}
		[Normal] _BumpMap ("Normal", 2D) = "bump" {}
	}
	SubShader { Pass { } }
}
`))
	writeFile(t, filepath.Join(dir, "Lit.shader.meta"), []byte("fileFormatVersion: 2\nguid: cccccccccccccccccccccccccccccccc\nShaderImporter:\n  userData:\n"))

	p := loadTestProject(t, root)
	require.NoError(t, p.LoadShaders([]string{"Assets/Shaders"}))

	ref, ok := p.Shaders.Lookup("custom/lit")
	require.True(t, ok)
	assert.Equal(t, ObjectRef{FileID: 4800000, GUID: "cccccccccccccccccccccccccccccccc", Type: 3}, ref)

	wall := p.Materials()[1]
	wall.SetShader("Custom/Lit")
	assert.Equal(t, "Custom/Lit", wall.ShaderName())
	assert.True(t, wall.HasProperty(matfix.PropBumpMap))
	assert.False(t, wall.HasProperty(matfix.PropSpecColor))
}

func TestAssignTextureWithoutMetaFails(t *testing.T) {
	root := newTestProject(t)
	writeFile(t, filepath.Join(root, "Assets", "Materials", "rock.mat"), []byte(materialYAML(legacyMaterial, "rock")))
	writeFile(t, filepath.Join(root, "Assets", "Textures", "rock.png"), pngBytes(t, false))

	p := loadTestProject(t, root)
	rep := matfix.NewDriver(p, matfix.Options{}, nil).Assign(HostMaterials(p.Materials()), HostTextures(p.Textures()))

	assert.Equal(t, []matfix.Assignment{{Material: "wall_glass_01", Texture: "wall_glass_01", Kind: matfix.MatchExact}}, rep.Assigned)
	var failed []string
	for _, f := range rep.Failed {
		failed = append(failed, f.Material)
	}
	assert.ElementsMatch(t, []string{"ivy_trellis", "rock"}, failed)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "rock", rep.Errors[0].Subject)
	assert.ErrorIs(t, rep.Errors[0], ErrNoGUID)

	for _, m := range p.Materials() {
		if m.Name() == "rock" {
			assert.Equal(t, "", m.TextureGUID(matfix.PropMainTex))
			c, ok := m.Color(matfix.PropColor)
			require.True(t, ok)
			assert.Equal(t, matfix.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}, c)
		}
	}
}
