package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const legacyMaterial = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!21 &2100000
Material:
  serializedVersion: 6
  m_ObjectHideFlags: 0
  m_CorrespondingSourceObject: {fileID: 0}
  m_PrefabInstance: {fileID: 0}
  m_PrefabAsset: {fileID: 0}
  m_Name: NAME
  m_Shader: {fileID: 7, guid: 0000000000000000f000000000000000, type: 0}
  m_ShaderKeywords:
  m_LightmapFlags: 4
  m_EnableInstancingVariants: 0
  m_DoubleSidedGI: 0
  m_CustomRenderQueue: -1
  stringTagMap: {}
  disabledShaderPasses: []
  m_SavedProperties:
    serializedVersion: 3
    m_TexEnvs:
    - _MainTex:
        m_Texture: {fileID: 0}
        m_Scale: {x: 1, y: 1}
        m_Offset: {x: 0, y: 0}
    m_Floats:
    - _Mode: 0
    m_Colors:
    - _Color: {r: 0.5, g: 0.5, b: 0.5, a: 1}
`

const modernMaterial = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!21 &2100000
Material:
  serializedVersion: 8
  m_ObjectHideFlags: 0
  m_Name: NAME
  m_Shader: {fileID: 46, guid: 0000000000000000f000000000000000, type: 0}
  m_ValidKeywords: []
  m_InvalidKeywords: []
  m_CustomRenderQueue: -1
  m_SavedProperties:
    serializedVersion: 3
    m_TexEnvs: []
    m_Ints: []
    m_Floats: []
    m_Colors: []
  m_BuildTextureStacks: []
--- !u!114 &5000000
MonoBehaviour:
  m_ObjectHideFlags: 11
  m_Name:
  version: 7
`

const textureMeta = `fileFormatVersion: 2
guid: GUID
TextureImporter:
  internalIDToNameTable: []
  serializedVersion: 11
  mipmaps:
    mipMapMode: 0
    enableMipMap: 1
  textureType: 0
  textureShape: 1
  spriteMode: 0
  userData:
  assetBundleName:
  assetBundleVariant:
`

func materialYAML(template, name string) string {
	return strings.Replace(template, "NAME", name, 1)
}

func metaYAML(guid string) string {
	return strings.Replace(textureMeta, "GUID", guid, 1)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func pngBytes(t *testing.T, withAlpha bool) []byte {
	t.Helper()
	var img image.Image
	if withAlpha {
		m := image.NewNRGBA(image.Rect(0, 0, 4, 2))
		m.Set(0, 0, color.NRGBA{R: 255, A: 128})
		img = m
	} else {
		m := image.NewGray(image.Rect(0, 0, 4, 2))
		img = m
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newTestProject lays out a small project:
//
//	Assets/Materials/ivy_trellis.mat
//	Assets/Materials/wall_glass_01.mat
//	Assets/Textures/wall_glass_01.png (+ .meta)
//	Assets/Textures/wall_glass_01_normal.png (+ .meta)
func newTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mats := filepath.Join(root, "Assets", "Materials")
	texs := filepath.Join(root, "Assets", "Textures")
	writeFile(t, filepath.Join(mats, "wall_glass_01.mat"), []byte(materialYAML(legacyMaterial, "wall_glass_01")))
	writeFile(t, filepath.Join(mats, "ivy_trellis.mat"), []byte(materialYAML(modernMaterial, "ivy_trellis")))
	writeFile(t, filepath.Join(texs, "wall_glass_01.png"), pngBytes(t, true))
	writeFile(t, filepath.Join(texs, "wall_glass_01.png.meta"), []byte(metaYAML("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")))
	writeFile(t, filepath.Join(texs, "wall_glass_01_normal.png"), pngBytes(t, false))
	writeFile(t, filepath.Join(texs, "wall_glass_01_normal.png.meta"), []byte(metaYAML("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")))
	return root
}
