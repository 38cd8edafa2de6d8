package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestIsTextureFile(t *testing.T) {
	assert.True(t, IsTextureFile("a/b/C.TGA"))
	assert.True(t, IsTextureFile("x.psd"))
	assert.False(t, IsTextureFile("x.png.meta"))
	assert.False(t, IsTextureFile("x.mat"))
}

func TestTextureProbe(t *testing.T) {
	root := newTestProject(t)
	p := loadTestProject(t, root)

	info, err := p.Textures()[0].Probe()
	require.NoError(t, err)
	assert.Equal(t, TextureInfo{Format: "png", Width: 4, Height: 2, HasAlpha: true}, info)

	info, err = p.Textures()[1].Probe()
	require.NoError(t, err)
	assert.False(t, info.HasAlpha)
}

func encodeWith(t *testing.T, enc func(*bytes.Buffer, image.Image) error, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, img))
	return buf.Bytes()
}

func TestTextureProbeFormats(t *testing.T) {
	dir := t.TempDir()
	gray := image.NewGray(image.Rect(0, 0, 3, 5))
	alpha := image.NewNRGBA(image.Rect(0, 0, 3, 5))
	alpha.Set(1, 1, color.NRGBA{G: 200, A: 10})

	tests := []struct {
		file string
		data []byte
		want TextureInfo
	}{
		{"gray.png", pngBytes(t, false), TextureInfo{Format: "png", Width: 4, Height: 2}},
		{"leaf.PNG", pngBytes(t, true), TextureInfo{Format: "png", Width: 4, Height: 2, HasAlpha: true}},
		{"stone.jpg", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return jpeg.Encode(b, m, nil) }, gray),
			TextureInfo{Format: "jpeg", Width: 3, Height: 5}},
		{"sign.gif", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return gif.Encode(b, m, nil) }, gray),
			TextureInfo{Format: "gif", Width: 3, Height: 5}},
		{"plank.bmp", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) }, gray),
			TextureInfo{Format: "bmp", Width: 3, Height: 5}},
		{"glass.tif", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return tiff.Encode(b, m, nil) }, alpha),
			TextureInfo{Format: "tiff", Width: 3, Height: 5, HasAlpha: true}},
		{"ivy.tga", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return tga.Encode(b, m) }, alpha),
			TextureInfo{Format: "tga", Width: 3, Height: 5, HasAlpha: true}},
		{"brick.tga", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return tga.Encode(b, m) }, gray),
			TextureInfo{Format: "tga", Width: 3, Height: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.data)
			info, err := NewTexture(path).Probe()
			require.NoError(t, err)
			assert.Equal(t, tt.want, info)
		})
	}
}

func TestTextureProbeErrors(t *testing.T) {
	dir := t.TempDir()

	psd := filepath.Join(dir, "layered.psd")
	writeFile(t, psd, []byte("8BPS"))
	_, err := NewTexture(psd).Probe()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	bogus := filepath.Join(dir, "bogus.png")
	writeFile(t, bogus, []byte("not an image"))
	_, err = NewTexture(bogus).Probe()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "png: invalid format")

	_, err = NewTexture(filepath.Join(dir, "missing.png")).Probe()
	assert.Error(t, err)
}
