package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// textureExtensions are the image formats the editor imports as textures,
// in search order.
var textureExtensions = []string{".tga", ".png", ".jpg", ".jpeg", ".psd", ".tif", ".tiff", ".bmp", ".exr", ".hdr", ".gif", ".dds"}

// IsTextureFile reports whether path has a texture extension.
func IsTextureFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range textureExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ResolveTexture finds the file for an extension-less texture path by
// trying known extensions against the index. Returns the resolved path and
// true if found.
func ResolveTexture(path string, fileIndex map[string]string) (string, bool) {
	lower := strings.ToLower(filepath.ToSlash(path))
	if IsTextureFile(lower) {
		if _, ok := fileIndex[lower]; ok {
			return lower, true
		}
		lower = strings.TrimSuffix(lower, filepath.Ext(lower))
	}
	for _, ext := range textureExtensions {
		candidate := lower + ext
		if _, ok := fileIndex[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// Texture is a texture asset on disk. Its name is the file name without
// extension, as the editor names imported textures.
type Texture struct {
	path string
	GUID string
	Size int64
}

// NewTexture builds a texture for path; GUID is filled by the project scan.
func NewTexture(path string) *Texture {
	return &Texture{path: path}
}

func (t *Texture) Name() string {
	base := filepath.Base(t.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (t *Texture) Path() string { return t.path }

// TextureInfo describes decoded image properties.
type TextureInfo struct {
	Format   string
	Width    int
	Height   int
	HasAlpha bool
}

var ErrUnsupportedFormat = errors.New("unsupported image format")

// headerDecoders picks a decoder by extension. The tga package registers
// with an empty magic string and claims every file, so image.DecodeConfig
// cannot be used to sniff the format.
var headerDecoders = map[string]struct {
	format string
	decode func(io.Reader) (image.Config, error)
}{
	".tga":  {"tga", tgaDecodeConfig},
	".png":  {"png", png.DecodeConfig},
	".jpg":  {"jpeg", jpeg.DecodeConfig},
	".jpeg": {"jpeg", jpeg.DecodeConfig},
	".gif":  {"gif", gif.DecodeConfig},
	".bmp":  {"bmp", bmp.DecodeConfig},
	".tif":  {"tiff", tiff.DecodeConfig},
	".tiff": {"tiff", tiff.DecodeConfig},
}

// Probe decodes the image header of the texture file. Formats without a
// decoder return ErrUnsupportedFormat.
func (t *Texture) Probe() (TextureInfo, error) {
	dec, ok := headerDecoders[strings.ToLower(filepath.Ext(t.path))]
	if !ok {
		return TextureInfo{}, ErrUnsupportedFormat
	}
	f, err := os.Open(t.path)
	if err != nil {
		return TextureInfo{}, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()

	cfg, err := dec.decode(f)
	if err != nil {
		return TextureInfo{}, fmt.Errorf("decode %s: %w", t.path, err)
	}
	return textureInfo(dec.format, cfg), nil
}

// tgaDecodeConfig reports RGBAModel for TGA files without an alpha channel;
// the tga package reports NRGBAModel for every file.
func tgaDecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	cfg, err := tga.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return cfg, err
	}
	if !tgaHasAlpha(data) {
		cfg.ColorModel = color.RGBAModel
	}
	return cfg, nil
}

// tgaHasAlpha reads the 18-byte TGA header: image type at 2, palette entry
// size at 7, pixel depth at 16 and alpha bits in the low nibble of 17.
func tgaHasAlpha(header []byte) bool {
	if len(header) < 18 {
		return false
	}
	kind, paletteBPP, bpp, alphaBits := header[2]&7, header[7], header[16], header[17]&0x0f
	switch {
	case alphaBits != 0 || bpp == 32:
		return true
	case kind == 3:
		return bpp == 16
	case kind == 1:
		return paletteBPP == 32
	}
	return false
}

func textureInfo(format string, cfg image.Config) TextureInfo {
	return TextureInfo{
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		HasAlpha: modelHasAlpha(cfg.ColorModel),
	}
}

// modelHasAlpha reports a straight alpha channel or a palette with
// transparent entries. Decoders report opaque RGB data as RGBAModel, so the
// premultiplied models do not count.
func modelHasAlpha(m color.Model) bool {
	switch m {
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}
