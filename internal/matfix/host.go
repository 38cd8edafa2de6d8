// Package matfix assigns textures to materials by name and configures their
// render state. It talks to the asset host only through the Material and
// Host interfaces, so the decision logic runs without a live editor.
package matfix

import "reflect"

// Shader property and keyword names used by the Standard shader family.
const (
	PropMainTex    = "_MainTex"
	PropBumpMap    = "_BumpMap"
	PropColor      = "_Color"
	PropSpecColor  = "_SpecColor"
	PropGlossiness = "_Glossiness"
	PropMode       = "_Mode"
	PropSrcBlend   = "_SrcBlend"
	PropDstBlend   = "_DstBlend"
	PropZWrite     = "_ZWrite"

	KeywordNormalMap        = "_NORMALMAP"
	KeywordAlphaTest        = "_ALPHATEST_ON"
	KeywordAlphaBlend       = "_ALPHABLEND_ON"
	KeywordAlphaPremultiply = "_ALPHAPREMULTIPLY_ON"
)

// Built-in shader names.
const (
	ShaderStandard         = "Standard"
	ShaderStandardSpecular = "Standard (Specular setup)"
)

// Texture is a texture asset as seen by the matcher.
type Texture interface {
	Name() string
}

// Material is the mutation surface of a host material.
type Material interface {
	Name() string
	SetShader(name string)
	// SetTexture assigns tex to the named slot. A nil tex clears the slot.
	// An error means tex cannot be referenced and the slot is unchanged.
	SetTexture(prop string, tex Texture) error
	SetColor(prop string, c Color)
	SetFloat(prop string, v float64)
	SetInt(prop string, v int)
	SetKeyword(keyword string, enabled bool)
	SetRenderQueue(queue int)
	HasProperty(prop string) bool
}

// Host performs asset-database operations that outlive a single material.
type Host interface {
	// ReimportAsNormalMap switches the texture's importer to normal-map
	// type and saves it.
	ReimportAsNormalMap(tex Texture) error
}

// Color is a linear RGBA colour.
type Color struct {
	R, G, B, A float64
}

var (
	White = Color{R: 1, G: 1, B: 1, A: 1}
	Black = Color{R: 0, G: 0, B: 0, A: 1}
)

// isNil reports whether v is a nil interface or an interface holding a nil
// pointer. Input lists are sparse and may contain either.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
