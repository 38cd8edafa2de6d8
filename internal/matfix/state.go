package matfix

import "strings"

// BlendMode follows the engine's blend factor numbering.
type BlendMode int

const (
	BlendZero             BlendMode = 0
	BlendOne              BlendMode = 1
	BlendDstColor         BlendMode = 2
	BlendSrcColor         BlendMode = 3
	BlendOneMinusDstColor BlendMode = 4
	BlendSrcAlpha         BlendMode = 5
	BlendOneMinusSrcColor BlendMode = 6
	BlendDstAlpha         BlendMode = 7
	BlendOneMinusDstAlpha BlendMode = 8
	BlendSrcAlphaSaturate BlendMode = 9
	BlendOneMinusSrcAlpha BlendMode = 10
)

// RenderMode is the Standard shader's _Mode value.
type RenderMode int

const (
	ModeOpaque RenderMode = 0
	ModeCutout RenderMode = 1
	ModeFade   RenderMode = 2
)

func (m RenderMode) String() string {
	switch m {
	case ModeCutout:
		return "cutout"
	case ModeFade:
		return "fade"
	default:
		return "opaque"
	}
}

// Render queue values.
const (
	QueueGeometry    = 2000
	QueueAlphaTest   = 2450
	QueueTransparent = 3000
)

// RenderState is a complete blend preset.
type RenderState struct {
	Mode             RenderMode
	SrcBlend         BlendMode
	DstBlend         BlendMode
	ZWrite           bool
	AlphaTest        bool
	AlphaBlend       bool
	AlphaPremultiply bool
	RenderQueue      int
}

var (
	OpaqueState = RenderState{
		Mode:        ModeOpaque,
		SrcBlend:    BlendOne,
		DstBlend:    BlendZero,
		ZWrite:      true,
		RenderQueue: QueueGeometry,
	}
	CutoutState = RenderState{
		Mode:        ModeCutout,
		SrcBlend:    BlendOne,
		DstBlend:    BlendZero,
		ZWrite:      true,
		AlphaTest:   true,
		RenderQueue: QueueAlphaTest,
	}
	FadeState = RenderState{
		Mode:        ModeFade,
		SrcBlend:    BlendSrcAlpha,
		DstBlend:    BlendOneMinusSrcAlpha,
		ZWrite:      false,
		AlphaBlend:  true,
		RenderQueue: QueueTransparent,
	}
)

var (
	DefaultFadeKeywords   = []string{"stain", "glass"}
	DefaultCutoutKeywords = []string{"ivy", "rail", "truss", "alpha"}
)

// StateSelector picks a render preset from substrings of the material name.
// Fade keywords are checked before cutout keywords.
type StateSelector struct {
	Fade   []string
	Cutout []string
}

func DefaultStateSelector() StateSelector {
	return StateSelector{
		Fade:   append([]string(nil), DefaultFadeKeywords...),
		Cutout: append([]string(nil), DefaultCutoutKeywords...),
	}
}

// RenderState returns the opaque preset unless transparency is enabled and
// the name falls into a transparent category.
func (s StateSelector) RenderState(materialName string, transparency bool) RenderState {
	if !transparency {
		return OpaqueState
	}
	name := strings.ToLower(materialName)
	switch {
	case containsAny(name, s.Fade):
		return FadeState
	case containsAny(name, s.Cutout):
		return CutoutState
	default:
		return OpaqueState
	}
}

// SelectRenderState applies the default category table.
func SelectRenderState(materialName string, transparency bool) RenderState {
	return DefaultStateSelector().RenderState(materialName, transparency)
}

// Specular is a specular-workflow preset.
type Specular struct {
	Color      Color
	Glossiness float64
}

var (
	ZeroSpecular    = Specular{Color: Black, Glossiness: 0}
	DefaultSpecular = Specular{Color: Color{R: 0.2, G: 0.2, B: 0.2, A: 1}, Glossiness: 0.5}
)

// SelectSpecular returns the specular preset to write, or false when the
// specular workflow is off and nothing should be touched.
func SelectSpecular(zero, workflow bool) (Specular, bool) {
	if !workflow {
		return Specular{}, false
	}
	if zero {
		return ZeroSpecular, true
	}
	return DefaultSpecular, true
}

// ApplyRenderState writes every field of st to mat.
func ApplyRenderState(mat Material, st RenderState) {
	mat.SetFloat(PropMode, float64(st.Mode))
	mat.SetInt(PropSrcBlend, int(st.SrcBlend))
	mat.SetInt(PropDstBlend, int(st.DstBlend))
	mat.SetInt(PropZWrite, boolInt(st.ZWrite))
	mat.SetKeyword(KeywordAlphaTest, st.AlphaTest)
	mat.SetKeyword(KeywordAlphaBlend, st.AlphaBlend)
	mat.SetKeyword(KeywordAlphaPremultiply, st.AlphaPremultiply)
	mat.SetRenderQueue(st.RenderQueue)
}

// ApplySpecular writes the specular colour and glossiness to mat.
func ApplySpecular(mat Material, sp Specular) {
	mat.SetColor(PropSpecColor, sp.Color)
	mat.SetFloat(PropGlossiness, sp.Glossiness)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
