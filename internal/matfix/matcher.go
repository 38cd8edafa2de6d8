package matfix

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Default role markers. A texture whose lowered name contains one of these
// is never a primary (albedo) candidate.
const (
	MarkerNormal   = "_normal"
	MarkerSpec     = "_spec"
	MarkerSpecular = "_specular"
)

// DefaultExcludeMarkers lists the markers that disqualify primary candidates.
var DefaultExcludeMarkers = []string{MarkerNormal, MarkerSpec, MarkerSpecular}

// Matcher picks textures for a material by name. All comparisons are
// case-insensitive and the first qualifying candidate in input order wins.
type Matcher struct {
	Exclude      []string
	NormalMarker string
}

// DefaultMatcher returns a matcher using the conventional role markers.
func DefaultMatcher() Matcher {
	return Matcher{
		Exclude:      append([]string(nil), DefaultExcludeMarkers...),
		NormalMarker: MarkerNormal,
	}
}

// MatchKind says which pass produced a match.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchPartial
	MatchManual
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPartial:
		return "partial"
	case MatchManual:
		return "manual"
	default:
		return "none"
	}
}

// Primary finds the albedo texture for materialName. Exact name equality is
// tried over every candidate before any substring match is considered.
func (m Matcher) Primary(materialName string, textures []Texture) (Texture, MatchKind) {
	name := strings.ToLower(materialName)
	for _, tex := range textures {
		texName, ok := candidateName(tex)
		if !ok || m.excluded(texName) {
			continue
		}
		if name == texName {
			return tex, MatchExact
		}
	}
	for _, tex := range textures {
		texName, ok := candidateName(tex)
		if !ok || m.excluded(texName) {
			continue
		}
		if strings.Contains(name, texName) {
			return tex, MatchPartial
		}
	}
	return nil, MatchNone
}

// NormalMap finds a normal map whose name, with the normal marker removed,
// is contained in materialName.
func (m Matcher) NormalMap(materialName string, textures []Texture) Texture {
	marker := strings.ToLower(m.normalMarker())
	name := strings.ToLower(materialName)
	for _, tex := range textures {
		texName, ok := candidateName(tex)
		if !ok || !strings.Contains(texName, marker) {
			continue
		}
		base := strings.ReplaceAll(texName, marker, "")
		if base == "" {
			continue
		}
		if strings.Contains(name, base) {
			return tex
		}
	}
	return nil
}

// IsNormalMap reports whether tex is classified as a normal map by name.
func (m Matcher) IsNormalMap(tex Texture) bool {
	texName, ok := candidateName(tex)
	return ok && strings.Contains(texName, strings.ToLower(m.normalMarker()))
}

// Suggest returns the primary candidate closest to materialName by edit
// distance, for manual follow-up on failed materials. Ties keep input order.
func (m Matcher) Suggest(materialName string, textures []Texture) (string, bool) {
	name := strings.ToLower(materialName)
	best, bestDist := "", -1
	for _, tex := range textures {
		texName, ok := candidateName(tex)
		if !ok || m.excluded(texName) {
			continue
		}
		dist := levenshtein.ComputeDistance(name, texName)
		if dist > suggestLimit(len(name)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = tex.Name(), dist
		}
	}
	return best, bestDist >= 0
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 3
	default:
		return length / 2
	}
}

func (m Matcher) excluded(texName string) bool {
	for _, marker := range m.Exclude {
		if marker != "" && strings.Contains(texName, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func (m Matcher) normalMarker() string {
	if m.NormalMarker == "" {
		return MarkerNormal
	}
	return m.NormalMarker
}

func candidateName(tex Texture) (string, bool) {
	if isNil(tex) {
		return "", false
	}
	name := strings.ToLower(tex.Name())
	return name, name != ""
}
