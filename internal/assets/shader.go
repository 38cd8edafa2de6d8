package assets

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ernie/matfixer/internal/matfix"
)

// ObjectRef is a serialized object reference: {fileID: 46, guid: ..., type: 0}.
type ObjectRef struct {
	FileID int64  `yaml:"fileID"`
	GUID   string `yaml:"guid"`
	Type   int    `yaml:"type"`
}

func (r ObjectRef) String() string {
	if r.GUID == "" {
		return fmt.Sprintf("{fileID: %d}", r.FileID)
	}
	return fmt.Sprintf("{fileID: %d, guid: %s, type: %d}", r.FileID, r.GUID, r.Type)
}

func (r ObjectRef) node() *yaml.Node {
	if r.GUID == "" {
		return flowMap("fileID", strconv.FormatInt(r.FileID, 10))
	}
	return flowMap("fileID", strconv.FormatInt(r.FileID, 10), "guid", r.GUID, "type", strconv.Itoa(r.Type))
}

// ParseObjectRef parses the inline form used in config files.
func ParseObjectRef(s string) (ObjectRef, error) {
	var ref ObjectRef
	if err := yaml.Unmarshal([]byte(s), &ref); err != nil {
		return ObjectRef{}, fmt.Errorf("parse object reference %q: %w", s, err)
	}
	if ref.FileID == 0 {
		return ObjectRef{}, fmt.Errorf("object reference %q has no fileID", s)
	}
	return ref, nil
}

// parseRef decodes a reference node; fileID 0 is the null reference.
func parseRef(n *yaml.Node) (ObjectRef, bool) {
	if n == nil || n.Kind != yaml.MappingNode {
		return ObjectRef{}, false
	}
	var ref ObjectRef
	if err := n.Decode(&ref); err != nil || ref.FileID == 0 {
		return ObjectRef{}, false
	}
	return ref, true
}

const (
	builtinExtraGUID = "0000000000000000f000000000000000"
	// shaderFileID is the main object of an imported .shader asset.
	shaderFileID = 4800000
)

var standardProperties = []string{
	"_Color", "_MainTex", "_Cutoff", "_Glossiness", "_GlossMapScale",
	"_SmoothnessTextureChannel", "_SpecularHighlights", "_GlossyReflections",
	"_BumpScale", "_BumpMap", "_Parallax", "_ParallaxMap", "_OcclusionStrength",
	"_OcclusionMap", "_EmissionColor", "_EmissionMap", "_DetailMask",
	"_DetailAlbedoMap", "_DetailNormalMapScale", "_DetailNormalMap", "_UVSec",
	"_Mode", "_SrcBlend", "_DstBlend", "_ZWrite",
}

// ShaderTable maps shader names to references and the properties each
// shader declares.
type ShaderTable struct {
	byName map[string]ObjectRef
	names  map[ObjectRef]string
	props  map[ObjectRef]map[string]bool
}

func NewShaderTable() *ShaderTable {
	return &ShaderTable{
		byName: make(map[string]ObjectRef),
		names:  make(map[ObjectRef]string),
		props:  make(map[ObjectRef]map[string]bool),
	}
}

// BuiltinShaders returns a table holding the two built-in Standard shaders.
func BuiltinShaders() *ShaderTable {
	t := NewShaderTable()
	t.Add(matfix.ShaderStandard, ObjectRef{FileID: 46, GUID: builtinExtraGUID}, append(slices.Clip(standardProperties), "_Metallic", "_MetallicGlossMap"))
	t.Add(matfix.ShaderStandardSpecular, ObjectRef{FileID: 45, GUID: builtinExtraGUID}, append(slices.Clip(standardProperties), "_SpecColor", "_SpecGlossMap"))
	return t
}

// Add registers a shader. Later registrations of the same name win.
func (t *ShaderTable) Add(name string, ref ObjectRef, props []string) {
	t.byName[strings.ToLower(name)] = ref
	t.names[ref] = name
	set := make(map[string]bool, len(props))
	for _, p := range props {
		set[p] = true
	}
	t.props[ref] = set
}

func (t *ShaderTable) Lookup(name string) (ObjectRef, bool) {
	ref, ok := t.byName[strings.ToLower(name)]
	return ref, ok
}

func (t *ShaderTable) Name(ref ObjectRef) (string, bool) {
	name, ok := t.names[ref]
	return name, ok
}

func (t *ShaderTable) Declares(ref ObjectRef, prop string) bool {
	return t.props[ref][prop]
}

// Names returns the registered shader names, sorted.
func (t *ShaderTable) Names() []string {
	out := make([]string, 0, len(t.names))
	for _, name := range t.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ShaderDef is a shader declared in a ShaderLab source file.
type ShaderDef struct {
	Name       string
	Properties []string
}

// ParseShaderLab extracts shader names and their Properties block entries
// from a .shader file.
func ParseShaderLab(r io.Reader) ([]ShaderDef, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer for large shader files

	var shaders []ShaderDef
	var current *ShaderDef
	depth := 0
	propsDepth := -1
	pending := ""
	inBlockComment := false

	for scanner.Scan() {
		line := scanner.Text()

		if inBlockComment {
			if idx := strings.Index(line, "*/"); idx >= 0 {
				line = line[idx+2:]
				inBlockComment = false
			} else {
				continue
			}
		}
		line, inBlockComment = stripComments(line)

		line = strings.TrimSpace(line)
		for line != "" {
			if line[0] == '{' {
				depth++
				if current != nil && pending == "properties" && depth == 2 {
					propsDepth = depth
				}
				pending = ""
				line = strings.TrimSpace(line[1:])
				continue
			}
			if line[0] == '}' {
				if depth == propsDepth {
					propsDepth = -1
				}
				depth--
				if depth == 0 && current != nil {
					shaders = append(shaders, *current)
					current = nil
				}
				line = strings.TrimSpace(line[1:])
				continue
			}

			var content string
			if idx := strings.IndexAny(line, "{}"); idx >= 0 {
				content = strings.TrimSpace(line[:idx])
				line = line[idx:]
			} else {
				content = line
				line = ""
			}
			if content == "" {
				continue
			}
			pending = strings.ToLower(content)

			switch {
			case depth == 0 && strings.HasPrefix(content, "Shader"):
				if name, ok := quoted(content); ok {
					current = &ShaderDef{Name: name}
				}
			case current != nil && depth == propsDepth:
				if prop := propertyName(content); prop != "" {
					current.Properties = append(current.Properties, prop)
				}
			}
		}
	}

	return shaders, scanner.Err()
}

// stripComments removes // and /* */ comments, reporting whether a block
// comment is still open at end of line.
func stripComments(line string) (string, bool) {
	for {
		slashSlash := strings.Index(line, "//")
		slashStar := strings.Index(line, "/*")

		if slashStar >= 0 && (slashSlash < 0 || slashStar < slashSlash) {
			endIdx := strings.Index(line[slashStar+2:], "*/")
			if endIdx < 0 {
				return line[:slashStar], true
			}
			line = line[:slashStar] + line[slashStar+2+endIdx+2:]
			continue
		}
		if slashSlash >= 0 {
			return line[:slashSlash], false
		}
		return line, false
	}
}

func quoted(s string) (string, bool) {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}

// propertyName returns "_MainTex" from `[NoScaleOffset] _MainTex ("Albedo", 2D) = "white"`.
func propertyName(s string) string {
	for strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return ""
		}
		s = strings.TrimSpace(s[end+1:])
	}
	end := strings.IndexAny(s, " \t(")
	if end < 0 {
		end = len(s)
	}
	name := s[:end]
	if name == "" || !(name[0] == '_' || (name[0] >= 'A' && name[0] <= 'Z') || (name[0] >= 'a' && name[0] <= 'z')) {
		return ""
	}
	return name
}
