package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ernie/matfixer/internal/logging"
	"github.com/ernie/matfixer/internal/matfix"
)

// textureFileID is the local file ID Unity uses for the main object of a
// texture asset; 3 is the "meta asset" reference type.
const (
	textureFileID  = "2800000"
	textureRefType = "3"
)

// ErrNoGUID is returned when a texture without a readable .meta is assigned.
// Materials reference textures by GUID only.
var ErrNoGUID = errors.New("texture has no asset GUID")

// Material is a .mat asset loaded from disk. It implements matfix.Material
// by editing the class 21 document in place.
type Material struct {
	path    string
	project *Project
	file    *YAMLFile
	doc     *YAMLDoc
	obj     *yaml.Node
	orig    []byte
}

var _ matfix.Material = (*Material)(nil)

// LoadMaterial parses a .mat file.
func LoadMaterial(path string) (*Material, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read material: %w", err)
	}
	return ParseMaterial(path, data)
}

// ParseMaterial parses .mat content; path is only recorded.
func ParseMaterial(path string, data []byte) (*Material, error) {
	f, err := ParseYAMLFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	doc := f.FindClass(ClassMaterial)
	if doc == nil {
		// Header-less test fixtures and hand-written files.
		for _, d := range f.Docs {
			if d.Object("Material") != nil {
				doc = d
				break
			}
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("%s: no Material document", path)
	}
	obj := doc.Object("Material")
	if obj == nil {
		return nil, fmt.Errorf("%s: Material document has no body", path)
	}
	return &Material{path: path, file: f, doc: doc, obj: obj, orig: data}, nil
}

func (m *Material) Path() string { return m.path }

// Name is m_Name, falling back to the file name.
func (m *Material) Name() string {
	if n := mapGet(m.obj, "m_Name"); n != nil && n.Value != "" {
		return n.Value
	}
	return strings.TrimSuffix(filepath.Base(m.path), filepath.Ext(m.path))
}

func (m *Material) Dirty() bool { return m.file.Dirty() }

// Bytes returns the serialized material including pending edits.
func (m *Material) Bytes() ([]byte, error) { return m.file.Bytes() }

func (m *Material) SetShader(name string) {
	ref, ok := m.shaders().Lookup(name)
	if !ok {
		m.logger().Warnf("Unknown shader %q for %s, leaving shader unchanged", name, m.Name())
		return
	}
	m.put(m.obj, "m_Shader", ref.node())
}

// ShaderName resolves m_Shader against the known shader table.
func (m *Material) ShaderName() string {
	ref, ok := parseRef(mapGet(m.obj, "m_Shader"))
	if !ok {
		return ""
	}
	if name, ok := m.shaders().Name(ref); ok {
		return name
	}
	return ref.String()
}

func (m *Material) SetTexture(prop string, tex matfix.Texture) error {
	value := flowMap("fileID", "0")
	if t, ok := tex.(*Texture); ok && t == nil {
		tex = nil
	}
	if tex != nil {
		t, ok := tex.(*Texture)
		if !ok || t.GUID == "" {
			return fmt.Errorf("%s: %w", tex.Name(), ErrNoGUID)
		}
		value = flowMap("fileID", textureFileID, "guid", t.GUID, "type", textureRefType)
	}

	envs := ensureSeq(m.savedProps(), "m_TexEnvs")
	env := seqEntry(envs, prop)
	if env == nil {
		env = &yaml.Node{Kind: yaml.MappingNode}
		mapSet(env, "m_Texture", value)
		mapSet(env, "m_Scale", flowMap("x", "1", "y", "1"))
		mapSet(env, "m_Offset", flowMap("x", "0", "y", "0"))
		seqInsert(envs, prop, env)
		m.doc.markDirty()
		return nil
	}
	m.put(env, "m_Texture", value)
	return nil
}

// TextureGUID returns the GUID referenced by a texture slot, or "".
func (m *Material) TextureGUID(prop string) string {
	env := seqEntry(mapGet(mapGet(m.obj, "m_SavedProperties"), "m_TexEnvs"), prop)
	ref, ok := parseRef(mapGet(env, "m_Texture"))
	if !ok {
		return ""
	}
	return ref.GUID
}

func (m *Material) SetColor(prop string, c matfix.Color) {
	value := flowMap("r", formatFloat(c.R), "g", formatFloat(c.G), "b", formatFloat(c.B), "a", formatFloat(c.A))
	colors := ensureSeq(m.savedProps(), "m_Colors")
	m.setEntry(colors, prop, value)
}

// Color reads a colour property.
func (m *Material) Color(prop string) (matfix.Color, bool) {
	n := seqEntry(mapGet(mapGet(m.obj, "m_SavedProperties"), "m_Colors"), prop)
	if n == nil || n.Kind != yaml.MappingNode {
		return matfix.Color{}, false
	}
	f := func(k string) float64 {
		v, _ := strconv.ParseFloat(mapGet(n, k).Value, 64)
		return v
	}
	if mapGet(n, "r") == nil || mapGet(n, "g") == nil || mapGet(n, "b") == nil || mapGet(n, "a") == nil {
		return matfix.Color{}, false
	}
	return matfix.Color{R: f("r"), G: f("g"), B: f("b"), A: f("a")}, true
}

func (m *Material) SetFloat(prop string, v float64) {
	floats := ensureSeq(m.savedProps(), "m_Floats")
	m.setEntry(floats, prop, scalar(formatFloat(v)))
}

// SetInt stores the value in m_Floats; the Standard shader declares its
// blend and z-write properties as floats.
func (m *Material) SetInt(prop string, v int) {
	m.SetFloat(prop, float64(v))
}

// Float reads a float property.
func (m *Material) Float(prop string) (float64, bool) {
	n := seqEntry(mapGet(mapGet(m.obj, "m_SavedProperties"), "m_Floats"), prop)
	if n == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.Value, 64)
	return v, err == nil
}

func (m *Material) setEntry(seq *yaml.Node, prop string, value *yaml.Node) {
	for _, item := range seq.Content {
		if entryKey(item) == prop && len(item.Content) == 2 {
			if !sameValue(item.Content[1], value) {
				item.Content[1] = value
				m.doc.markDirty()
			}
			return
		}
	}
	seqInsert(seq, prop, value)
	m.doc.markDirty()
}

// put sets key on mapping parent, marking the document dirty only when the
// value changes.
func (m *Material) put(parent *yaml.Node, key string, value *yaml.Node) {
	if sameValue(mapGet(parent, key), value) {
		return
	}
	mapSet(parent, key, value)
	m.doc.markDirty()
}

// SetKeyword edits m_ShaderKeywords and, on newer serialization versions,
// m_ValidKeywords.
func (m *Material) SetKeyword(keyword string, enabled bool) {
	kwNode := mapGet(m.obj, "m_ShaderKeywords")
	valid := mapGet(m.obj, "m_ValidKeywords")

	if kwNode != nil || valid == nil {
		var words []string
		if kwNode != nil {
			words = strings.Fields(kwNode.Value)
		}
		next, changed := toggle(words, keyword, enabled)
		if changed {
			if kwNode == nil {
				kwNode = scalar("")
				mapSet(m.obj, "m_ShaderKeywords", kwNode)
			}
			setScalar(kwNode, strings.Join(next, " "))
			m.doc.markDirty()
		}
	}
	if valid != nil && valid.Kind == yaml.SequenceNode {
		var words []string
		for _, n := range valid.Content {
			words = append(words, n.Value)
		}
		words, changed := toggle(words, keyword, enabled)
		if !changed {
			return
		}
		m.doc.markDirty()
		valid.Content = valid.Content[:0]
		for _, w := range words {
			valid.Content = append(valid.Content, scalar(w))
		}
		if len(words) == 0 {
			valid.Style = yaml.FlowStyle
		} else {
			valid.Style = 0
		}
	}
}

func toggle(words []string, keyword string, enabled bool) ([]string, bool) {
	has := slices.Contains(words, keyword)
	switch {
	case enabled && !has:
		words = append(words, keyword)
		slices.Sort(words)
		return words, true
	case !enabled && has:
		return slices.DeleteFunc(words, func(w string) bool { return w == keyword }), true
	}
	return words, false
}

// Keywords lists the enabled shader keywords.
func (m *Material) Keywords() []string {
	seen := map[string]bool{}
	var out []string
	if n := mapGet(m.obj, "m_ShaderKeywords"); n != nil {
		for _, w := range strings.Fields(n.Value) {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	if n := mapGet(m.obj, "m_ValidKeywords"); n != nil {
		for _, c := range n.Content {
			if !seen[c.Value] {
				seen[c.Value] = true
				out = append(out, c.Value)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (m *Material) SetRenderQueue(queue int) {
	m.put(m.obj, "m_CustomRenderQueue", scalar(strconv.Itoa(queue)))
}

// RenderQueue returns m_CustomRenderQueue; -1 means "from shader".
func (m *Material) RenderQueue() int {
	n := mapGet(m.obj, "m_CustomRenderQueue")
	if n == nil {
		return -1
	}
	q, err := strconv.Atoi(n.Value)
	if err != nil {
		return -1
	}
	return q
}

// HasProperty reports whether the property is serialized on the material or
// declared by its shader.
func (m *Material) HasProperty(prop string) bool {
	props := mapGet(m.obj, "m_SavedProperties")
	for _, key := range []string{"m_TexEnvs", "m_Floats", "m_Colors", "m_Ints"} {
		if seqEntry(mapGet(props, key), prop) != nil {
			return true
		}
	}
	ref, ok := parseRef(mapGet(m.obj, "m_Shader"))
	if !ok {
		return false
	}
	return m.shaders().Declares(ref, prop)
}

func (m *Material) savedProps() *yaml.Node {
	return ensureMap(m.obj, "m_SavedProperties")
}

func (m *Material) shaders() *ShaderTable {
	if m.project != nil {
		return m.project.Shaders
	}
	return BuiltinShaders()
}

func (m *Material) logger() logging.Logger {
	if m.project != nil {
		return m.project.log
	}
	return logging.NewNop()
}
