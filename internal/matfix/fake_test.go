package matfix

import (
	"errors"
	"fmt"
)

type fakeTexture string

func (t fakeTexture) Name() string { return string(t) }

type namedTexture struct{ name string }

func (t *namedTexture) Name() string { return t.name }

func textures(names ...string) []Texture {
	out := make([]Texture, 0, len(names))
	for _, n := range names {
		out = append(out, fakeTexture(n))
	}
	return out
}

type fakeMaterial struct {
	name     string
	shader   string
	textures map[string]Texture
	colors   map[string]Color
	floats   map[string]float64
	keywords map[string]bool
	queue    int
	calls    []string

	// unreferenced textures are rejected by SetTexture.
	unreferenced map[string]bool
}

func newFakeMaterial(name string) *fakeMaterial {
	return &fakeMaterial{
		name:     name,
		textures: map[string]Texture{},
		colors:   map[string]Color{},
		floats:   map[string]float64{},
		keywords: map[string]bool{},
	}
}

func (m *fakeMaterial) Name() string { return m.name }

func (m *fakeMaterial) SetShader(name string) {
	m.shader = name
	m.calls = append(m.calls, "shader")
}

var errUnreferenced = errors.New("texture cannot be referenced")

func (m *fakeMaterial) SetTexture(prop string, tex Texture) error {
	if tex != nil && m.unreferenced[tex.Name()] {
		return errUnreferenced
	}
	m.textures[prop] = tex
	m.calls = append(m.calls, "texture "+prop)
	return nil
}

func (m *fakeMaterial) SetColor(prop string, c Color) {
	m.colors[prop] = c
	m.calls = append(m.calls, "color "+prop)
}

func (m *fakeMaterial) SetFloat(prop string, v float64) {
	m.floats[prop] = v
	m.calls = append(m.calls, "float "+prop)
}

func (m *fakeMaterial) SetInt(prop string, v int) {
	m.floats[prop] = float64(v)
	m.calls = append(m.calls, "int "+prop)
}

func (m *fakeMaterial) SetKeyword(keyword string, enabled bool) {
	m.keywords[keyword] = enabled
	m.calls = append(m.calls, fmt.Sprintf("keyword %s=%t", keyword, enabled))
}

func (m *fakeMaterial) SetRenderQueue(queue int) {
	m.queue = queue
	m.calls = append(m.calls, "queue")
}

func (m *fakeMaterial) HasProperty(prop string) bool {
	_, ok := m.textures[prop]
	return ok
}

func (m *fakeMaterial) texName(prop string) string {
	tex := m.textures[prop]
	if tex == nil {
		return ""
	}
	return tex.Name()
}

type fakeHost struct {
	reimported []string
	fail       map[string]bool
}

func (h *fakeHost) ReimportAsNormalMap(tex Texture) error {
	if h.fail[tex.Name()] {
		return errors.New("no importer")
	}
	h.reimported = append(h.reimported, tex.Name())
	return nil
}
