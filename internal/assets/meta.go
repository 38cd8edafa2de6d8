package assets

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// TextureImporter.textureType values.
const (
	TextureTypeDefault   = 0
	TextureTypeNormalMap = 1
)

var ErrNoTextureImporter = errors.New("no TextureImporter in meta file")

// Meta is an asset's .meta sidecar.
type Meta struct {
	path string
	file *YAMLFile
	doc  *YAMLDoc
	orig []byte
}

// MetaPath returns the sidecar path for an asset.
func MetaPath(assetPath string) string {
	return assetPath + ".meta"
}

// LoadMeta reads the .meta next to assetPath.
func LoadMeta(assetPath string) (*Meta, error) {
	path := MetaPath(assetPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	f, err := ParseYAMLFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Docs) == 0 {
		return nil, fmt.Errorf("%s: empty meta file", path)
	}
	return &Meta{path: path, file: f, doc: f.Docs[0], orig: data}, nil
}

func (m *Meta) Path() string { return m.path }

// GUID is the asset GUID assigned by the editor.
func (m *Meta) GUID() string {
	if n := mapGet(m.doc.Body(), "guid"); n != nil {
		return n.Value
	}
	return ""
}

func (m *Meta) importer() *yaml.Node {
	return m.doc.Object("TextureImporter")
}

// TextureType returns TextureImporter.textureType.
func (m *Meta) TextureType() (int, error) {
	imp := m.importer()
	if imp == nil {
		return 0, ErrNoTextureImporter
	}
	n := mapGet(imp, "textureType")
	if n == nil {
		return TextureTypeDefault, nil
	}
	return strconv.Atoi(n.Value)
}

// SetTextureType changes the importer type. It reports whether the value
// changed.
func (m *Meta) SetTextureType(t int) (bool, error) {
	imp := m.importer()
	if imp == nil {
		return false, ErrNoTextureImporter
	}
	value := strconv.Itoa(t)
	if n := mapGet(imp, "textureType"); n != nil && n.Value == value {
		return false, nil
	}
	mapSet(imp, "textureType", scalar(value))
	m.doc.markDirty()
	return true, nil
}

func (m *Meta) Dirty() bool { return m.file.Dirty() }

func (m *Meta) Bytes() ([]byte, error) { return m.file.Bytes() }
