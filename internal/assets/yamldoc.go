package assets

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unity class IDs of the documents this package edits.
const (
	ClassMaterial = 21
)

// YAMLFile is a Unity serialized asset: an optional directive preamble
// followed by one or more documents. Headers and untouched documents are
// written back byte for byte.
type YAMLFile struct {
	Preamble []byte
	Docs     []*YAMLDoc
}

// YAMLDoc is one document of a YAMLFile. Header is the raw "--- !u!21 &2100000"
// line, empty for header-less files such as .meta.
type YAMLDoc struct {
	Header  string
	ClassID int
	FileID  string

	body  []byte
	root  *yaml.Node
	dirty bool
}

// ParseYAMLFile splits data into documents and parses each body.
func ParseYAMLFile(data []byte) (*YAMLFile, error) {
	f := &YAMLFile{}
	var cur *YAMLDoc
	var body bytes.Buffer

	flush := func() {
		if cur != nil {
			cur.body = append([]byte(nil), body.Bytes()...)
			f.Docs = append(f.Docs, cur)
		}
		body.Reset()
	}

	sawHeader := false
	for _, line := range splitLinesKeepEnds(data) {
		trimmed := strings.TrimRight(string(line), "\r\n")
		if strings.HasPrefix(trimmed, "---") {
			flush()
			cur = parseHeader(trimmed)
			sawHeader = true
			continue
		}
		if !sawHeader && cur == nil {
			if strings.HasPrefix(trimmed, "%") {
				f.Preamble = append(f.Preamble, line...)
				continue
			}
			cur = &YAMLDoc{}
		}
		body.Write(line)
	}
	flush()

	for i, doc := range f.Docs {
		var node yaml.Node
		if err := yaml.Unmarshal(doc.body, &node); err != nil {
			return nil, fmt.Errorf("parse document %d: %w", i, err)
		}
		if node.Kind == 0 {
			node = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
		}
		doc.root = &node
	}
	return f, nil
}

func parseHeader(line string) *YAMLDoc {
	doc := &YAMLDoc{Header: line}
	for _, field := range strings.Fields(line)[1:] {
		switch {
		case strings.HasPrefix(field, "!u!"):
			doc.ClassID, _ = strconv.Atoi(strings.TrimPrefix(field, "!u!"))
		case strings.HasPrefix(field, "&"):
			doc.FileID = strings.TrimPrefix(field, "&")
		}
	}
	return doc
}

func splitLinesKeepEnds(data []byte) [][]byte {
	var lines [][]byte
	for len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			lines = append(lines, data)
			break
		}
		lines = append(lines, data[:idx+1])
		data = data[idx+1:]
	}
	return lines
}

// Bytes serializes the file, re-encoding only documents marked dirty.
func (f *YAMLFile) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(f.Preamble)
	for i, doc := range f.Docs {
		if doc.Header != "" {
			buf.WriteString(doc.Header)
			buf.WriteByte('\n')
		}
		if !doc.dirty {
			buf.Write(doc.body)
			continue
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc.root); err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Dirty reports whether any document was modified.
func (f *YAMLFile) Dirty() bool {
	for _, doc := range f.Docs {
		if doc.dirty {
			return true
		}
	}
	return false
}

// FindClass returns the first document with the given class ID.
func (f *YAMLFile) FindClass(classID int) *YAMLDoc {
	for _, doc := range f.Docs {
		if doc.ClassID == classID {
			return doc
		}
	}
	return nil
}

// Body returns the top-level mapping of the document.
func (d *YAMLDoc) Body() *yaml.Node {
	return d.root.Content[0]
}

// Object returns the mapping under the document's single root key, such as
// "Material" or "TextureImporter".
func (d *YAMLDoc) Object(key string) *yaml.Node {
	n := mapGet(d.Body(), key)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

func (d *YAMLDoc) markDirty() { d.dirty = true }

// --- yaml.Node helpers ---

func mapGet(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func mapSet(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, scalar(key), value)
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func setScalar(n *yaml.Node, value string) {
	n.Kind = yaml.ScalarNode
	n.Tag = ""
	n.Style = 0
	n.Value = value
	n.Content = nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// flowMap builds a flow-style mapping like {fileID: 0} from key/value pairs.
func flowMap(kv ...string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Content = append(n.Content, scalar(kv[i]), scalar(kv[i+1]))
	}
	return n
}

// seqEntry finds the value of the single-key mapping named key inside a
// Unity property list such as m_TexEnvs.
func seqEntry(seq *yaml.Node, key string) *yaml.Node {
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return nil
	}
	for _, item := range seq.Content {
		if v := mapGet(item, key); v != nil {
			return v
		}
	}
	return nil
}

// seqInsert adds a single-key entry, keeping the list sorted by key the way
// the editor serializes it.
func seqInsert(seq *yaml.Node, key string, value *yaml.Node) {
	item := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar(key), value}}
	idx := sort.Search(len(seq.Content), func(i int) bool {
		return entryKey(seq.Content[i]) > key
	})
	seq.Content = append(seq.Content, nil)
	copy(seq.Content[idx+1:], seq.Content[idx:])
	seq.Content[idx] = item
}

func entryKey(item *yaml.Node) string {
	if item.Kind != yaml.MappingNode || len(item.Content) == 0 {
		return ""
	}
	return item.Content[0].Value
}

// ensureSeq returns the block sequence under key, creating it if needed.
func ensureSeq(m *yaml.Node, key string) *yaml.Node {
	n := mapGet(m, key)
	if n != nil && n.Kind == yaml.SequenceNode {
		// Unity writes empty lists as "[]"; switch to block style once filled.
		n.Style = 0
		return n
	}
	n = &yaml.Node{Kind: yaml.SequenceNode}
	mapSet(m, key, n)
	return n
}

func ensureMap(m *yaml.Node, key string) *yaml.Node {
	n := mapGet(m, key)
	if n != nil && n.Kind == yaml.MappingNode {
		return n
	}
	n = &yaml.Node{Kind: yaml.MappingNode}
	mapSet(m, key, n)
	return n
}

// sameValue compares two nodes by content, ignoring tags and styles.
func sameValue(a, b *yaml.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Value != b.Value || len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if !sameValue(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}
