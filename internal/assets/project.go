package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ernie/matfixer/internal/logging"
	"github.com/ernie/matfixer/internal/matfix"
)

// Project is a Unity project on disk acting as the asset host. Edits are
// staged in memory and written by Save.
type Project struct {
	Root    string
	Shaders *ShaderTable

	log       logging.Logger
	materials []*Material
	textures  []*Texture
	fileIndex map[string]*Texture // lowered slash path relative to Root
	byGUID    map[string]*Texture
	metas     map[string]*Meta // asset path -> meta
}

var _ matfix.Host = (*Project)(nil)

func OpenProject(root string, shaders *ShaderTable, logger logging.Logger) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open project: %s is not a directory", abs)
	}
	if shaders == nil {
		shaders = BuiltinShaders()
	}
	return &Project{
		Root:      abs,
		Shaders:   shaders,
		log:       logging.OrNop(logger),
		fileIndex: make(map[string]*Texture),
		byGUID:    make(map[string]*Texture),
		metas:     make(map[string]*Meta),
	}, nil
}

// Rel returns path relative to the project root in slash form.
func (p *Project) Rel(path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (p *Project) abs(input string) string {
	if filepath.IsAbs(input) {
		return input
	}
	return filepath.Join(p.Root, input)
}

// collectFiles expands inputs (files or directories) into matching files.
// Inputs keep their order; directory contents are walked lexically.
func (p *Project) collectFiles(inputs []string, match func(string) bool) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, input := range inputs {
		path := p.abs(input)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
		if !info.IsDir() {
			if match(path) {
				add(path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != p.abs(input) && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if match(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", input, err)
		}
	}
	return files, nil
}

func hasExt(ext string) func(string) bool {
	return func(path string) bool {
		return strings.EqualFold(filepath.Ext(path), ext)
	}
}

// LoadShaders registers every shader declared in .shader files under inputs.
func (p *Project) LoadShaders(inputs []string) error {
	files, err := p.collectFiles(inputs, hasExt(".shader"))
	if err != nil {
		return err
	}
	for _, path := range files {
		meta, err := LoadMeta(path)
		if err != nil {
			p.log.Debugf("Skipping shader %s: %v", p.Rel(path), err)
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			p.log.Warnf("Skipping shader %s: %v", p.Rel(path), err)
			continue
		}
		defs, err := ParseShaderLab(f)
		f.Close()
		if err != nil {
			p.log.Warnf("Skipping shader %s: %v", p.Rel(path), err)
			continue
		}
		// A .shader asset exposes only its first shader as the main object.
		if len(defs) > 0 {
			ref := ObjectRef{FileID: shaderFileID, GUID: meta.GUID(), Type: 3}
			p.Shaders.Add(defs[0].Name, ref, defs[0].Properties)
			p.log.Debugf("Registered shader %q from %s", defs[0].Name, p.Rel(path))
		}
	}
	return nil
}

// LoadMaterials loads every .mat under inputs. Unparseable files are
// skipped with a warning.
func (p *Project) LoadMaterials(inputs []string) ([]*Material, error) {
	files, err := p.collectFiles(inputs, hasExt(".mat"))
	if err != nil {
		return nil, err
	}
	var out []*Material
	for _, path := range files {
		mat, err := LoadMaterial(path)
		if err != nil {
			p.log.Warnf("Skipping material %s: %v", p.Rel(path), err)
			continue
		}
		mat.project = p
		out = append(out, mat)
	}
	p.materials = append(p.materials, out...)
	return out, nil
}

// LoadTextures loads every texture under inputs and reads its GUID.
func (p *Project) LoadTextures(inputs []string) ([]*Texture, error) {
	files, err := p.collectFiles(inputs, IsTextureFile)
	if err != nil {
		return nil, err
	}
	var out []*Texture
	for _, path := range files {
		tex := NewTexture(path)
		if info, err := os.Stat(path); err == nil {
			tex.Size = info.Size()
		}
		if meta, err := p.meta(path); err != nil {
			p.log.Warnf("Texture %s has no usable meta file: %v", p.Rel(path), err)
		} else {
			tex.GUID = meta.GUID()
			p.byGUID[tex.GUID] = tex
		}
		p.fileIndex[strings.ToLower(p.Rel(path))] = tex
		out = append(out, tex)
	}
	p.textures = append(p.textures, out...)
	return out, nil
}

func (p *Project) meta(assetPath string) (*Meta, error) {
	if m, ok := p.metas[assetPath]; ok {
		return m, nil
	}
	m, err := LoadMeta(assetPath)
	if err != nil {
		return nil, err
	}
	p.metas[assetPath] = m
	return m, nil
}

// TextureByGUID finds a loaded texture.
func (p *Project) TextureByGUID(guid string) (*Texture, bool) {
	t, ok := p.byGUID[guid]
	return t, ok
}

// ResolveTexturePath finds a loaded texture by project-relative path, with
// or without extension.
func (p *Project) ResolveTexturePath(path string) (*Texture, bool) {
	index := make(map[string]string, len(p.fileIndex))
	for k := range p.fileIndex {
		index[k] = k
	}
	resolved, ok := ResolveTexture(path, index)
	if !ok {
		return nil, false
	}
	return p.fileIndex[resolved], true
}

// ResolveOverrides rewrites override targets given as texture paths into
// texture names.
func (p *Project) ResolveOverrides(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(overrides))
	for mat, target := range overrides {
		if strings.ContainsAny(target, `/\`) {
			if tex, ok := p.ResolveTexturePath(target); ok {
				target = tex.Name()
			} else {
				p.log.Warnf("Override texture %s for %s not found in project", target, mat)
			}
		}
		out[mat] = target
	}
	return out
}

// ReimportAsNormalMap sets the texture's importer type to normal map. The
// change is written by Save; the editor reimports on its next refresh.
func (p *Project) ReimportAsNormalMap(tex matfix.Texture) error {
	t, ok := tex.(*Texture)
	if !ok {
		return fmt.Errorf("%s is not a project texture", tex.Name())
	}
	if t == nil {
		return fmt.Errorf("nil texture")
	}
	meta, err := p.meta(t.path)
	if err != nil {
		return fmt.Errorf("resolve importer for %s: %w", p.Rel(t.path), err)
	}
	if _, err := meta.SetTextureType(TextureTypeNormalMap); err != nil {
		return fmt.Errorf("%s: %w", p.Rel(meta.Path()), err)
	}
	return nil
}

// PendingFile is a staged edit.
type PendingFile struct {
	Path string
	Orig []byte
	Data []byte
}

// Pending returns every modified file in a stable order.
func (p *Project) Pending() ([]PendingFile, error) {
	var out []PendingFile
	for _, mat := range p.materials {
		if !mat.Dirty() {
			continue
		}
		data, err := mat.Bytes()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", p.Rel(mat.path), err)
		}
		out = append(out, PendingFile{Path: mat.path, Orig: mat.orig, Data: data})
	}
	for _, meta := range p.metas {
		if !meta.Dirty() {
			continue
		}
		data, err := meta.Bytes()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", p.Rel(meta.path), err)
		}
		out = append(out, PendingFile{Path: meta.path, Orig: meta.orig, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SaveOptions control how staged edits are written.
type SaveOptions struct {
	DryRun bool
	// BackupPath, when set, receives an archive of the original files
	// before anything is overwritten.
	BackupPath string
	RunID      string
}

// SaveResult lists what Save wrote.
type SaveResult struct {
	Written    []string
	BackupPath string
	BackupSize int64
}

// Save writes all staged edits.
func (p *Project) Save(opts SaveOptions) (SaveResult, error) {
	var res SaveResult
	pending, err := p.Pending()
	if err != nil {
		return res, err
	}
	if len(pending) == 0 {
		return res, nil
	}
	if opts.DryRun {
		for _, f := range pending {
			p.log.Infof("Would write %s", p.Rel(f.Path))
			res.Written = append(res.Written, p.Rel(f.Path))
		}
		return res, nil
	}

	if opts.BackupPath != "" {
		originals := make(map[string][]byte, len(pending))
		for _, f := range pending {
			originals[p.Rel(f.Path)] = f.Orig
		}
		size, err := WriteBackup(opts.BackupPath, opts.RunID, originals)
		if err != nil {
			return res, fmt.Errorf("write backup: %w", err)
		}
		res.BackupPath = opts.BackupPath
		res.BackupSize = size
	}

	for _, f := range pending {
		if err := writeFileAtomic(f.Path, f.Data); err != nil {
			return res, err
		}
		res.Written = append(res.Written, p.Rel(f.Path))
	}
	return res, nil
}

// writeFileAtomic replaces path via a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Materials returns every material loaded so far.
func (p *Project) Materials() []*Material { return p.materials }

// Textures returns every texture loaded so far.
func (p *Project) Textures() []*Texture { return p.textures }

// HostMaterials converts loaded materials for the batch driver.
func HostMaterials(mats []*Material) []matfix.Material {
	out := make([]matfix.Material, len(mats))
	for i, m := range mats {
		out[i] = m
	}
	return out
}

// HostTextures converts loaded textures for the batch driver.
func HostTextures(texs []*Texture) []matfix.Texture {
	out := make([]matfix.Texture, len(texs))
	for i, t := range texs {
		out[i] = t
	}
	return out
}
