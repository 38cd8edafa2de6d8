// Package config loads matfixer.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ernie/matfixer/internal/matfix"
)

// FileName is looked up in the project root when no path is given.
const FileName = "matfixer.yaml"

// Config is the on-disk configuration. Relative paths are relative to the
// project root.
type Config struct {
	Materials  []string `yaml:"materials"`
	Textures   []string `yaml:"textures"`
	ShaderDirs []string `yaml:"shader_dirs"`

	Options    Options    `yaml:"options"`
	Markers    Markers    `yaml:"markers"`
	Categories Categories `yaml:"categories"`
	Shaders    Shaders    `yaml:"shaders"`

	// CustomShaders maps shader names to object references such as
	// "{fileID: 4800000, guid: ..., type: 3}".
	CustomShaders map[string]string `yaml:"custom_shaders"`

	Overrides string `yaml:"overrides"`
	Backups   string `yaml:"backups"`
	History   string `yaml:"history"`
	Debug     bool   `yaml:"debug"`
}

type Options struct {
	SpecularWorkflow bool `yaml:"specular_workflow"`
	ZeroSpecular     bool `yaml:"zero_specular"`
	NormalMaps       bool `yaml:"normal_maps"`
	Transparency     bool `yaml:"transparency"`
}

type Markers struct {
	Normal  string   `yaml:"normal"`
	Exclude []string `yaml:"exclude"`
}

type Categories struct {
	Fade   []string `yaml:"fade"`
	Cutout []string `yaml:"cutout"`
}

type Shaders struct {
	Standard string `yaml:"standard"`
	Specular string `yaml:"specular"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Materials: []string{"Assets"},
		Textures:  []string{"Assets"},
		Markers: Markers{
			Normal:  matfix.MarkerNormal,
			Exclude: append([]string(nil), matfix.DefaultExcludeMarkers...),
		},
		Categories: Categories{
			Fade:   append([]string(nil), matfix.DefaultFadeKeywords...),
			Cutout: append([]string(nil), matfix.DefaultCutoutKeywords...),
		},
		Shaders: Shaders{
			Standard: matfix.ShaderStandard,
			Specular: matfix.ShaderStandardSpecular,
		},
		Backups: filepath.Join(".matfixer", "backups"),
		History: filepath.Join(".matfixer", "history.db"),
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadProject loads path if set, otherwise matfixer.yaml in root if it
// exists, otherwise the defaults.
func LoadProject(root, path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg, err := Load(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects settings that would make every match fail.
func (c *Config) Validate() error {
	if len(c.Materials) == 0 {
		return errors.New("materials: at least one path is required")
	}
	if len(c.Textures) == 0 {
		return errors.New("textures: at least one path is required")
	}
	if c.Markers.Normal == "" {
		return errors.New("markers.normal must not be empty")
	}
	for i, m := range c.Markers.Exclude {
		if m == "" {
			return fmt.Errorf("markers.exclude[%d] must not be empty", i)
		}
	}
	return nil
}

// Resolve makes p absolute against root.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// MatchOptions converts the options section for the batch driver.
func (c *Config) MatchOptions() matfix.Options {
	return matfix.Options{
		SpecularWorkflow: c.Options.SpecularWorkflow,
		ZeroSpecular:     c.Options.ZeroSpecular,
		AssignNormalMaps: c.Options.NormalMaps,
		Transparency:     c.Options.Transparency,
		StandardShader:   c.Shaders.Standard,
		SpecularShader:   c.Shaders.Specular,
	}
}

// Matcher builds the name matcher from the markers section.
func (c *Config) Matcher() matfix.Matcher {
	return matfix.Matcher{
		Exclude:      append([]string(nil), c.Markers.Exclude...),
		NormalMarker: c.Markers.Normal,
	}
}

// Selector builds the state selector from the categories section.
func (c *Config) Selector() matfix.StateSelector {
	return matfix.StateSelector{
		Fade:   append([]string(nil), c.Categories.Fade...),
		Cutout: append([]string(nil), c.Categories.Cutout...),
	}
}
