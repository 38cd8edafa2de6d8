package matfix

import (
	"errors"
	"strings"

	"github.com/ernie/matfixer/internal/logging"
)

// Options are the user-facing toggles of a run.
type Options struct {
	SpecularWorkflow bool
	ZeroSpecular     bool
	AssignNormalMaps bool
	Transparency     bool

	// Shader names; empty means the built-in Standard variants.
	StandardShader string
	SpecularShader string
}

// Shader returns the shader name for the selected workflow.
func (o Options) Shader() string {
	if o.SpecularWorkflow {
		if o.SpecularShader != "" {
			return o.SpecularShader
		}
		return ShaderStandardSpecular
	}
	if o.StandardShader != "" {
		return o.StandardShader
	}
	return ShaderStandard
}

var errNoHost = errors.New("no asset host configured")

// Driver applies the matcher and state selector to batches of materials.
type Driver struct {
	Host     Host
	Matcher  Matcher
	Selector StateSelector
	Options  Options
	// Overrides maps lowered material names to texture names. They are
	// consulted only after both matcher passes fail.
	Overrides map[string]string
	Logger    logging.Logger
}

func NewDriver(host Host, opts Options, logger logging.Logger) *Driver {
	return &Driver{
		Host:     host,
		Matcher:  DefaultMatcher(),
		Selector: DefaultStateSelector(),
		Options:  opts,
		Logger:   logging.OrNop(logger),
	}
}

// Assign sets shader, textures, specular and render state on every material.
// Steps run in a fixed order per material: the shader must be in place
// before any of its properties are written.
func (d *Driver) Assign(materials []Material, textures []Texture) *Report {
	log := logging.OrNop(d.Logger)
	rep := newReport(ActionAssign)
	shader := d.Options.Shader()
	rep.Shader = shader

	for _, mat := range materials {
		if isNil(mat) {
			continue
		}
		rep.Processed++
		name := mat.Name()

		mat.SetShader(shader)

		tex, kind := d.primary(name, textures)
		if tex != nil {
			if err := mat.SetTexture(PropMainTex, tex); err != nil {
				log.Warnf("Cannot assign %s to %s: %v", tex.Name(), name, err)
				rep.Errors = append(rep.Errors, HostError{Subject: name, Err: err})
				tex = nil
			}
		}
		if tex != nil {
			mat.SetColor(PropColor, White)
			if kind == MatchExact {
				log.Infof("Assigned %s to %s", tex.Name(), name)
			} else {
				log.Infof("Assigned %s to %s (%s match)", tex.Name(), name, kind)
			}
			rep.Assigned = append(rep.Assigned, Assignment{Material: name, Texture: tex.Name(), Kind: kind})
		} else {
			log.Warnf("No suitable texture found for %s. Check naming conventions or assign manually.", name)
			suggestion, _ := d.Matcher.Suggest(name, textures)
			rep.Failed = append(rep.Failed, Failure{Material: name, Path: assetPath(mat), Suggestion: suggestion})
		}

		if d.Options.AssignNormalMaps {
			if nm := d.Matcher.NormalMap(name, textures); nm != nil {
				if err := mat.SetTexture(PropBumpMap, nm); err != nil {
					log.Warnf("Cannot assign normal map %s to %s: %v", nm.Name(), name, err)
					rep.Errors = append(rep.Errors, HostError{Subject: name, Err: err})
				} else {
					mat.SetKeyword(KeywordNormalMap, true)
					log.Infof("Assigned normal map %s to %s", nm.Name(), name)
					rep.NormalMaps = append(rep.NormalMaps, Assignment{Material: name, Texture: nm.Name(), Kind: MatchPartial})
				}
			}
		}

		if sp, ok := SelectSpecular(d.Options.ZeroSpecular, d.Options.SpecularWorkflow); ok {
			ApplySpecular(mat, sp)
			log.Debugf("Set specular color and glossiness %.2f for %s", sp.Glossiness, name)
		}

		st := d.Selector.RenderState(name, d.Options.Transparency)
		ApplyRenderState(mat, st)
		log.Debugf("Render state %s for %s", st.Mode, name)
	}

	log.Infof("Texture assignment complete: %s", rep.Summary())
	return rep
}

func (d *Driver) primary(name string, textures []Texture) (Texture, MatchKind) {
	if tex, kind := d.Matcher.Primary(name, textures); tex != nil {
		return tex, kind
	}
	want, ok := d.Overrides[strings.ToLower(name)]
	if !ok {
		return nil, MatchNone
	}
	for _, tex := range textures {
		texName, ok := candidateName(tex)
		if ok && texName == strings.ToLower(want) {
			return tex, MatchManual
		}
	}
	logging.OrNop(d.Logger).Warnf("Override texture %s for %s not found", want, name)
	return nil, MatchNone
}

// FixNormalMaps asks the host to reimport every texture named as a normal
// map. Each reimport blocks until the host finishes.
func (d *Driver) FixNormalMaps(textures []Texture) *Report {
	log := logging.OrNop(d.Logger)
	rep := newReport(ActionFixNormals)

	for _, tex := range textures {
		if !d.Matcher.IsNormalMap(tex) {
			continue
		}
		rep.Processed++
		var err error
		if d.Host == nil {
			err = errNoHost
		} else {
			err = d.Host.ReimportAsNormalMap(tex)
		}
		if err != nil {
			log.Warnf("Skipping %s: %v", tex.Name(), err)
			rep.Errors = append(rep.Errors, HostError{Subject: tex.Name(), Err: err})
			continue
		}
		log.Infof("Fixed normal map import settings for %s", tex.Name())
		rep.Reimported = append(rep.Reimported, tex.Name())
	}

	log.Infof("Normal map fixing complete: %s", rep.Summary())
	return rep
}

// Unassign clears the primary and normal-map slots of every material.
func (d *Driver) Unassign(materials []Material) *Report {
	log := logging.OrNop(d.Logger)
	rep := newReport(ActionUnassign)

	for _, mat := range materials {
		if isNil(mat) {
			continue
		}
		rep.Processed++
		if err := mat.SetTexture(PropMainTex, nil); err != nil {
			rep.Errors = append(rep.Errors, HostError{Subject: mat.Name(), Err: err})
			continue
		}
		if mat.HasProperty(PropBumpMap) {
			if err := mat.SetTexture(PropBumpMap, nil); err != nil {
				rep.Errors = append(rep.Errors, HostError{Subject: mat.Name(), Err: err})
				continue
			}
			mat.SetKeyword(KeywordNormalMap, false)
		}
		log.Infof("Removed all textures from %s", mat.Name())
		rep.Cleared = append(rep.Cleared, mat.Name())
	}

	log.Infof("All textures removed from materials: %s", rep.Summary())
	return rep
}
