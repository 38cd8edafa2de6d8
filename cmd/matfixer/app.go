package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/ernie/matfixer/internal/assets"
	"github.com/ernie/matfixer/internal/config"
	"github.com/ernie/matfixer/internal/history"
	"github.com/ernie/matfixer/internal/logging"
	"github.com/ernie/matfixer/internal/matfix"
	"github.com/ernie/matfixer/internal/prompt"
)

// globalFlags are accepted by every command that touches a project.
type globalFlags struct {
	project string
	config  string
	debug   bool
	yes     bool
	dryRun  bool
}

func (g *globalFlags) register(fs *pflag.FlagSet, writes bool) {
	fs.StringVarP(&g.project, "project", "C", ".", "Unity project root")
	fs.StringVar(&g.config, "config", "", "config file (default <project>/"+config.FileName+")")
	fs.BoolVar(&g.debug, "debug", false, "enable debug logging")
	if writes {
		fs.BoolVarP(&g.yes, "yes", "y", false, "do not ask for confirmation")
		fs.BoolVarP(&g.dryRun, "dry-run", "n", false, "report what would change without writing")
	}
}

// inputFlags select which assets a command scans.
type inputFlags struct {
	materials []string
	textures  []string
}

func (in *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&in.materials, "materials", nil, "material files or directories (default from config)")
	fs.StringSliceVar(&in.textures, "textures", nil, "texture files or directories (default from config)")
}

type app struct {
	root    string
	cfg     *config.Config
	log     logging.Logger
	out     io.Writer
	confirm *prompt.Confirmer
	dryRun  bool
}

func newFlagSet(name string, stdout io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprintf(stdout, "Usage: matfixer %s [flags]\n\n", name)
		fs.PrintDefaults()
	}
	return fs
}

func newApp(g *globalFlags, stdout io.Writer) (*app, error) {
	root, err := filepath.Abs(g.project)
	if err != nil {
		return nil, fmt.Errorf("resolve project: %w", err)
	}
	cfg, err := config.LoadProject(root, g.config)
	if err != nil {
		return nil, err
	}
	log := logging.New("matfixer", g.debug || cfg.Debug)
	log.Debugf("Project %s", root)
	return &app{
		root:    root,
		cfg:     cfg,
		log:     log,
		out:     stdout,
		confirm: prompt.New(g.yes),
		dryRun:  g.dryRun,
	}, nil
}

// ask returns true when the action should proceed. Dry runs never ask.
func (a *app) ask(question string) (bool, error) {
	if a.dryRun {
		return true, nil
	}
	ok, err := a.confirm.Confirm(question)
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
	}
	return ok, nil
}

func (a *app) shaderTable() (*assets.ShaderTable, error) {
	shaders := assets.BuiltinShaders()
	for name, raw := range a.cfg.CustomShaders {
		ref, err := assets.ParseObjectRef(raw)
		if err != nil {
			return nil, fmt.Errorf("custom_shaders %s: %w", name, err)
		}
		shaders.Add(name, ref, nil)
	}
	return shaders, nil
}

// openProject loads the shaders, materials and textures a command needs.
func (a *app) openProject(in inputFlags, wantMaterials, wantTextures bool) (*assets.Project, error) {
	shaders, err := a.shaderTable()
	if err != nil {
		return nil, err
	}
	p, err := assets.OpenProject(a.root, shaders, a.log)
	if err != nil {
		return nil, err
	}
	if len(a.cfg.ShaderDirs) > 0 {
		if err := p.LoadShaders(a.cfg.ShaderDirs); err != nil {
			return nil, fmt.Errorf("load shaders: %w", err)
		}
	}
	if wantMaterials {
		inputs := in.materials
		if len(inputs) == 0 {
			inputs = a.cfg.Materials
		}
		mats, err := p.LoadMaterials(inputs)
		if err != nil {
			return nil, fmt.Errorf("load materials: %w", err)
		}
		a.log.Infof("Loaded %d materials", len(mats))
	}
	if wantTextures {
		inputs := in.textures
		if len(inputs) == 0 {
			inputs = a.cfg.Textures
		}
		texs, err := p.LoadTextures(inputs)
		if err != nil {
			return nil, fmt.Errorf("load textures: %w", err)
		}
		a.log.Infof("Loaded %d textures", len(texs))
	}
	return p, nil
}

func (a *app) driver(p *assets.Project, opts matfix.Options) *matfix.Driver {
	d := matfix.NewDriver(p, opts, a.log)
	d.Matcher = a.cfg.Matcher()
	d.Selector = a.cfg.Selector()
	return d
}

func (a *app) backupPath(runID string, at time.Time) string {
	dir := config.Resolve(a.root, a.cfg.Backups)
	return filepath.Join(dir, fmt.Sprintf("%s-%s.zip", at.Format("20060102-150405"), shortID(runID)))
}

// finish writes staged edits, archives the originals and records the run.
func (a *app) finish(p *assets.Project, rep *matfix.Report) error {
	runID := history.NewRunID()
	opts := assets.SaveOptions{DryRun: a.dryRun, RunID: runID}
	if !a.dryRun {
		opts.BackupPath = a.backupPath(runID, rep.StartedAt)
	}
	res, err := p.Save(opts)
	if err != nil {
		return err
	}

	switch {
	case a.dryRun:
		fmt.Fprintf(a.out, "Dry run: %d files would be written.\n", len(res.Written))
		return nil
	case len(res.Written) == 0:
		fmt.Fprintln(a.out, "No files changed.")
	default:
		fmt.Fprintf(a.out, "Wrote %d files.\n", len(res.Written))
		fmt.Fprintf(a.out, "Backup: %s (%s)\n", a.relative(res.BackupPath), humanize.Bytes(uint64(res.BackupSize)))
	}

	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Record(runID, rep, res.BackupPath); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	a.log.Debugf("Recorded run %s", runID)
	return nil
}

func (a *app) openHistory() (*history.Store, error) {
	return history.Open(config.Resolve(a.root, a.cfg.History))
}

func (a *app) relative(path string) string {
	if rel, err := filepath.Rel(a.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func (a *app) printFailures(failed []matfix.Failure) {
	for _, f := range failed {
		line := "  " + f.Material
		if f.Path != "" {
			line += "  " + a.relative(f.Path)
		}
		if f.Suggestion != "" {
			line += fmt.Sprintf("  (closest texture: %s)", f.Suggestion)
		}
		fmt.Fprintln(a.out, line)
	}
}
