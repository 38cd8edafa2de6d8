package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/ernie/matfixer/internal/assets"
	"github.com/ernie/matfixer/internal/config"
	"github.com/ernie/matfixer/internal/history"
	"github.com/ernie/matfixer/internal/matfix"
)

func runAssign(args []string, stdout io.Writer) error {
	var g globalFlags
	var in inputFlags
	var overrides string
	var specular, zeroSpecular, normalMaps, transparency bool

	fs := newFlagSet("assign", stdout)
	g.register(fs, true)
	in.register(fs)
	fs.BoolVar(&specular, "specular", false, "use the Standard (Specular setup) shader")
	fs.BoolVar(&zeroSpecular, "zero-specular", false, "with --specular, write black specular and zero glossiness")
	fs.BoolVar(&normalMaps, "normal-maps", false, "assign *_normal textures to the normal map slot")
	fs.BoolVar(&transparency, "transparency", false, "set fade/cutout render state from material names")
	fs.StringVar(&overrides, "overrides", "", "material,texture file consulted for unmatched materials")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	opts := a.cfg.MatchOptions()
	if fs.Changed("specular") {
		opts.SpecularWorkflow = specular
	}
	if fs.Changed("zero-specular") {
		opts.ZeroSpecular = zeroSpecular
	}
	if fs.Changed("normal-maps") {
		opts.AssignNormalMaps = normalMaps
	}
	if fs.Changed("transparency") {
		opts.Transparency = transparency
	}
	if overrides == "" {
		overrides = a.cfg.Overrides
	}

	if ok, err := a.ask("Do you really want to assign textures?"); !ok || err != nil {
		return err
	}

	p, err := a.openProject(in, true, true)
	if err != nil {
		return err
	}
	d := a.driver(p, opts)
	if overrides != "" {
		manual, err := assets.LoadOverrides(config.Resolve(a.root, overrides))
		if err != nil {
			return err
		}
		d.Overrides = p.ResolveOverrides(manual)
		a.log.Debugf("Loaded %d overrides", len(manual))
	}

	rep := d.Assign(assets.HostMaterials(p.Materials()), assets.HostTextures(p.Textures()))
	fmt.Fprintf(a.out, "Shader: %s\n", rep.Shader)
	fmt.Fprintln(a.out, rep.Summary())
	for _, e := range rep.Errors {
		fmt.Fprintf(a.out, "  %v\n", e)
	}
	if len(rep.Failed) > 0 {
		fmt.Fprintln(a.out, "Failed materials:")
		a.printFailures(rep.Failed)
	}
	return a.finish(p, rep)
}

func runFixNormals(args []string, stdout io.Writer) error {
	var g globalFlags
	var in inputFlags
	fs := newFlagSet("fix-normals", stdout)
	g.register(fs, true)
	fs.StringSliceVar(&in.textures, "textures", nil, "texture files or directories (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	if ok, err := a.ask("Do you really want to fix all normal maps? The editor will reimport them on its next refresh."); !ok || err != nil {
		return err
	}

	p, err := a.openProject(in, false, true)
	if err != nil {
		return err
	}
	rep := a.driver(p, a.cfg.MatchOptions()).FixNormalMaps(assets.HostTextures(p.Textures()))
	fmt.Fprintln(a.out, rep.Summary())
	for _, e := range rep.Errors {
		fmt.Fprintf(a.out, "  %v\n", e)
	}
	return a.finish(p, rep)
}

func runUnassign(args []string, stdout io.Writer) error {
	var g globalFlags
	var in inputFlags
	fs := newFlagSet("unassign", stdout)
	g.register(fs, true)
	fs.StringSliceVar(&in.materials, "materials", nil, "material files or directories (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	if ok, err := a.ask("Do you really want to unassign all textures?"); !ok || err != nil {
		return err
	}

	p, err := a.openProject(in, true, false)
	if err != nil {
		return err
	}
	rep := a.driver(p, a.cfg.MatchOptions()).Unassign(assets.HostMaterials(p.Materials()))
	fmt.Fprintln(a.out, rep.Summary())
	return a.finish(p, rep)
}

func runFailed(args []string, stdout io.Writer) error {
	var g globalFlags
	var export string
	fs := newFlagSet("failed", stdout)
	g.register(fs, false)
	fs.StringVar(&export, "export", "", "write an overrides template to this file (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	failed, err := store.Failed()
	if err != nil {
		return err
	}

	if export != "" {
		return a.exportOverrides(export, failed)
	}
	if len(failed) == 0 {
		fmt.Fprintln(a.out, "No failed materials.")
		return nil
	}
	fmt.Fprintf(a.out, "%d failed materials:\n", len(failed))
	a.printFailures(failed)
	return nil
}

func (a *app) exportOverrides(path string, failed []matfix.Failure) error {
	if path == "-" {
		return assets.WriteOverrides(a.out, failed)
	}
	path = config.Resolve(a.root, path)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overrides: %w", err)
	}
	if err := assets.WriteOverrides(f, failed); err != nil {
		f.Close()
		return fmt.Errorf("write overrides: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write overrides: %w", err)
	}
	fmt.Fprintf(a.out, "Wrote %d entries to %s\n", len(failed), a.relative(path))
	return nil
}

func runClearFailed(args []string, stdout io.Writer) error {
	var g globalFlags
	fs := newFlagSet("clear-failed", stdout)
	g.register(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if a.dryRun {
		failed, err := store.Failed()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Dry run: %d entries would be cleared.\n", len(failed))
		return nil
	}
	if ok, err := a.ask("Really clear the failed materials list?"); !ok || err != nil {
		return err
	}
	n, err := store.ClearFailed()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cleared %d entries.\n", n)
	return nil
}

func runHistory(args []string, stdout io.Writer) error {
	var g globalFlags
	var limit int
	fs := newFlagSet("history", stdout)
	g.register(fs, false)
	fs.IntVar(&limit, "limit", 20, "number of runs to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	runs, err := store.Runs(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tWHEN\tACTION\tPROCESSED\tRESULT\tBACKUP")
	for _, r := range runs {
		var result string
		switch r.Action {
		case matfix.ActionAssign:
			result = fmt.Sprintf("%d assigned, %d normal maps, %d failed", r.Assigned, r.NormalMaps, r.Failed)
		case matfix.ActionFixNormals:
			result = fmt.Sprintf("%d reimported, %d errors", r.Reimported, r.Errors)
		case matfix.ActionUnassign:
			result = fmt.Sprintf("%d cleared", r.Cleared)
		}
		backup := "-"
		if r.Backup != "" {
			backup = a.relative(r.Backup)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(r.ID), humanize.Time(r.StartedAt), r.Action, r.Processed, result, backup)
	}
	return tw.Flush()
}

func runList(args []string, stdout io.Writer) error {
	var g globalFlags
	var in inputFlags
	var probe bool
	fs := newFlagSet("list", stdout)
	g.register(fs, false)
	in.register(fs)
	fs.BoolVar(&probe, "probe", false, "decode texture headers for size and alpha")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	p, err := a.openProject(in, true, true)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATERIAL\tSHADER\tMAIN TEXTURE\tNORMAL MAP\tQUEUE")
	for _, m := range p.Materials() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", m.Name(), m.ShaderName(),
			textureLabel(p, m.TextureGUID(matfix.PropMainTex)),
			textureLabel(p, m.TextureGUID(matfix.PropBumpMap)),
			m.RenderQueue())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.out)

	tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	header := "TEXTURE\tSIZE\tPATH"
	if probe {
		header += "\tFORMAT\tDIMENSIONS\tALPHA"
	}
	fmt.Fprintln(tw, header)
	for _, t := range p.Textures() {
		line := fmt.Sprintf("%s\t%s\t%s", t.Name(), humanize.Bytes(uint64(t.Size)), p.Rel(t.Path()))
		if probe {
			line += "\t" + probeLabel(t)
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func textureLabel(p *assets.Project, guid string) string {
	if guid == "" {
		return "-"
	}
	if t, ok := p.TextureByGUID(guid); ok {
		return t.Name()
	}
	return guid
}

func probeLabel(t *assets.Texture) string {
	info, err := t.Probe()
	if err != nil {
		if errors.Is(err, assets.ErrUnsupportedFormat) {
			return strings.TrimPrefix(filepath.Ext(t.Path()), ".") + "\t-\t-"
		}
		return "error\t-\t-"
	}
	alpha := "no"
	if info.HasAlpha {
		alpha = "yes"
	}
	return fmt.Sprintf("%s\t%dx%d\t%s", info.Format, info.Width, info.Height, alpha)
}

func runRestore(args []string, stdout io.Writer) error {
	var g globalFlags
	fs := newFlagSet("restore", stdout)
	g.register(fs, true)
	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: matfixer restore [flags] <run-id | backup.zip>")
		fmt.Fprintln(stdout)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("restore needs exactly one run id or backup file")
	}

	a, err := newApp(&g, stdout)
	if err != nil {
		return err
	}
	path, err := a.findBackup(fs.Arg(0))
	if err != nil {
		return err
	}
	manifest, files, err := assets.ReadBackup(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Backup %s from %s holds %d files.\n", a.relative(path), humanize.Time(manifest.Created), len(files))

	if a.dryRun {
		names := make([]string, 0, len(manifest.Files))
		for name := range manifest.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(a.out, "  would restore %s\n", name)
		}
		return nil
	}
	if ok, err := a.ask(fmt.Sprintf("Overwrite %d files with their backed up versions?", len(files))); !ok || err != nil {
		return err
	}
	restored, err := assets.RestoreBackup(path, a.root)
	if err != nil {
		return err
	}
	for _, name := range restored {
		a.log.Infof("Restored %s", name)
	}
	fmt.Fprintf(a.out, "Restored %d files.\n", len(restored))
	return nil
}

// findBackup accepts a backup path or a run id (or unique id prefix).
func (a *app) findBackup(arg string) (string, error) {
	if strings.EqualFold(filepath.Ext(arg), ".zip") {
		return config.Resolve(a.root, arg), nil
	}
	store, err := a.openHistory()
	if err != nil {
		return "", err
	}
	defer store.Close()

	runs, err := store.Runs(0)
	if err != nil {
		return "", err
	}
	var match []history.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, arg) {
			match = append(match, r)
		}
	}
	switch {
	case len(match) == 0:
		return "", fmt.Errorf("no run matches %q", arg)
	case len(match) > 1:
		return "", fmt.Errorf("run id %q is ambiguous (%d matches)", arg, len(match))
	case match[0].Backup == "":
		return "", fmt.Errorf("run %s has no backup", match[0].ID)
	}
	return match[0].Backup, nil
}
