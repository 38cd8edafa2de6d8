package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/pflag"
)

// version, commit, date are injected at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type command struct {
	name    string
	summary string
	run     func(args []string, stdout io.Writer) error
}

var commands = []command{
	{"assign", "assign shader, textures and render state to materials", runAssign},
	{"fix-normals", "mark every *_normal texture as a normal map", runFixNormals},
	{"unassign", "remove main and normal textures from materials", runUnassign},
	{"failed", "show materials the last assign could not match", runFailed},
	{"clear-failed", "empty the failed materials list", runClearFailed},
	{"history", "show recent runs", runHistory},
	{"list", "list materials and textures in the project", runList},
	{"restore", "restore files from a run's backup", runRestore},
	{"version", "print version information", runVersion},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "matfixer:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stdout)
		return nil
	}
	if args[0] == "--version" {
		return runVersion(nil, stdout)
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:], stdout)
		}
	}
	return fmt.Errorf("unknown command %q (run matfixer help)", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: matfixer <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]command, len(commands))
	copy(names, commands)
	sort.SliceStable(names, func(i, j int) bool { return names[i].name < names[j].name })
	for _, c := range names {
		fmt.Fprintf(w, "  %-13s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run matfixer <command> --help for command flags.")
}

func runVersion(_ []string, stdout io.Writer) error {
	fmt.Fprintf(stdout, "matfixer %s (%s) %s\n", version, commit, date)
	return nil
}
