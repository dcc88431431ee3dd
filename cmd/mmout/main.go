// mmout CLI - elaborates theory files and writes their string output
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/mmout/manifest"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the flags shared by every subcommand.
type options struct {
	output  string
	store   string
	build   string
	verbose bool
	dir     string
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: mmout <command> [options] [dir]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  run      Elaborate the project's theories and write their output\n")
	fmt.Fprintf(w, "  build    Elaborate and save a build to the trace store\n")
	fmt.Fprintf(w, "  replay   Write the output of a stored build (-build id, default latest)\n")
	fmt.Fprintf(w, "  builds   List stored builds\n")
	fmt.Fprintf(w, "  check    Resolve the string registry and report its state\n")
	fmt.Fprintf(w, "\nThe project is found by walking up from dir (default .) to mmout.toml.\n")
}

// run executes one CLI invocation and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd := args[0]

	fs := flag.NewFlagSet("mmout "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.output, "o", "", "Output file (default: [output] file, else stdout)")
	fs.StringVar(&opts.store, "store", "", "Trace database (default: [store] path)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	if cmd == "replay" {
		fs.StringVar(&opts.build, "build", "", "Build id to replay (default: latest)")
	}
	fs.Usage = func() {
		usage(stderr)
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	var handler func(*options, *manifest.Manifest, io.Writer) error
	switch cmd {
	case "run":
		handler = cmdRun
	case "build":
		handler = cmdBuild
	case "replay":
		handler = cmdReplay
	case "builds":
		handler = cmdBuilds
	case "check":
		handler = cmdCheck
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", cmd)
		usage(stderr)
		return 2
	}

	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	opts.dir = "."
	if fs.NArg() > 0 {
		opts.dir = fs.Arg(0)
	}

	m, err := manifest.FindAndLoad(opts.dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if m == nil && cmd != "replay" && cmd != "builds" {
		fmt.Fprintf(stderr, "Error: no %s found\n", manifest.FileName)
		return 1
	}
	configureLogging(m, opts.verbose)

	if err := handler(&opts, m, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func configureLogging(m *manifest.Manifest, verbose bool) {
	verbosity, _ := manifest.ParseLevel("warning")
	var path *string
	if m != nil {
		verbosity = m.Verbosity()
		if m.Log.File != "" {
			p := m.Log.File
			path = &p
		}
	}
	if verbose {
		verbosity, _ = manifest.ParseLevel("debug")
	}
	commonlog.Configure(verbosity, path)
}
