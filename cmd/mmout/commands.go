package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/mmout/manifest"
	"github.com/chazu/mmout/output"
	"github.com/chazu/mmout/store"
	"github.com/chazu/mmout/syntax"
	"github.com/chazu/mmout/theory"
)

// loadTheory elaborates the project's theories, dependencies first.
func loadTheory(m *manifest.Manifest) (*theory.Theory, error) {
	files, err := manifest.NewResolver(m).TheoryFiles()
	if err != nil {
		return nil, err
	}
	return theory.Load(files...)
}

// withOutput calls fn with the selected output sink. The file is kept even
// when fn fails, holding whatever was written before the failure.
func withOutput(opts *options, m *manifest.Manifest, stdout io.Writer, fn func(io.Writer) error) error {
	path := opts.output
	if path == "" && m != nil {
		path = m.OutputPath()
	}
	if path == "" || path == "-" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create output: %w", err)
	}
	err = fn(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = &output.IOError{Err: cerr}
	}
	return err
}

func openStore(opts *options, m *manifest.Manifest) (*store.TraceStore, error) {
	path := opts.store
	if path == "" {
		if m == nil {
			return nil, fmt.Errorf("no %s found and no -store given", manifest.FileName)
		}
		path = m.StorePath()
	}
	return store.Open(path)
}

func projectName(m *manifest.Manifest) string {
	if m == nil {
		return ""
	}
	return m.Project.Name
}

func cmdRun(opts *options, m *manifest.Manifest, stdout io.Writer) error {
	th, err := loadTheory(m)
	if err != nil {
		return err
	}
	return withOutput(opts, m, stdout, th.Program().Run)
}

func cmdBuild(opts *options, m *manifest.Manifest, stdout io.Writer) error {
	th, err := loadTheory(m)
	if err != nil {
		return err
	}
	ts, err := openStore(opts, m)
	if err != nil {
		return err
	}
	defer ts.Close()

	prog := th.Program()
	id, err := ts.Save(projectName(m), prog)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s (%d statements)\n", id, len(prog.Statements))
	return nil
}

func cmdReplay(opts *options, m *manifest.Manifest, stdout io.Writer) error {
	ts, err := openStore(opts, m)
	if err != nil {
		return err
	}
	defer ts.Close()

	var prog *output.Program
	if opts.build != "" {
		prog, err = ts.Load(opts.build)
	} else {
		_, prog, err = ts.Latest(projectName(m))
	}
	if err != nil {
		return err
	}
	return withOutput(opts, m, stdout, prog.Run)
}

func cmdBuilds(opts *options, m *manifest.Manifest, stdout io.Writer) error {
	ts, err := openStore(opts, m)
	if err != nil {
		return err
	}
	defer ts.Close()

	builds, err := ts.List()
	if err != nil {
		return err
	}
	for _, b := range builds {
		fmt.Fprintf(stdout, "%s  %-16s %s  %d statements\n",
			b.ID, b.Name, b.Created.Format("2006-01-02 15:04:05"), b.Statements)
	}
	return nil
}

// cmdCheck reports the registry that run and replay use: the one
// resolved against the complete environment.
func cmdCheck(opts *options, m *manifest.Manifest, stdout io.Writer) error {
	th, err := loadTheory(m)
	if err != nil {
		return err
	}
	sp := syntax.Span{File: m.Dir}
	if len(th.Files) > 0 {
		sp.File = th.Files[len(th.Files)-1]
	}
	reg, err := output.Resolve(th.Env.Freeze())
	if err != nil {
		return fmt.Errorf("%s: %w", sp, err)
	}

	cons := "not classified"
	if _, ok := reg.Cons(); ok {
		cons = "classified"
	}
	fmt.Fprintf(stdout, "registry: %d built-ins, scons %s\n", reg.Len(), cons)
	fmt.Fprintf(stdout, "theories: %d files, %d output statements\n",
		len(th.Files), len(th.Session.Statements()))
	return nil
}
