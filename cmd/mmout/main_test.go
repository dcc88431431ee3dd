package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const stringTheory = `sorts = ["string", "hex", "char"]

[[term]]
name = "s0"
ret = "string"

[[term]]
name = "s1"
args = ["char"]
ret = "string"

[[term]]
name = "sadd"
args = ["string", "string"]
ret = "string"

[[term]]
name = "ch"
args = ["hex", "hex"]
ret = "char"
`

func hexTerms() string {
	var b strings.Builder
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&b, "\n[[term]]\nname = \"x%x\"\nret = \"hex\"\n", i)
	}
	return b.String()
}

// project writes a two-project layout: a string library and an app
// depending on it.
func project(t *testing.T, outputs string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"lib/theory.toml": stringTheory + hexTerms(),
		"app/mmout.toml": `[project]
name = "hello"
theories = ["hello.toml"]

[dependencies]
strings = { path = "../lib" }

[store]
path = "trace.db"
`,
		"app/hello.toml": outputs,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(root, "app")
}

func mmout(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunCommand(t *testing.T) {
	dir := project(t, "[[output]]\nexprs = ['\"hello\\n\"']\n")

	code, out, errOut := mmout(t, "run", dir)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "hello\n" {
		t.Errorf("stdout = %q, want %q", out, "hello\n")
	}
}

func TestRunToFile(t *testing.T) {
	dir := project(t, "[[output]]\nexprs = ['(s1 (ch x4 x1))']\n")
	path := filepath.Join(t.TempDir(), "out.bin")

	code, out, errOut := mmout(t, "run", "-o", path, dir)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "A" {
		t.Errorf("file = %q, want A", data)
	}
}

func TestBuildAndReplay(t *testing.T) {
	dir := project(t, "[[output]]\nexprs = ['\"one\"']\n\n[[output]]\nexprs = ['\"two\"']\n")

	code, out, errOut := mmout(t, "build", dir)
	if code != 0 {
		t.Fatalf("build exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "(2 statements)") {
		t.Errorf("build output = %q", out)
	}
	id := strings.Fields(out)[0]

	code, out, errOut = mmout(t, "replay", dir)
	if code != 0 {
		t.Fatalf("replay exit %d: %s", code, errOut)
	}
	if out != "onetwo" {
		t.Errorf("replay = %q, want onetwo", out)
	}

	code, out, _ = mmout(t, "replay", "-build", id, dir)
	if code != 0 || out != "onetwo" {
		t.Errorf("replay -build: exit %d, %q", code, out)
	}

	code, out, _ = mmout(t, "builds", dir)
	if code != 0 || !strings.Contains(out, id) || !strings.Contains(out, "hello") {
		t.Errorf("builds: exit %d, %q", code, out)
	}

	code, _, errOut = mmout(t, "replay", "-build", "nope", dir)
	if code != 1 || !strings.Contains(errOut, "build not found") {
		t.Errorf("replay unknown build: exit %d, %q", code, errOut)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := project(t, `[[def]]
name = "scons"
params = [{ name = "c", sort = "char" }, { name = "s", sort = "string" }]
ret = "string"
body = "(sadd (s1 c) s)"
`)

	code, out, errOut := mmout(t, "check", dir)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "scons classified") {
		t.Errorf("check output = %q", out)
	}
	if !strings.Contains(out, "2 files, 0 output statements") {
		t.Errorf("check output = %q", out)
	}
}

func TestCheckSeesLateScons(t *testing.T) {
	dir := project(t, `[[output]]
exprs = ['"ab"']

[[def]]
name = "scons"
params = [{ name = "c", sort = "char" }, { name = "s", sort = "string" }]
ret = "string"
body = "(sadd (s1 c) s)"
`)

	code, out, errOut := mmout(t, "check", dir)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "scons classified") {
		t.Errorf("check output = %q", out)
	}

	code, out, errOut = mmout(t, "run", dir)
	if code != 0 || out != "ab" {
		t.Errorf("run: exit %d, %q, %s", code, out, errOut)
	}
}

func TestErrors(t *testing.T) {
	dir := project(t, "[[output]]\nexprs = ['(ch x4 x1)']\n")

	code, _, errOut := mmout(t, "run", dir)
	if code != 1 || !strings.Contains(errOut, "hello.toml:1:1") {
		t.Errorf("run: exit %d, %q", code, errOut)
	}

	code, _, errOut = mmout(t, "run", t.TempDir())
	if code != 1 || !strings.Contains(errOut, "no mmout.toml found") {
		t.Errorf("no manifest: exit %d, %q", code, errOut)
	}

	if code, _, _ = mmout(t, "frobnicate"); code != 2 {
		t.Errorf("unknown command: exit %d, want 2", code)
	}
	if code, _, _ = mmout(t); code != 2 {
		t.Errorf("no command: exit %d, want 2", code)
	}
}
