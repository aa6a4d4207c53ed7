package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/citetrace/citetrace/internal/report"
	"github.com/citetrace/citetrace/internal/runner"
	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/spf13/cobra"
)

const roastSource = `package kitchen

// Roast cooks a bird, see 10.1234/zenodo.1234567.
//
//citetrace:ref purpose="Roasted chicken recipe" text="Great British Roasts, 2019"
func Roast() {}
`

const roastMarkdown = "Referenced in: Roast  \n" +
	"Source: [roast.go](roast.go:6)  \n" +
	"Line: 6\n\n" +
	"\t[1] Roasted chicken recipe - Great British Roasts, 2019  \n"

func TestStaticWritesMarkdownReport(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "roast.go"), roastSource)

	withWorkingDir(t, root, func() {
		stdout, _, err := executeRoot(t, "static", "--format", "markdown")
		if err != nil {
			t.Fatalf("static failed: %v", err)
		}
		got := mustReadFile(t, filepath.Join(root, "references.md"))
		if got != roastMarkdown {
			t.Fatalf("unexpected markdown report:\n%q\nwant:\n%q", got, roastMarkdown)
		}
		if !strings.Contains(stdout, "static: scanned=1 annotated=1 issues=0 entries=1 references=1") {
			t.Fatalf("expected static summary, got %q", stdout)
		}
		if !strings.Contains(stdout, "(markdown, written)") {
			t.Fatalf("expected written output line, got %q", stdout)
		}

		stdout, _, err = executeRoot(t, "static", "--format", "markdown")
		if err != nil {
			t.Fatalf("second static failed: %v", err)
		}
		if !strings.Contains(stdout, "(markdown, unchanged)") {
			t.Fatalf("expected unchanged report on rerun, got %q", stdout)
		}
	})
}

func TestStaticDocstringAddsMentionedReferences(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "roast.go"), roastSource)

	withWorkingDir(t, root, func() {
		if _, _, err := executeRoot(t, "static", "--format", "markdown", "--docstring"); err != nil {
			t.Fatalf("static --docstring failed: %v", err)
		}
		got := mustReadFile(t, filepath.Join(root, "references.md"))
		if !strings.Contains(got, "\t[2] automatically parsed from docstring - https://doi.org/10.1234/zenodo.1234567  \n") {
			t.Fatalf("expected docstring reference appended to Roast, got:\n%s", got)
		}
	})
}

func TestStaticPrintsTerminalReportToStdout(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "roast.go"), roastSource)

	withWorkingDir(t, root, func() {
		stdout, stderr, err := executeRoot(t, "static")
		if err != nil {
			t.Fatalf("static failed: %v", err)
		}
		want := "Referenced in: Roast\nSource file: roast.go\nLine: 6\n\t[1] Roasted chicken recipe - Great British Roasts, 2019\n\n"
		if stdout != want {
			t.Fatalf("unexpected terminal report:\n%q\nwant:\n%q", stdout, want)
		}
		if !strings.Contains(stderr, "static: scanned=1") {
			t.Fatalf("expected summary on stderr, got %q", stderr)
		}
		if fileExists(filepath.Join(root, "references")) {
			t.Fatalf("terminal format must not write a file")
		}
	})
}

func TestStaticCheckDetectsStaleReport(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "roast.go"), roastSource)

	withWorkingDir(t, root, func() {
		if _, _, err := executeRoot(t, "static", "-f", "markdown"); err != nil {
			t.Fatalf("static failed: %v", err)
		}
		if _, _, err := executeRoot(t, "static", "-f", "markdown", "--check"); err != nil {
			t.Fatalf("expected fresh report to pass the check, got %v", err)
		}

		mustWriteFile(t, filepath.Join(root, "roast.go"), strings.Replace(roastSource, "Great British Roasts, 2019", "Great British Roasts, 2020", 1))
		_, stderr, err := executeRoot(t, "static", "-f", "markdown", "--check")
		if !errors.Is(err, report.ErrStale) {
			t.Fatalf("expected ErrStale, got %v", err)
		}
		if !strings.Contains(stderr, "-\t[1] Roasted chicken recipe - Great British Roasts, 2019  ") ||
			!strings.Contains(stderr, "+\t[1] Roasted chicken recipe - Great British Roasts, 2020  ") {
			t.Fatalf("expected line diff on stderr, got %q", stderr)
		}
		if got := mustReadFile(t, filepath.Join(root, "references.md")); got != roastMarkdown {
			t.Fatalf("--check must not rewrite the report, got:\n%s", got)
		}
	})
}

func TestStaticUsageErrors(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "roast.go"), roastSource)
	if err := os.Mkdir(filepath.Join(root, "outdir"), 0755); err != nil {
		t.Fatalf("failed to create output dir: %v", err)
	}

	withWorkingDir(t, root, func() {
		cases := [][]string{
			{"static", "--format", "html"},
			{"static", "-f", "markdown", "-o", "outdir"},
			{"static", "-o", "outdir"},
			{"run", "-f", "jsonl", "-o", "outdir", "roast.go"},
			{"static", "--notebook", "roast.go"},
			{"static", "--check"},
			{"static", "--encoding", "klingon"},
			{"static", "-f", "markdown", "--check", "--watch"},
		}
		for _, args := range cases {
			_, _, err := executeRoot(t, args...)
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("%v: expected ErrUsage, got %v", args, err)
			}
		}

		if fileExists(filepath.Join(root, "outdir.md")) {
			t.Fatalf("expected no report next to a directory output")
		}

		_, _, err := executeRoot(t, "static", "missing")
		if !errors.Is(err, scan.ErrTargetNotFound) {
			t.Fatalf("expected ErrTargetNotFound, got %v", err)
		}
	})
}

func TestStaticNotebookScansMarkdownCells(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "roast.ipynb"), `{
  "cells": [
    {"cell_type": "markdown", "source": ["Timings from 10.5281/zenodo.1185316\n"]},
    {"cell_type": "code", "source": ["roast()"], "outputs": []}
  ],
  "metadata": {},
  "nbformat": 4,
  "nbformat_minor": 5
}`)

	withWorkingDir(t, root, func() {
		stdout, _, err := executeRoot(t, "static", "--notebook", "--format", "jsonl", "roast.ipynb")
		if err != nil {
			t.Fatalf("static --notebook failed: %v", err)
		}
		got := mustReadFile(t, filepath.Join(root, "references.jsonl"))
		for _, expected := range []string{`"name":"cell[0]"`, `"kind":"doi"`, "10.5281/zenodo.1185316"} {
			if !strings.Contains(got, expected) {
				t.Fatalf("expected %s in jsonl report, got:\n%s", expected, got)
			}
		}
		if !strings.Contains(stdout, "entries=1 references=1") {
			t.Fatalf("unexpected summary %q", stdout)
		}
	})
}

func TestStaticHonorsConfigFile(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "roast.go"), roastSource)
	mustWriteFile(t, filepath.Join(root, "vendor", "skip.go"), roastSource)
	mustWriteFile(t, filepath.Join(root, "generated", "skip.go"), roastSource)
	mustWriteFile(t, filepath.Join(root, ".citetrace.yaml"), `format: yaml
output: out/refs
ignore:
  - generated/
`)

	withWorkingDir(t, root, func() {
		stdout, _, err := executeRoot(t, "static", "--json")
		if err != nil {
			t.Fatalf("static failed: %v", err)
		}
		if !strings.Contains(stdout, `"format": "yaml"`) || !strings.Contains(stdout, `"scanned": 1`) {
			t.Fatalf("expected yaml run over one file, got %s", stdout)
		}
		got := mustReadFile(t, filepath.Join(root, "out", "refs.yaml"))
		if !strings.Contains(got, "name: Roast") {
			t.Fatalf("unexpected yaml report:\n%s", got)
		}
	})
}

func TestRunReportsHitsFromTarget(t *testing.T) {
	root := newProject(t)
	target := filepath.Join(root, "roast.sh")
	mustWriteFile(t, target, "#!/bin/sh\n")
	if err := os.Chmod(target, 0755); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}

	var line bytes.Buffer
	hit := refs.Hit{
		Location:  refs.Location{Source: "kitchen/roast.go", Name: "kitchen.Roast", Line: 12, Package: "kitchen"},
		Purpose:   "Chicken roasting technique",
		Reference: refs.Plain("Great British Roasts, 2019"),
	}
	if err := refs.NewHitWriter(&line).Write(hit); err != nil {
		t.Fatalf("failed to encode hit: %v", err)
	}

	var started []string
	original := newRunner
	newRunner = func(s *settings, cmd *cobra.Command) *runner.Runner {
		r := original(s, cmd)
		r.TempDir = t.TempDir()
		r.CommandFactory = func(ctx context.Context, name string, args ...string) *exec.Cmd {
			started = append([]string{name}, args...)
			c := exec.CommandContext(ctx, "sh", "-c", `printf '%s' "$HIT_LINE" > "$`+refs.EnvHits+`"; exit 4`)
			c.Env = append(os.Environ(), "HIT_LINE="+line.String())
			return c
		}
		return r
	}
	t.Cleanup(func() { newRunner = original })

	withWorkingDir(t, root, func() {
		stdout, stderr, err := executeRoot(t, "run", "--format", "markdown", "roast.sh", "--oven", "hot")
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if strings.Join(started, " ") != "./roast.sh --oven hot" {
			t.Fatalf("unexpected command %v", started)
		}
		got := mustReadFile(t, filepath.Join(root, "references.md"))
		if !strings.Contains(got, "Referenced in: kitchen.Roast  \n") ||
			!strings.Contains(got, "\t[1] Chicken roasting technique - Great British Roasts, 2019  \n") {
			t.Fatalf("unexpected run report:\n%s", got)
		}
		if !strings.Contains(stdout, "run: hits=1 exit_code=4 entries=1 references=1") {
			t.Fatalf("unexpected run summary %q", stdout)
		}
		if !strings.Contains(stderr, "non-zero status") {
			t.Fatalf("expected exit status warning, got %q", stderr)
		}
	})
}

func TestInitWritesStarterFilesOnce(t *testing.T) {
	root := newProject(t)

	withWorkingDir(t, root, func() {
		stdout, _, err := executeRoot(t, "init")
		if err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if !strings.Contains(stdout, ".citetrace.yaml, .citetraceignore") {
			t.Fatalf("unexpected init output %q", stdout)
		}
		if !strings.Contains(mustReadFile(t, filepath.Join(root, ".citetrace.yaml")), "format:") {
			t.Fatalf("expected starter config")
		}

		mustWriteFile(t, filepath.Join(root, ".citetraceignore"), "custom/\n")
		stdout, _, err = executeRoot(t, "init")
		if err != nil {
			t.Fatalf("second init failed: %v", err)
		}
		if !strings.HasPrefix(stdout, "Already initialized") {
			t.Fatalf("expected already initialized, got %q", stdout)
		}
		if got := mustReadFile(t, filepath.Join(root, ".citetraceignore")); got != "custom/\n" {
			t.Fatalf("init overwrote the ignore file: %q", got)
		}

		// The starter config must load cleanly.
		if _, _, err := executeRoot(t, "static"); err != nil {
			t.Fatalf("static under starter config failed: %v", err)
		}
	})
}

func TestDoctorReportsMissingPieces(t *testing.T) {
	root := newProject(t)
	original := lookPath
	lookPath = func(file string) (string, error) {
		if file == "git" {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + file, nil
	}
	t.Cleanup(func() { lookPath = original })

	withWorkingDir(t, root, func() {
		stdout, _, err := executeRoot(t, "doctor")
		if err != nil {
			t.Fatalf("doctor failed: %v", err)
		}
		for _, expected := range []string{
			"doctor: issues\n",
			"config: none ignore_file=false\n",
			".go .ipynb .js .mjs .py",
			"tools: go=true git=false\n",
			"missing (1): .citetrace.yaml\n",
			"next: install git to use citetrace install-hook\n",
			"next: run citetrace init\n",
		} {
			if !strings.Contains(stdout, expected) {
				t.Fatalf("expected doctor output to contain %q, got:\n%s", expected, stdout)
			}
		}

		mustWriteFile(t, filepath.Join(root, ".citetrace.yaml"), "sources:\n  - package: kitchen\n    path: kitchen.bib\n")
		stdout, _, err = executeRoot(t, "doctor", "--json")
		if err != nil {
			t.Fatalf("doctor --json failed: %v", err)
		}
		for _, expected := range []string{`"healthy": false`, `"kitchen": false`, "bibliography"} {
			if !strings.Contains(stdout, expected) {
				t.Fatalf("expected %s in doctor json, got:\n%s", expected, stdout)
			}
		}
	})
}

func TestViewRendersMarkdown(t *testing.T) {
	root := newProject(t)
	mustWriteFile(t, filepath.Join(root, "references.md"), "# Kitchen\n\n"+roastMarkdown)

	withWorkingDir(t, root, func() {
		stdout, _, err := executeRoot(t, "view", "--width", "60")
		if err != nil {
			t.Fatalf("view failed: %v", err)
		}
		if !strings.Contains(stdout, "Kitchen") || !strings.Contains(stdout, "Roasted chicken recipe") {
			t.Fatalf("unexpected rendered markdown:\n%s", stdout)
		}

		if _, _, err := executeRoot(t, "view", "missing.md"); err == nil {
			t.Fatalf("expected error for missing file")
		}
	})
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeRoot(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if stdout != "citetrace test\n" {
		t.Fatalf("unexpected version output %q", stdout)
	}
}

func TestPrintRunSummary(t *testing.T) {
	var out bytes.Buffer
	err := PrintRunSummary(&out, RunSummary{
		Mode: "run", Format: "bibtex", Target: "roast.go", Output: "references.bib",
		Hits: 3, Entries: 2, References: 4, Rewritten: true, DurationMS: 7,
	}, false)
	if err != nil {
		t.Fatalf("PrintRunSummary failed: %v", err)
	}
	want := "run: hits=3 exit_code=0 entries=2 references=4 duration=7ms\noutput: references.bib (bibtex, written)\n"
	if out.String() != want {
		t.Fatalf("unexpected summary %q", out.String())
	}
}

func TestSummarizePaths(t *testing.T) {
	if got := SummarizePaths([]string{"a", "b", "c"}, 2); got != "a, b ... (+1 more)" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := SummarizePaths([]string{"a"}, 2); got != "a" {
		t.Fatalf("unexpected summary %q", got)
	}
}

// newProject returns an empty project directory with a home directory that
// holds no user config.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CITETRACE_TERMINAL_COLOR", "never")
	return t.TempDir()
}

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func withWorkingDir(t *testing.T, dir string, fn func()) {
	t.Helper()

	originalWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get cwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	fn()
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
