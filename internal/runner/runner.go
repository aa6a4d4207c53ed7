// Package runner executes a target program with reference tracking enabled
// and collects the hits it records.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/internal/tracing"
	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var ErrTargetPanicked = errors.New("target panicked")

// stderrTail bounds how much target stderr is kept for panic detection.
const stderrTail = 64 * 1024

// CommandFactoryFunc creates the exec.Cmd for a target. Tests substitute it
// to avoid spawning real programs.
type CommandFactoryFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Target is the program to run and its own argument vector.
type Target struct {
	Path string
	Args []string
}

// Result summarizes a tracked run.
type Result struct {
	Session  string
	ExitCode int
	Hits     int
}

// Runner runs targets. The zero value runs `go` from PATH, writes session
// files to the system temp dir and discards the target's output.
type Runner struct {
	GoBinary       string
	TempDir        string
	Stdout         io.Writer
	Stderr         io.Writer
	Logger         *slog.Logger
	CommandFactory CommandFactoryFunc
}

// Run executes target and replays its hits into reg. A non-zero exit status
// is logged and absorbed; a panic in the target or a failure to start it is
// returned. Hits recorded before the target stopped are kept either way.
func (r *Runner) Run(ctx context.Context, target Target, reg *refs.Registry) (Result, error) {
	ctx, span := tracing.Start(ctx, tracing.SpanRun, attribute.String(tracing.AttrTarget, target.Path))
	result, err := r.run(ctx, target, reg)
	span.SetAttributes(attribute.Int(tracing.AttrExitCode, result.ExitCode), attribute.Int(tracing.AttrReferences, result.Hits))
	tracing.End(span, err)
	return result, err
}

func (r *Runner) run(ctx context.Context, target Target, reg *refs.Registry) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name, args, dir, err := r.command(target)
	if err != nil {
		return Result{}, err
	}

	result := Result{Session: uuid.New().String()}
	tempDir := r.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	hitsPath := filepath.Join(tempDir, "citetrace-"+result.Session+".jsonl")
	defer os.Remove(hitsPath)

	factory := r.CommandFactory
	if factory == nil {
		factory = exec.CommandContext
	}
	// #nosec G204 -- the target is what the user asked to run
	cmd := factory(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(cmd.Environ(),
		refs.EnvTracking+"=1",
		refs.EnvHits+"="+hitsPath,
	)
	cmd.Stdin = os.Stdin
	cmd.Stdout = writerOrDiscard(r.Stdout)
	tail := &tailBuffer{limit: stderrTail}
	cmd.Stderr = io.MultiWriter(writerOrDiscard(r.Stderr), tail)

	logger.Debug("running target", "command", name, "args", args, "session", result.Session)
	runErr := cmd.Run()

	hits, readErr := ingest(hitsPath, reg)
	result.Hits = hits
	if readErr != nil {
		return result, readErr
	}

	if runErr == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return result, fmt.Errorf("failed to run %s: %w", target.Path, runErr)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	result.ExitCode = exitErr.ExitCode()
	if strings.Contains(tail.String(), "panic:") {
		return result, fmt.Errorf("%w: %s exited with status %d", ErrTargetPanicked, target.Path, result.ExitCode)
	}
	logger.Warn("target exited with non-zero status; reporting collected references", "target", target.Path, "status", result.ExitCode)
	return result, nil
}

// command maps a target to the program to start. Go files and directories
// go through `go run`; anything else is executed as is.
func (r *Runner) command(target Target) (name string, args []string, dir string, err error) {
	info, err := os.Stat(target.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, "", fmt.Errorf("%w: %s", scan.ErrTargetNotFound, target.Path)
		}
		return "", nil, "", fmt.Errorf("failed to inspect target %s: %w", target.Path, err)
	}

	goBinary := r.GoBinary
	if goBinary == "" {
		goBinary = "go"
	}

	switch {
	case info.IsDir():
		return goBinary, append([]string{"run", "."}, target.Args...), target.Path, nil
	case strings.HasSuffix(target.Path, ".go"):
		abs, err := filepath.Abs(target.Path)
		if err != nil {
			return "", nil, "", err
		}
		return goBinary, append([]string{"run", filepath.Base(abs)}, target.Args...), filepath.Dir(abs), nil
	default:
		path := target.Path
		if !filepath.IsAbs(path) && !strings.ContainsRune(path, filepath.Separator) {
			path = "." + string(filepath.Separator) + path
		}
		return path, target.Args, "", nil
	}
}

func ingest(path string, reg *refs.Registry) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open hits file: %w", err)
	}
	defer f.Close()
	return refs.ReadHits(f, reg)
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > t.limit {
		p = p[len(p)-t.limit:]
	}
	if over := t.buf.Len() + len(p) - t.limit; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
