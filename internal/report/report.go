// Package report renders a refs.Registry in the supported output formats.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/citetrace/citetrace/internal/fileutil"
	"github.com/citetrace/citetrace/internal/resolve"
	"github.com/citetrace/citetrace/internal/tracing"
	"github.com/citetrace/citetrace/pkg/refs"
	"go.opentelemetry.io/otel/attribute"
)

var ErrUnknownFormat = errors.New("unknown output format")

// DefaultFormat is the writer used when none is named.
const DefaultFormat = "terminal"

// Options carry what writers need beyond the registry.
type Options struct {
	// Output is the destination file. Writers that print append nothing to
	// it and ignore it.
	Output string
	// Resolver renders references for the bibtex writer.
	Resolver *resolve.Resolver
	// Color enables terminal styling.
	Color bool
}

// Writer renders a registry in one format.
type Writer interface {
	Name() string
	// Extension is the file suffix of the output, or "" for writers that
	// print to stdout.
	Extension() string
	Render(ctx context.Context, reg *refs.Registry, opts Options) ([]byte, error)
}

var writers = map[string]Writer{}

// Register adds w under its name, replacing any writer of that name.
func Register(w Writer) {
	writers[w.Name()] = w
}

func init() {
	Register(terminalWriter{})
	Register(markdownWriter{})
	Register(jsonlWriter{})
	Register(yamlWriter{})
	Register(bibtexWriter{})
}

// Lookup returns the writer named name.
func Lookup(name string) (Writer, error) {
	w, ok := writers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, name, strings.Join(Names(), ", "))
	}
	return w, nil
}

// Names returns the registered writer names, sorted.
func Names() []string {
	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputPath appends the writer extension to base unless it is already
// present. Printing writers return base unchanged.
func OutputPath(base string, w Writer) string {
	ext := w.Extension()
	if ext == "" || strings.HasSuffix(base, ext) {
		return base
	}
	return base + ext
}

// ValidateOutput rejects an output path that names a directory.
func ValidateOutput(path string) error {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return fmt.Errorf("output path %s is a directory", path)
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to inspect output path %s: %w", path, err)
	}
	return nil
}

// Emit renders reg with w. Printing writers write to stdout; the others
// write opts.Output, creating its directory. It reports whether a file
// changed.
func Emit(ctx context.Context, w Writer, reg *refs.Registry, opts Options, stdout io.Writer) (bool, error) {
	ctx, span := tracing.Start(ctx, tracing.SpanReport,
		attribute.String(tracing.AttrFormat, w.Name()),
		attribute.String(tracing.AttrOutput, opts.Output),
		attribute.Int(tracing.AttrEntries, reg.Len()),
	)
	changed, err := emit(ctx, w, reg, opts, stdout)
	tracing.End(span, err)
	return changed, err
}

func emit(ctx context.Context, w Writer, reg *refs.Registry, opts Options, stdout io.Writer) (bool, error) {
	data, err := w.Render(ctx, reg, opts)
	if err != nil {
		return false, err
	}
	if w.Extension() == "" {
		_, err := stdout.Write(data)
		return false, err
	}
	if opts.Output == "" {
		return false, fmt.Errorf("%s writer needs an output path", w.Name())
	}
	if err := os.MkdirAll(filepath.Dir(opts.Output), 0755); err != nil {
		return false, fmt.Errorf("failed to create output directory: %w", err)
	}
	changed, err := fileutil.WriteIfChangedTracked(opts.Output, data)
	if err != nil {
		return false, fmt.Errorf("failed to write %s: %w", opts.Output, err)
	}
	return changed, nil
}
