package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/citetrace/citetrace/pkg/refs"
)

type markdownWriter struct{}

func (markdownWriter) Name() string      { return "markdown" }
func (markdownWriter) Extension() string { return ".md" }

// Render links each source relative to the directory of the output file.
func (markdownWriter) Render(ctx context.Context, reg *refs.Registry, opts Options) ([]byte, error) {
	root := filepath.Dir(opts.Output)

	var b strings.Builder
	for _, entry := range reg.Entries() {
		source := relativeSource(root, entry.Source)
		fmt.Fprintf(&b, "Referenced in: %s  \n", entry.Name)
		fmt.Fprintf(&b, "Source: [%s](%s:%s)  \n", source, source, entry.LineLabel())
		fmt.Fprintf(&b, "Line: %s\n\n", entry.LineLabel())
		for i := range entry.References {
			fmt.Fprintf(&b, "\t[%d] %s - %s  \n", i+1, entry.Purposes[i], entry.References[i])
		}
	}
	return []byte(b.String()), nil
}

func relativeSource(root, source string) string {
	if root == "" {
		return filepath.ToSlash(source)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(source)
	}
	absSource, err := filepath.Abs(source)
	if err != nil {
		return filepath.ToSlash(source)
	}
	rel, err := filepath.Rel(absRoot, absSource)
	if err != nil {
		return filepath.ToSlash(source)
	}
	return filepath.ToSlash(rel)
}
