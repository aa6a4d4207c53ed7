package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/citetrace/citetrace/internal/resolve"
	"github.com/citetrace/citetrace/pkg/refs"
)

type bibtexWriter struct{}

func (bibtexWriter) Name() string      { return "bibtex" }
func (bibtexWriter) Extension() string { return ".bib" }

// Render resolves every reference to a bibtex entry in first-use order.
// References that resolve to nothing, such as unknown DOIs, are skipped;
// lookup errors abort the report.
func (bibtexWriter) Render(ctx context.Context, reg *refs.Registry, opts Options) ([]byte, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("bibtex writer needs a resolver")
	}

	seen := make(map[string]bool)
	var b strings.Builder
	for _, entry := range reg.Entries() {
		for _, ref := range entry.References {
			rendered, err := opts.Resolver.Resolve(ctx, ref, entry.Package, resolve.FormatBibtex)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s for %s: %w", ref.Tagged(), entry.ID(), err)
			}
			if rendered == "" || seen[rendered] {
				continue
			}
			seen[rendered] = true
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(rendered)
		}
	}
	return []byte(b.String()), nil
}
