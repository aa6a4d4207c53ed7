package report

import (
	"context"
	"fmt"

	"github.com/citetrace/citetrace/pkg/refs"
	"gopkg.in/yaml.v3"
)

type yamlReference struct {
	Purpose   string `yaml:"purpose"`
	Kind      string `yaml:"kind"`
	Reference string `yaml:"reference"`
}

type yamlEntry struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Source     string          `yaml:"source"`
	Line       string          `yaml:"line"`
	Package    string          `yaml:"package,omitempty"`
	References []yamlReference `yaml:"references"`
}

type yamlWriter struct{}

func (yamlWriter) Name() string      { return "yaml" }
func (yamlWriter) Extension() string { return ".yaml" }

func (yamlWriter) Render(ctx context.Context, reg *refs.Registry, opts Options) ([]byte, error) {
	entries := make([]yamlEntry, 0, reg.Len())
	for _, entry := range reg.Entries() {
		out := yamlEntry{
			ID:         entry.ID(),
			Name:       entry.Name,
			Source:     entry.Source,
			Line:       entry.LineLabel(),
			Package:    entry.Package,
			References: make([]yamlReference, 0, len(entry.References)),
		}
		for i, ref := range entry.References {
			out.References = append(out.References, yamlReference{
				Purpose:   entry.Purposes[i],
				Kind:      string(ref.Kind),
				Reference: ref.Value,
			})
		}
		entries = append(entries, out)
	}

	data, err := yaml.Marshal(map[string]any{"entries": entries})
	if err != nil {
		return nil, fmt.Errorf("failed to encode yaml report: %w", err)
	}
	return data, nil
}
