package report

import (
	"context"

	"github.com/citetrace/citetrace/internal/fileutil"
	"github.com/citetrace/citetrace/pkg/refs"
)

// jsonlRecord is one reference. Index counts references across the whole
// registry, starting at 1.
type jsonlRecord struct {
	Index     int            `json:"index"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Source    string         `json:"source"`
	Line      string         `json:"line"`
	Package   string         `json:"package,omitempty"`
	Purpose   string         `json:"purpose"`
	Reference refs.Reference `json:"reference"`
}

type jsonlWriter struct{}

func (jsonlWriter) Name() string      { return "jsonl" }
func (jsonlWriter) Extension() string { return ".jsonl" }

// Render emits one line per reference; entries without references emit
// nothing.
func (jsonlWriter) Render(ctx context.Context, reg *refs.Registry, opts Options) ([]byte, error) {
	records := make([]jsonlRecord, 0)
	for _, entry := range reg.Entries() {
		for i, ref := range entry.References {
			records = append(records, jsonlRecord{
				Index:     len(records) + 1,
				ID:        entry.ID(),
				Name:      entry.Name,
				Source:    entry.Source,
				Line:      entry.LineLabel(),
				Package:   entry.Package,
				Purpose:   entry.Purposes[i],
				Reference: ref,
			})
		}
	}
	return fileutil.EncodeJSONL(records)
}
