package notebook

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/pkg/refs"
)

// Extension is the only file type the notebook scanner accepts.
const Extension = ".ipynb"

type document struct {
	Cells []cell `json:"cells"`
}

type cell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// Scanner turns the markdown cells of a Jupyter notebook into doc blocks
// named cell[<index>]. Cells have no line anchor, so blocks carry NoLine.
type Scanner struct{}

func NewScanner() *Scanner {
	return &Scanner{}
}

func (s *Scanner) Language() string {
	return "notebook"
}

func (s *Scanner) Extensions() []string {
	return []string{Extension}
}

func (s *Scanner) Scan(filename string, content []byte) (*scan.FileFindings, error) {
	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid notebook: %w", err)
	}

	base := filepath.Base(filename)
	findings := &scan.FileFindings{
		Package:     strings.TrimSuffix(base, filepath.Ext(base)),
		Annotations: make([]scan.Annotation, 0),
		DocBlocks:   make([]scan.DocBlock, 0),
		Issues:      make([]scan.Issue, 0),
	}
	for i, c := range doc.Cells {
		if c.CellType != "markdown" {
			continue
		}
		text, err := cellSource(c.Source)
		if err != nil {
			findings.Issues = append(findings.Issues, scan.Issue{
				Severity: "warning",
				Message:  fmt.Sprintf("cell[%d]: %v", i, err),
			})
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		findings.DocBlocks = append(findings.DocBlocks, scan.DocBlock{
			Name: CellName(i),
			Line: refs.NoLine,
			Text: text,
		})
	}
	return findings, nil
}

// CellName is the synthetic definition name of the cell at index.
func CellName(index int) string {
	return fmt.Sprintf("cell[%d]", index)
}

// cellSource accepts both the list-of-lines and single-string source forms.
func cellSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, ""), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("unsupported cell source: %w", err)
	}
	return text, nil
}
