package scan

import "github.com/citetrace/citetrace/pkg/refs"

// Annotation is one citation attached to a definition. Stacked annotations
// on the same definition share Name and Line and keep source order.
type Annotation struct {
	Name     string        `json:"name"`
	Line     int           `json:"line"`
	Citation refs.Citation `json:"citation"`
}

// DocBlock is a documentation block (docstring, doc comment, notebook cell)
// attached to a module, type or function.
type DocBlock struct {
	Name string `json:"name"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// FileFindings holds everything recognized in a single file.
type FileFindings struct {
	Path        string
	Language    string
	Package     string
	Annotations []Annotation
	DocBlocks   []DocBlock
	Issues      []Issue
	Hash        string
}

// Issue captures a non-fatal problem found while scanning, such as an
// annotation with conflicting identifiers.
type Issue struct {
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}

// Result holds the findings of one scan.
type Result struct {
	Target string
	Files  []FileFindings
	Issues []Issue
}

// Annotated returns the number of annotations across all files.
func (r *Result) Annotated() int {
	count := 0
	for _, file := range r.Files {
		count += len(file.Annotations)
	}
	return count
}
