package docrefs

import (
	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/internal/textref"
	"github.com/citetrace/citetrace/pkg/refs"
)

// Purpose is the short purpose given to every reference found in a doc block.
const Purpose = "automatically parsed from docstring"

// Populate registers the references mentioned in every doc block of result.
// Blocks that mention nothing are not registered. It returns the number of
// references appended.
func Populate(reg *refs.Registry, result *scan.Result) int {
	added := 0
	for i := range result.Files {
		added += PopulateFile(reg, &result.Files[i])
	}
	return added
}

// PopulateFile is Populate for a single file.
func PopulateFile(reg *refs.Registry, file *scan.FileFindings) int {
	added := 0
	for _, block := range file.DocBlocks {
		found := textref.Parse(block.Text)
		if len(found) == 0 {
			continue
		}
		loc := refs.Location{
			Source:  file.Path,
			Name:    block.Name,
			Line:    block.Line,
			Package: file.Package,
		}
		for _, ref := range found {
			if reg.Add(loc, Purpose, ref) {
				added++
			}
		}
	}
	return added
}
