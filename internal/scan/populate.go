package scan

import "github.com/citetrace/citetrace/pkg/refs"

// Populate registers every annotation of result under the "source:line" id of
// its definition and returns the number of references appended.
func Populate(reg *refs.Registry, result *Result) int {
	added := 0
	for _, file := range result.Files {
		for _, annotation := range file.Annotations {
			loc := refs.Location{
				Source:  file.Path,
				Name:    annotation.Name,
				Line:    annotation.Line,
				Package: file.Package,
			}
			if reg.Add(loc, annotation.Citation.Purpose, annotation.Citation.Reference()) {
				added++
			}
		}
	}
	return added
}
