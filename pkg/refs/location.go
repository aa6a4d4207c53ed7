package refs

import (
	"runtime"
	"strconv"
	"strings"
)

// NoLine marks a location that has no executable line anchor, such as a
// markdown notebook cell.
const NoLine = 0

// Location identifies where references were attached.
type Location struct {
	Source  string `json:"source" yaml:"source"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
}

// ID returns the deterministic location identifier: "source:line" when the
// line is known, "source:name" otherwise.
func (l Location) ID() string {
	if l.Line != NoLine {
		return l.Source + ":" + strconv.Itoa(l.Line)
	}
	return l.Source + ":" + l.Name
}

// LineLabel renders the line number, or "N/A" when there is none.
func (l Location) LineLabel() string {
	if l.Line == NoLine {
		return "N/A"
	}
	return strconv.Itoa(l.Line)
}

// autogenerated is the file the runtime reports for compiler-generated code.
const autogenerated = "<autogenerated>"

// FuncLocation resolves the defining file, first line, name and package of
// the function at pc using the runtime symbol table.
//
// Method values such as t.Roast run through a generated "-fm" wrapper that has
// no source position. Those are keyed by package and method name instead,
// with no line; use AnnotateAt to pin them to a file and line.
func FuncLocation(pc uintptr) (Location, bool) {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return Location{}, false
	}
	file, line := fn.FileLine(fn.Entry())
	pkg, name := splitFuncName(fn.Name())
	if isMethodValue(fn.Name(), file) {
		return Location{Source: pkg, Name: name, Line: NoLine, Package: pkg}, true
	}
	return Location{Source: file, Name: name, Line: line, Package: pkg}, true
}

func isMethodValue(symbol, file string) bool {
	return strings.HasSuffix(symbol, "-fm") || file == autogenerated
}

// splitFuncName splits "example.com/a/b.(*T).Method" into its package import
// path and the remaining symbol.
func splitFuncName(full string) (pkg, name string) {
	slash := strings.LastIndex(full, "/")
	dot := strings.Index(full[slash+1:], ".")
	if dot < 0 {
		return "", full
	}
	dot += slash + 1
	return full[:dot], strings.TrimSuffix(full[dot+1:], "-fm")
}
