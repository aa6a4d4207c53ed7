package languages

import "github.com/citetrace/citetrace/internal/scan"

// NewDefaultRegistry creates a registry with all supported language scanners
func NewDefaultRegistry() *scan.Registry {
	r := scan.NewRegistry()

	r.Register(NewGoScanner())
	r.Register(NewPythonScanner())
	r.Register(NewRubyScanner())
	r.Register(NewTypeScriptScanner())

	return r
}
