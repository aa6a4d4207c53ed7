package resolve

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Bindings map package names to bibliography files.
type Bindings struct {
	paths map[string]string
}

func NewBindings() *Bindings {
	return &Bindings{paths: make(map[string]string)}
}

// Register binds pkg to the bibliography at path. Each package may be bound
// once.
func (b *Bindings) Register(pkg, path string) error {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return fmt.Errorf("package name is required")
	}
	if existing, ok := b.paths[pkg]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrAlreadyRegistered, pkg, existing)
	}
	b.paths[pkg] = filepath.Clean(path)
	return nil
}

// Lookup returns the bibliography bound to pkg. When pkg itself is unbound,
// its enclosing packages are tried ("a/b/c", "a/b", "a" or "a.b.c", "a.b",
// "a"), then the last element of an import path.
func (b *Bindings) Lookup(pkg string) (string, bool) {
	for _, candidate := range lookupCandidates(pkg) {
		if path, ok := b.paths[candidate]; ok {
			return path, true
		}
	}
	return "", false
}

// Packages returns the bound package names, sorted.
func (b *Bindings) Packages() []string {
	out := make([]string, 0, len(b.paths))
	for pkg := range b.paths {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

func lookupCandidates(pkg string) []string {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return nil
	}
	out := []string{pkg}
	for p := pkg; ; {
		idx := strings.LastIndexAny(p, "/.")
		if idx <= 0 {
			break
		}
		p = p[:idx]
		out = append(out, p)
	}
	if idx := strings.LastIndex(pkg, "/"); idx >= 0 && idx < len(pkg)-1 {
		out = append(out, pkg[idx+1:])
	}
	return out
}
