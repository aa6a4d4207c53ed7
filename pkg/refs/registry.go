package refs

import (
	"fmt"
	"strings"
)

// Entry holds the references attached to one location. Purposes and
// References are parallel: Purposes[i] describes References[i].
type Entry struct {
	Location
	Purposes   []string    `json:"purposes" yaml:"purposes"`
	References []Reference `json:"references" yaml:"references"`
}

// Has reports whether ref is already attached, by exact tagged-string match.
func (e *Entry) Has(ref Reference) bool {
	tagged := ref.Tagged()
	for _, existing := range e.References {
		if existing.Tagged() == tagged {
			return true
		}
	}
	return false
}

// Registry maps location identifiers to their entry, in first-observation
// order. It is not safe for concurrent use.
type Registry struct {
	entries map[string]*Entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Touch returns the entry for loc, creating an empty one on first observation.
func (r *Registry) Touch(loc Location) *Entry {
	id := loc.ID()
	if entry, ok := r.entries[id]; ok {
		return entry
	}
	entry := &Entry{
		Location:   loc,
		Purposes:   make([]string, 0, 1),
		References: make([]Reference, 0, 1),
	}
	r.entries[id] = entry
	r.order = append(r.order, id)
	return entry
}

// Add appends the purpose/reference pair to the entry for loc. It returns
// false, leaving the entry untouched, when ref is already attached there.
func (r *Registry) Add(loc Location, purpose string, ref Reference) bool {
	entry := r.Touch(loc)
	if entry.Has(ref) {
		return false
	}
	entry.Purposes = append(entry.Purposes, purpose)
	entry.References = append(entry.References, ref)
	return true
}

// Entry returns the entry registered under id.
func (r *Registry) Entry(id string) (*Entry, bool) {
	entry, ok := r.entries[id]
	return entry, ok
}

// IDs returns the location identifiers in first-observation order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Entries returns the entries in first-observation order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// References returns every distinct reference across all entries, in order of
// first appearance.
func (r *Registry) References() []Reference {
	seen := make(map[string]bool)
	out := make([]Reference, 0)
	for _, id := range r.order {
		for _, ref := range r.entries[id].References {
			tagged := ref.Tagged()
			if seen[tagged] {
				continue
			}
			seen[tagged] = true
			out = append(out, ref)
		}
	}
	return out
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.entries = make(map[string]*Entry)
	r.order = nil
}

// String renders the registry the way the terminal reporter prints it.
func (r *Registry) String() string {
	var b strings.Builder
	for _, entry := range r.Entries() {
		fmt.Fprintf(&b, "Referenced in: %s\n", entry.Name)
		fmt.Fprintf(&b, "Source file: %s\n", entry.Source)
		fmt.Fprintf(&b, "Line: %s\n", entry.LineLabel())
		for i := range entry.References {
			fmt.Fprintf(&b, "\t[%d] %s - %s\n", i+1, entry.Purposes[i], entry.References[i])
		}
		b.WriteString("\n")
	}
	return b.String()
}
