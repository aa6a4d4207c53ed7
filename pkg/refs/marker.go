package refs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCitation = errors.New("exactly one of text, doi or bibtex key must be given")
	ErrMissingPurpose  = errors.New("short purpose is required")
)

// Citation is what an author writes at an annotation site: a short purpose and
// exactly one reference identifier.
type Citation struct {
	Purpose string
	Text    string
	DOI     string
	BibKey  string
}

// Validate checks that exactly one identifier and a purpose are present.
func (c Citation) Validate() error {
	set := 0
	for _, value := range []string{c.Text, c.DOI, c.BibKey} {
		if strings.TrimSpace(value) != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidCitation, set)
	}
	if strings.TrimSpace(c.Purpose) == "" {
		return ErrMissingPurpose
	}
	return nil
}

// Reference converts the citation into its tagged reference. Call Validate
// first.
func (c Citation) Reference() Reference {
	switch {
	case strings.TrimSpace(c.DOI) != "":
		return DOI(c.DOI)
	case strings.TrimSpace(c.BibKey) != "":
		return Bibtex(c.BibKey)
	default:
		return Plain(c.Text)
	}
}

// Marker is a validated citation ready to be attached to callables.
type Marker struct {
	purpose   string
	reference Reference
}

// NewMarker validates c and builds a marker from it.
func NewMarker(c Citation) (*Marker, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Marker{purpose: c.Purpose, reference: c.Reference()}, nil
}

// MustMarker is NewMarker for package-level declarations; it panics on an
// invalid citation.
func MustMarker(c Citation) *Marker {
	m, err := NewMarker(c)
	if err != nil {
		panic(fmt.Sprintf("refs: %v", err))
	}
	return m
}

func (m *Marker) Purpose() string {
	return m.purpose
}

func (m *Marker) Reference() Reference {
	return m.reference
}

// Touch records markers against site when tracking is enabled. Use it at the
// top of a function body when wrapping is impractical.
func Touch(t *Tracker, site Location, markers ...*Marker) {
	if t == nil || !t.Enabled() {
		return
	}
	for _, m := range markers {
		t.record(site, m.purpose, m.reference)
	}
}
