// Package refs records which citations a program touches, either by scanning
// its source or by running it with annotated callables.
package refs

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tags a reference string with the processor that understands it.
type Kind string

const (
	KindPlain  Kind = "plain"
	KindDOI    Kind = "doi"
	KindBibtex Kind = "bibtex"
)

// DOIURLPrefix is the canonical form every DOI reference is normalized to.
const DOIURLPrefix = "https://doi.org/"

func (k Kind) Valid() bool {
	switch k {
	case KindPlain, KindDOI, KindBibtex:
		return true
	default:
		return false
	}
}

// Reference is one citation attached to a code location.
type Reference struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Value string `json:"value" yaml:"value"`
}

// Plain returns a plain-text reference.
func Plain(text string) Reference {
	return Reference{Kind: KindPlain, Value: text}
}

// DOI returns a DOI reference normalized to its https://doi.org/ URL.
func DOI(doi string) Reference {
	return Reference{Kind: KindDOI, Value: DOIURLPrefix + BareDOI(doi)}
}

// Bibtex returns a reference to a key in a bibliography database.
func Bibtex(key string) Reference {
	return Reference{Kind: KindBibtex, Value: strings.TrimSpace(key)}
}

// String returns the reference value as written in reports.
func (r Reference) String() string {
	return r.Value
}

// Tagged returns the "[kind]value" form. Duplicate detection compares this
// string exactly.
func (r Reference) Tagged() string {
	return "[" + string(r.Kind) + "]" + r.Value
}

var taggedPattern = regexp.MustCompile(`(?s)^\[(\w+)\](.*)$`)

// ParseTagged parses the "[kind]value" form produced by Tagged. The value is
// kept byte for byte, newlines included.
func ParseTagged(tagged string) (Reference, error) {
	m := taggedPattern.FindStringSubmatch(strings.TrimLeft(tagged, " \t\r\n"))
	if m == nil {
		return Reference{}, fmt.Errorf("could not process reference %q", tagged)
	}
	kind := Kind(m[1])
	if !kind.Valid() {
		return Reference{}, fmt.Errorf("unknown reference kind %q in %q", m[1], tagged)
	}
	return Reference{Kind: kind, Value: m[2]}, nil
}

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// BareDOI strips URL and "doi:" prefixes, leaving "10.xxxx/suffix".
func BareDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(doi[len(prefix):])
		}
	}
	return doi
}
