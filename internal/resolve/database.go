package resolve

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/nickng/bibtex"
)

// database is one bibliography file, loaded on first use.
type database struct {
	path string
	bib  *bibtex.BibTex
}

func loadDatabase(path string) (*database, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// DOI lookups may create the file later.
			return &database{path: path, bib: bibtex.NewBibTex()}, nil
		}
		return nil, fmt.Errorf("failed to open bibliography %s: %w", path, err)
	}
	defer f.Close()

	bib, err := bibtex.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bibliography %s: %w", path, err)
	}
	return &database{path: path, bib: bib}, nil
}

func (d *database) findKey(key string) (*bibtex.BibEntry, bool) {
	for _, entry := range d.bib.Entries {
		if entry.CiteName == key {
			return entry, true
		}
	}
	return nil, false
}

func (d *database) findDOI(doi string) (*bibtex.BibEntry, bool) {
	doi = strings.ToLower(refs.BareDOI(doi))
	for _, entry := range d.bib.Entries {
		if strings.ToLower(refs.BareDOI(fieldValue(entry, "doi"))) == doi {
			return entry, true
		}
	}
	return nil, false
}

// append adds entry to the database and persists it at the end of the file.
func (d *database) append(entry *bibtex.BibEntry) error {
	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open bibliography %s: %w", d.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString("\n" + formatEntry(entry)); err != nil {
		return fmt.Errorf("failed to append to bibliography %s: %w", d.path, err)
	}
	d.bib.AddEntry(entry)
	return nil
}

// parseEntry parses a single bibtex entry, as returned by a DOI lookup.
func parseEntry(text string) (*bibtex.BibEntry, error) {
	bib, err := bibtex.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bibtex: %w", err)
	}
	if len(bib.Entries) == 0 {
		return nil, fmt.Errorf("no bibtex entry in response")
	}
	return bib.Entries[0], nil
}

// fieldValue returns a field by case-insensitive name, without the outer
// braces or quotes.
func fieldValue(entry *bibtex.BibEntry, name string) string {
	for key, value := range entry.Fields {
		if strings.EqualFold(key, name) && value != nil {
			return unwrap(value.String())
		}
	}
	return ""
}

func unwrap(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && ((s[0] == '{' && s[len(s)-1] == '}') || (s[0] == '"' && s[len(s)-1] == '"')) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// formatEntry renders entry with its fields sorted by name.
func formatEntry(entry *bibtex.BibEntry) string {
	names := make([]string, 0, len(entry.Fields))
	for name := range entry.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", strings.ToLower(entry.Type), entry.CiteName)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s = {%s},\n", strings.ToLower(name), fieldValue(entry, name))
	}
	b.WriteString("}\n")
	return b.String()
}

var braceStripper = strings.NewReplacer("{", "", "}", "")

// summarize renders "Title by Authors (Year)".
func summarize(entry *bibtex.BibEntry) string {
	title := braceStripper.Replace(fieldValue(entry, "title"))
	if title == "" {
		title = entry.CiteName
	}
	out := title
	if authors := formatAuthors(fieldValue(entry, "author")); authors != "" {
		out += " by " + authors
	}
	if year := fieldValue(entry, "year"); year != "" {
		out += " (" + year + ")"
	}
	return out
}

// formatAuthors turns "Last, First and Other, Second" into
// "First Last and Second Other".
func formatAuthors(raw string) string {
	raw = braceStripper.Replace(raw)
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	parts := strings.Split(raw, " and ")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), " ")
		if last, first, ok := strings.Cut(part, ","); ok {
			part = strings.TrimSpace(first) + " " + strings.TrimSpace(last)
		}
		if part != "" {
			names = append(names, part)
		}
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
