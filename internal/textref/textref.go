package textref

import (
	"regexp"
	"sort"
	"strings"

	"github.com/citetrace/citetrace/pkg/refs"
)

var (
	doiPattern = regexp.MustCompile(`\b10\.\d{4,}/\S+`)

	// \cite{a,b}, \citep[p. 3]{a} and friends.
	latexCitePattern = regexp.MustCompile(`\\cite[a-zA-Z]*\*?(?:\[[^\]]*\])*\{([^}]+)\}`)
	// :cite:`a,b` and :cite:p:`a`.
	sphinxCitePattern = regexp.MustCompile(":cite(?::[a-z]+)?:`([^`]+)`")
	// @cite a or \cite a.
	bareCitePattern = regexp.MustCompile(`[@\\]cite[ \t]+([A-Za-z0-9_:.\-/]+)`)
)

const doiTrailing = ".,;"

// DOIs returns every DOI-shaped substring of text, normalized to its
// https://doi.org/ URL, in text order and without duplicates.
func DOIs(text string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, match := range doiPattern.FindAllString(text, -1) {
		doi := strings.TrimRight(match, doiTrailing)
		if strings.HasSuffix(doi, "/") {
			continue
		}
		url := refs.DOIURLPrefix + doi
		if seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, url)
	}
	return out
}

type keyMatch struct {
	offset int
	key    string
}

// CiteKeys returns the citation keys referenced through LaTeX, Sphinx or
// Doxygen syntax, in text order and without duplicates.
func CiteKeys(text string) []string {
	matches := make([]keyMatch, 0)
	collect := func(pattern *regexp.Regexp, split bool) {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			group := text[loc[2]:loc[3]]
			if !split {
				matches = append(matches, keyMatch{offset: loc[2], key: group})
				continue
			}
			offset := loc[2]
			for _, part := range strings.Split(group, ",") {
				if key := strings.TrimSpace(part); key != "" {
					matches = append(matches, keyMatch{offset: offset, key: key})
				}
				offset += len(part) + 1
			}
		}
	}
	collect(latexCitePattern, true)
	collect(sphinxCitePattern, true)
	collect(bareCitePattern, false)

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].offset < matches[j].offset
	})

	seen := make(map[string]bool)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.TrimRight(m.key, doiTrailing)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// Parse extracts the references mentioned in free text: DOIs first, then
// citation keys.
func Parse(text string) []refs.Reference {
	dois := DOIs(text)
	keys := CiteKeys(text)
	out := make([]refs.Reference, 0, len(dois)+len(keys))
	for _, doi := range dois {
		out = append(out, refs.Reference{Kind: refs.KindDOI, Value: doi})
	}
	for _, key := range keys {
		out = append(out, refs.Bibtex(key))
	}
	return out
}
