package languages

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/pkg/refs"
	sitter "github.com/smacker/go-tree-sitter"
)

// DirectiveName introduces an annotation inside a line comment, e.g.
//
//	//citetrace:ref purpose="Roasted chicken recipe" doi="10.1234/abc"
const DirectiveName = "citetrace:ref"

var errEmptyDirective = errors.New("directive has no arguments")

func splitQualifiedName(raw string) (qualifier, name string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if idx := strings.LastIndex(raw, "."); idx != -1 {
		qualifier = strings.TrimSpace(raw[:idx])
		name = strings.TrimSpace(raw[idx+1:])
		return qualifier, name
	}
	return "", raw
}

// moduleName returns the file name without directories or extension.
func moduleName(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func lineOf(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// commentIndex maps the last row of every comment that starts its own line
// to the comment node.
type commentIndex map[int]*sitter.Node

func indexComments(root *sitter.Node, content []byte) commentIndex {
	idx := make(commentIndex)
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "comment" {
			if startsLine(node, content) {
				idx[int(node.EndPoint().Row)] = node
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(root)
	return idx
}

// startsLine reports whether only whitespace precedes node on its first line.
func startsLine(node *sitter.Node, content []byte) bool {
	for i := int(node.StartByte()) - 1; i >= 0; i-- {
		switch content[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return true
}

// leading returns the comment block directly above node: consecutive comments
// ending on the line before it, in source order.
func (idx commentIndex) leading(node *sitter.Node) []*sitter.Node {
	block := make([]*sitter.Node, 0)
	row := int(node.StartPoint().Row) - 1
	for {
		comment, ok := idx[row]
		if !ok {
			break
		}
		block = append(block, comment)
		row = int(comment.StartPoint().Row) - 1
	}
	for i, j := 0, len(block)-1; i < j; i, j = i+1, j-1 {
		block[i], block[j] = block[j], block[i]
	}
	return block
}

// lineComment returns the body of a "//" or "#" comment, or false for block
// comments.
func lineComment(raw string, markers ...string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, marker := range markers {
		if strings.HasPrefix(raw, marker) {
			return strings.TrimPrefix(raw, marker), true
		}
	}
	return "", false
}

// directiveArgs reports whether a comment body is an annotation directive and
// returns its argument string. Both "//citetrace:ref" and "// citetrace:ref"
// are accepted.
func directiveArgs(body string) (string, bool) {
	trimmed := strings.TrimLeft(body, " \t")
	if !strings.HasPrefix(trimmed, DirectiveName) {
		return "", false
	}
	rest := trimmed[len(DirectiveName):]
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// parseDirective turns `purpose="..." doi="..."` into a validated citation.
// Values may be Go double-quoted or raw strings, or bare words.
func parseDirective(args string) (refs.Citation, error) {
	var c refs.Citation
	if strings.TrimSpace(args) == "" {
		return c, errEmptyDirective
	}

	rest := args
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return c, fmt.Errorf("expected key=value, got %q", rest)
		}
		key := strings.TrimSpace(rest[:eq])
		rest = rest[eq+1:]

		var value string
		if rest != "" && (rest[0] == '"' || rest[0] == '`') {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return c, fmt.Errorf("bad quoted value for %s: %w", key, err)
			}
			value, _ = strconv.Unquote(quoted)
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			value = rest[:end]
			rest = rest[end:]
		}

		switch key {
		case "purpose", "short_purpose":
			c.Purpose = value
		case "text", "reference":
			c.Text = value
		case "doi":
			c.DOI = value
		case "bibtex", "key":
			c.BibKey = value
		default:
			return c, fmt.Errorf("unknown directive key %q", key)
		}
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// commentBlock splits a leading comment block into directive annotations and
// the remaining doc text.
type commentBlock struct {
	directives []directive
	doc        []string
}

type directive struct {
	line int
	args string
}

func readCommentBlock(comments []*sitter.Node, content []byte, markers ...string) commentBlock {
	var block commentBlock
	for _, comment := range comments {
		raw := comment.Content(content)
		if body, ok := lineComment(raw, markers...); ok {
			if args, isDirective := directiveArgs(body); isDirective {
				block.directives = append(block.directives, directive{line: lineOf(comment), args: args})
				continue
			}
			block.doc = append(block.doc, strings.TrimPrefix(body, " "))
			continue
		}
		block.doc = append(block.doc, blockCommentLines(raw)...)
	}
	return block
}

// blockCommentLines strips /* */ or /** */ delimiters and leading asterisks.
func blockCommentLines(raw string) []string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/*") {
		return nil
	}
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")

	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		out = append(out, strings.TrimPrefix(line, " "))
	}
	return out
}

// docText joins doc lines, dropping leading and trailing blank lines.
func docText(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// applyCommentBlock records the annotations and doc block a comment block
// attaches to the definition name declared at line.
func applyCommentBlock(findings *scan.FileFindings, block commentBlock, name string, line int) {
	for _, d := range block.directives {
		citation, err := parseDirective(d.args)
		if err != nil {
			findings.Issues = append(findings.Issues, scan.Issue{
				Line:     d.line,
				Severity: "warning",
				Message:  fmt.Sprintf("invalid annotation on %s: %v", name, err),
			})
			continue
		}
		findings.Annotations = append(findings.Annotations, scan.Annotation{
			Name:     name,
			Line:     line,
			Citation: citation,
		})
	}
	if text := docText(block.doc); text != "" {
		findings.DocBlocks = append(findings.DocBlocks, scan.DocBlock{Name: name, Line: line, Text: text})
	}
}

func newFindings() *scan.FileFindings {
	return &scan.FileFindings{
		Annotations: make([]scan.Annotation, 0),
		DocBlocks:   make([]scan.DocBlock, 0),
		Issues:      make([]scan.Issue, 0),
	}
}
