package languages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/pkg/refs"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DecoratorName is the Python decorator recognized as an annotation, bare or
// qualified (e.g. citetrace.add_reference).
const DecoratorName = "add_reference"

// PythonScanner recognizes @add_reference decorators and docstrings in
// Python source files.
type PythonScanner struct {
	parser *sitter.Parser
}

// NewPythonScanner creates a new Python scanner
func NewPythonScanner() *PythonScanner {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonScanner{parser: p}
}

func (p *PythonScanner) Language() string {
	return "python"
}

func (p *PythonScanner) Extensions() []string {
	return []string{".py", ".pyw"}
}

func (p *PythonScanner) Scan(filename string, content []byte) (*scan.FileFindings, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	findings := newFindings()
	findings.Package = pythonPackage(filename)

	root := tree.RootNode()
	if doc, node := p.docstring(root, content); node != nil && doc != "" {
		findings.DocBlocks = append(findings.DocBlocks, scan.DocBlock{
			Name: moduleName(filename),
			Line: lineOf(node),
			Text: doc,
		})
	}
	p.walk(root, content, findings)

	return findings, nil
}

func (p *PythonScanner) walk(node *sitter.Node, content []byte, findings *scan.FileFindings) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def == nil {
				continue
			}
			name := p.definitionName(def, content)
			for j := 0; j < int(child.NamedChildCount()); j++ {
				decorator := child.NamedChild(j)
				if decorator.Type() != "decorator" {
					continue
				}
				p.extractAnnotation(decorator, content, name, lineOf(def), findings)
			}
			p.definition(def, content, findings)

		case "function_definition", "class_definition":
			p.definition(child, content, findings)

		case "string", "comment":
			continue

		default:
			p.walk(child, content, findings)
		}
	}
}

func (p *PythonScanner) definition(node *sitter.Node, content []byte, findings *scan.FileFindings) {
	name := p.definitionName(node, content)
	if name == "" {
		return
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	if doc, _ := p.docstring(body, content); doc != "" {
		findings.DocBlocks = append(findings.DocBlocks, scan.DocBlock{
			Name: name,
			Line: lineOf(node),
			Text: doc,
		})
	}
	p.walk(body, content, findings)
}

func (p *PythonScanner) definitionName(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return nameNode.Content(content)
}

// docstring returns the cleaned docstring of a module or block, and the
// string node it came from.
func (p *PythonScanner) docstring(block *sitter.Node, content []byte) (string, *sitter.Node) {
	if block == nil || block.NamedChildCount() == 0 {
		return "", nil
	}
	first := block.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return "", nil
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" && expr.Type() != "concatenated_string" {
		return "", nil
	}
	value, ok := pythonStringValue(expr, content)
	if !ok {
		return "", nil
	}
	return cleanDocstring(value), expr
}

func (p *PythonScanner) extractAnnotation(decorator *sitter.Node, content []byte, name string, line int, findings *scan.FileFindings) {
	if decorator.NamedChildCount() == 0 {
		return
	}
	expr := decorator.NamedChild(0)

	callee := expr
	if expr.Type() == "call" {
		callee = expr.ChildByFieldName("function")
	}
	if callee == nil {
		return
	}
	if _, base := splitQualifiedName(callee.Content(content)); base != DecoratorName {
		return
	}

	warn := func(format string, args ...any) {
		findings.Issues = append(findings.Issues, scan.Issue{
			Line:     lineOf(decorator),
			Severity: "warning",
			Message:  fmt.Sprintf("invalid annotation on %s: ", name) + fmt.Sprintf(format, args...),
		})
	}

	if expr.Type() != "call" {
		warn("%s must be called with arguments", DecoratorName)
		return
	}
	args := expr.ChildByFieldName("arguments")
	if args == nil {
		warn("%s must be called with arguments", DecoratorName)
		return
	}

	var citation refs.Citation
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "comment" {
			continue
		}
		if arg.Type() != "keyword_argument" {
			warn("positional argument %q is not supported", arg.Content(content))
			return
		}
		keyNode := arg.ChildByFieldName("name")
		valueNode := arg.ChildByFieldName("value")
		if keyNode == nil || valueNode == nil {
			continue
		}
		key := keyNode.Content(content)
		value, ok := pythonStringValue(valueNode, content)
		if !ok {
			warn("%s must be a string literal", key)
			return
		}
		switch key {
		case "short_purpose":
			citation.Purpose = value
		case "reference":
			citation.Text = value
		case "doi":
			citation.DOI = value
		case "bibtex":
			citation.BibKey = value
		default:
			warn("unknown argument %q", key)
			return
		}
	}

	if err := citation.Validate(); err != nil {
		warn("%v", err)
		return
	}
	findings.Annotations = append(findings.Annotations, scan.Annotation{
		Name:     name,
		Line:     line,
		Citation: citation,
	})
}

// pythonStringValue evaluates string literals, implicit concatenations and
// parenthesized strings. Anything else, including interpolating f-strings,
// is not a literal.
func pythonStringValue(node *sitter.Node, content []byte) (string, bool) {
	switch node.Type() {
	case "string":
		return evalPythonLiteral(node.Content(content))
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(node.NamedChildCount()); i++ {
			part := node.NamedChild(i)
			if part.Type() == "comment" {
				continue
			}
			value, ok := pythonStringValue(part, content)
			if !ok {
				return "", false
			}
			b.WriteString(value)
		}
		return b.String(), true
	case "parenthesized_expression":
		if node.NamedChildCount() == 1 {
			return pythonStringValue(node.NamedChild(0), content)
		}
	}
	return "", false
}

func evalPythonLiteral(raw string) (string, bool) {
	quote := strings.IndexAny(raw, `"'`)
	if quote < 0 {
		return "", false
	}
	prefix := strings.ToLower(raw[:quote])
	if strings.Trim(prefix, "rbuf") != "" {
		return "", false
	}
	body := raw[quote:]

	delim := body[:1]
	if strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`) {
		delim = body[:3]
	}
	if len(body) < 2*len(delim) || !strings.HasSuffix(body, delim) {
		return "", false
	}
	body = body[len(delim) : len(body)-len(delim)]

	if strings.Contains(prefix, "f") && strings.Contains(body, "{") {
		return "", false
	}
	if strings.Contains(prefix, "r") {
		return body, true
	}
	return unescapePython(body), true
}

func unescapePython(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		case '\n':
			// line continuation
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// cleanDocstring removes the common indentation of every line after the
// first, and leading and trailing blank lines.
func cleanDocstring(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	indent := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " ")
		if stripped == "" {
			continue
		}
		if n := len(line) - len(stripped); indent < 0 || n < indent {
			indent = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if indent > 0 && len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return docText(lines)
}

// pythonPackage returns the dotted module path of filename, ascending through
// directories that contain an __init__.py.
func pythonPackage(filename string) string {
	parts := make([]string, 0)
	if mod := moduleName(filename); mod != "__init__" {
		parts = append(parts, mod)
	}

	dir, _ := filepath.Abs(filepath.Dir(filename))
	for dir != "" {
		if _, err := os.Stat(filepath.Join(dir, "__init__.py")); err != nil {
			break
		}
		parts = append([]string{filepath.Base(dir)}, parts...)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return strings.Join(parts, ".")
}
