package languages

import (
	"context"

	"github.com/citetrace/citetrace/internal/scan"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

// RubyScanner recognizes "# citetrace:ref" directives and comment blocks in
// Ruby source files.
type RubyScanner struct {
	parser *sitter.Parser
}

// NewRubyScanner creates a new Ruby scanner
func NewRubyScanner() *RubyScanner {
	p := sitter.NewParser()
	p.SetLanguage(ruby.GetLanguage())
	return &RubyScanner{parser: p}
}

func (r *RubyScanner) Language() string {
	return "ruby"
}

func (r *RubyScanner) Extensions() []string {
	return []string{".rb", ".rake", ".gemspec"}
}

func (r *RubyScanner) Scan(filename string, content []byte) (*scan.FileFindings, error) {
	tree, err := r.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	findings := newFindings()
	findings.Package = moduleName(filename)

	root := tree.RootNode()
	r.walk(root, content, indexComments(root, content), findings, "")

	return findings, nil
}

func (r *RubyScanner) walk(node *sitter.Node, content []byte, comments commentIndex, findings *scan.FileFindings, scope string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "method", "singleton_method":
			name := r.methodName(child, content, scope)
			if name == "" {
				continue
			}
			r.apply(findings, comments.leading(child), content, name, lineOf(child))

		case "class", "module":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nameNode.Content(content)
			if scope != "" {
				name = scope + "::" + name
			}
			r.apply(findings, comments.leading(child), content, name, lineOf(child))
			r.walk(child, content, comments, findings, name)

		case "comment", "string", "call":
			continue

		default:
			r.walk(child, content, comments, findings, scope)
		}
	}
}

func (r *RubyScanner) methodName(node *sitter.Node, content []byte, scope string) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nameNode.Content(content)
	separator := "#"
	if node.Type() == "singleton_method" {
		separator = "."
	}
	if scope == "" {
		if separator == "." {
			return "self." + name
		}
		return name
	}
	return scope + separator + name
}

func (r *RubyScanner) apply(findings *scan.FileFindings, comments []*sitter.Node, content []byte, name string, line int) {
	if len(comments) == 0 {
		return
	}
	applyCommentBlock(findings, readCommentBlock(comments, content, "#"), name, line)
}
