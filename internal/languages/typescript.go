package languages

import (
	"context"
	"strings"

	"github.com/citetrace/citetrace/internal/scan"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScriptScanner recognizes "// citetrace:ref" directives and JSDoc
// blocks in TypeScript/JavaScript source files.
type TypeScriptScanner struct {
	tsParser *sitter.Parser
	jsParser *sitter.Parser
}

// NewTypeScriptScanner creates a new TypeScript/JavaScript scanner
func NewTypeScriptScanner() *TypeScriptScanner {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())

	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())

	return &TypeScriptScanner{
		tsParser: ts,
		jsParser: js,
	}
}

func (t *TypeScriptScanner) Language() string {
	return "typescript"
}

func (t *TypeScriptScanner) Extensions() []string {
	return []string{".ts", ".js", ".mjs", ".cjs"}
}

func (t *TypeScriptScanner) Scan(filename string, content []byte) (*scan.FileFindings, error) {
	p := t.tsParser
	if strings.HasSuffix(filename, ".js") || strings.HasSuffix(filename, ".mjs") || strings.HasSuffix(filename, ".cjs") {
		p = t.jsParser
	}

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	findings := newFindings()
	findings.Package = moduleName(filename)

	root := tree.RootNode()
	t.walk(root, content, indexComments(root, content), findings, "")

	return findings, nil
}

func (t *TypeScriptScanner) walk(node *sitter.Node, content []byte, comments commentIndex, findings *scan.FileFindings, className string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		decl := child
		if decl.Type() == "export_statement" {
			inner := decl.ChildByFieldName("declaration")
			if inner == nil {
				continue
			}
			decl = inner
		}
		leading := comments.leading(child)

		switch decl.Type() {
		case "function_declaration", "generator_function_declaration":
			t.apply(findings, leading, content, t.fieldName(decl, content), lineOf(child))

		case "class_declaration", "abstract_class_declaration":
			name := t.fieldName(decl, content)
			t.apply(findings, leading, content, name, lineOf(child))
			if body := decl.ChildByFieldName("body"); body != nil && name != "" {
				t.walk(body, content, comments, findings, name)
			}

		case "method_definition":
			name := t.fieldName(decl, content)
			if name != "" && className != "" {
				name = className + "." + name
			}
			t.apply(findings, leading, content, name, lineOf(child))

		case "lexical_declaration", "variable_declaration":
			t.apply(findings, leading, content, t.functionVariable(decl, content), lineOf(child))
		}
	}
}

func (t *TypeScriptScanner) fieldName(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return nameNode.Content(content)
}

// functionVariable returns the name bound by `const f = () => ...` or
// `const f = function () {...}`.
func (t *TypeScriptScanner) functionVariable(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		declarator := node.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		value := declarator.ChildByFieldName("value")
		if value == nil {
			continue
		}
		switch value.Type() {
		case "arrow_function", "function", "function_expression", "generator_function":
			return t.fieldName(declarator, content)
		}
	}
	return ""
}

func (t *TypeScriptScanner) apply(findings *scan.FileFindings, comments []*sitter.Node, content []byte, name string, line int) {
	if name == "" || len(comments) == 0 {
		return
	}
	applyCommentBlock(findings, readCommentBlock(comments, content, "//"), name, line)
}
