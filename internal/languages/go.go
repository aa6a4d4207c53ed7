package languages

import (
	"context"
	"strings"

	"github.com/citetrace/citetrace/internal/scan"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoScanner recognizes //citetrace:ref directives and doc comments in Go
// source files.
type GoScanner struct {
	parser *sitter.Parser
}

// NewGoScanner creates a new Go scanner
func NewGoScanner() *GoScanner {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoScanner{parser: p}
}

func (g *GoScanner) Language() string {
	return "go"
}

func (g *GoScanner) Extensions() []string {
	return []string{".go"}
}

func (g *GoScanner) Scan(filename string, content []byte) (*scan.FileFindings, error) {
	tree, err := g.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	findings := newFindings()
	root := tree.RootNode()
	findings.Package = g.packageName(root, content)

	comments := indexComments(root, content)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		name := g.declarationName(node, content, findings.Package)
		if name == "" {
			continue
		}
		block := comments.leading(node)
		if len(block) == 0 {
			continue
		}
		applyCommentBlock(findings, readCommentBlock(block, content, "//"), name, lineOf(node))
	}

	return findings, nil
}

func (g *GoScanner) packageName(root *sitter.Node, content []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "package_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			ident := child.NamedChild(j)
			if ident.Type() == "package_identifier" {
				return ident.Content(content)
			}
		}
	}
	return ""
}

func (g *GoScanner) declarationName(node *sitter.Node, content []byte, pkg string) string {
	switch node.Type() {
	case "package_clause":
		return pkg

	case "function_declaration":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			return nameNode.Content(content)
		}

	case "method_declaration":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return ""
		}
		if recv := g.receiverType(node.ChildByFieldName("receiver"), content); recv != "" {
			return recv + "." + nameNode.Content(content)
		}
		return nameNode.Content(content)

	case "type_declaration":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			spec := node.NamedChild(i)
			if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
				continue
			}
			if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(content)
			}
		}
	}
	return ""
}

// receiverType reduces "(s *Server[T])" to "Server".
func (g *GoScanner) receiverType(receiver *sitter.Node, content []byte) string {
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.NamedChildCount()); i++ {
		param := receiver.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		raw := strings.TrimLeft(typeNode.Content(content), "*")
		if idx := strings.IndexByte(raw, '['); idx != -1 {
			raw = raw[:idx]
		}
		return strings.TrimSpace(raw)
	}
	return ""
}
