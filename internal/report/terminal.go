package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/citetrace/citetrace/pkg/refs"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	indexStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	purposeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type terminalWriter struct{}

func (terminalWriter) Name() string      { return "terminal" }
func (terminalWriter) Extension() string { return "" }

func (terminalWriter) Render(ctx context.Context, reg *refs.Registry, opts Options) ([]byte, error) {
	if !opts.Color {
		return []byte(reg.String()), nil
	}

	var b strings.Builder
	for _, entry := range reg.Entries() {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Referenced in:"), nameStyle.Render(entry.Name))
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Source file:"), entry.Source)
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Line:"), entry.LineLabel())
		for i := range entry.References {
			fmt.Fprintf(&b, "\t%s %s - %s\n",
				indexStyle.Render(fmt.Sprintf("[%d]", i+1)),
				purposeStyle.Render(entry.Purposes[i]),
				entry.References[i])
		}
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}
