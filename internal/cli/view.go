package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// DefaultViewFile is what `citetrace view` opens without an argument.
const DefaultViewFile = "references.md"

func RunView(cmd *cobra.Command, args []string) error {
	path := DefaultViewFile
	if len(args) > 0 {
		path = args[0]
	}
	width := 100
	if cmd.Flags().Lookup("width") != nil {
		if value, err := cmd.Flags().GetInt("width"); err == nil && value > 0 {
			width = value
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	rendered, err := renderMarkdown(string(data), width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return err
}

func renderMarkdown(markdown string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
