package cli

import (
	"fmt"
	"strings"

	"github.com/citetrace/citetrace/internal/report"
	"github.com/citetrace/citetrace/internal/textenc"
	"github.com/spf13/cobra"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string, fallback bool) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return fallback, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return fallback, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// addReportFlags registers the options shared by run and static.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", report.DefaultFormat,
		"Output format: "+strings.Join(report.Names(), "|"))
	cmd.Flags().StringP("output", "o", "", "Output path without extension (default: [target folder]/references)")
	cmd.Flags().String("encoding", textenc.Default, "Encoding of the source files")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
	cmd.Flags().Bool("json", false, "Print machine-readable run summary")
}
