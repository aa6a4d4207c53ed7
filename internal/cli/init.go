package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/citetrace/citetrace/internal/config"
	"github.com/citetrace/citetrace/internal/fileutil"
	"github.com/citetrace/citetrace/internal/ignore"
	"github.com/spf13/cobra"
)

const defaultIgnoreFile = `# Paths citetrace static never scans, in .gitignore syntax.
# VCS metadata, vendored dependencies and virtualenvs are skipped already.
testdata/
`

// RunInit writes a starter config and ignore file into the working
// directory, keeping files that already exist.
func RunInit(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	configPath := filepath.Join(rootPath, config.FileName)
	wrote, err := config.WriteDefaultConfig(configPath)
	if err != nil {
		return err
	}
	created := make([]string, 0, 2)
	if wrote {
		created = append(created, config.FileName)
	}

	ignorePath := filepath.Join(rootPath, ignore.FileName)
	existed := fileExists(ignorePath)
	if err := fileutil.WriteIfMissing(ignorePath, []byte(defaultIgnoreFile), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ignore.FileName, err)
	}
	if !existed {
		created = append(created, ignore.FileName)
	}

	if len(created) == 0 {
		fmt.Fprintf(out, "Already initialized in %s\n", rootPath)
		return nil
	}
	fmt.Fprintf(out, "Initialized citetrace in %s (%s)\n", rootPath, strings.Join(created, ", "))
	return nil
}
