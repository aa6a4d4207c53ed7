package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/citetrace/citetrace/internal/config"
	"github.com/citetrace/citetrace/internal/fileutil"
	"github.com/citetrace/citetrace/internal/ignore"
	"github.com/citetrace/citetrace/internal/languages"
	"github.com/citetrace/citetrace/internal/notebook"
	"github.com/spf13/cobra"
)

// doctorTools are the external programs some commands shell out to.
var doctorTools = map[string]string{
	"go":  "citetrace run on Go targets",
	"git": "citetrace install-hook",
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

func RunDoctor(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	s, err := loadSettings(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close(commandContext(cmd))

	summary := DoctorSummary{
		Mode:       "doctor",
		RootPath:   rootPath,
		ConfigFile: s.cfg.File,
		Extensions: append(languages.NewDefaultRegistry().SupportedExtensions(), notebook.Extension),
		Sources:    make(map[string]bool, len(s.cfg.Sources)),
		Tools:      make(map[string]bool, len(doctorTools)),
	}
	sort.Strings(summary.Extensions)

	if summary.ConfigFile == "" {
		summary.Missing = append(summary.Missing, config.FileName)
		summary.Suggestions = append(summary.Suggestions, "run citetrace init")
	}
	if _, err := os.Stat(filepath.Join(rootPath, ignore.FileName)); err == nil {
		summary.IgnoreFile = true
	}

	for _, source := range s.cfg.Sources {
		_, err := os.Stat(source.Path)
		summary.Sources[source.Package] = err == nil
		if err != nil {
			// A missing file is created by the first DOI lookup, but bibtex
			// keys cannot resolve until it exists.
			summary.Missing = append(summary.Missing, fmt.Sprintf("bibliography %s for %s", source.Path, source.Package))
		}
	}

	for tool, usedBy := range doctorTools {
		_, err := lookPath(tool)
		summary.Tools[tool] = err == nil
		if err != nil {
			summary.Suggestions = append(summary.Suggestions, fmt.Sprintf("install %s to use %s", tool, usedBy))
		}
	}

	summary.Missing = fileutil.DedupeStrings(summary.Missing)
	sort.Strings(summary.Missing)
	summary.Suggestions = fileutil.DedupeStrings(summary.Suggestions)
	sort.Strings(summary.Suggestions)
	summary.Healthy = len(summary.Missing) == 0

	out := cmd.OutOrStdout()
	if asJSON {
		return fileutil.PrintJSON(out, summary)
	}

	status := "issues"
	if summary.Healthy {
		status = "ok"
	}
	fmt.Fprintf(out, "doctor: %s\n", status)
	configFile := summary.ConfigFile
	if configFile == "" {
		configFile = "none"
	}
	fmt.Fprintf(out, "config: %s ignore_file=%t\n", configFile, summary.IgnoreFile)
	fmt.Fprintf(out, "languages: %s\n", strings.Join(summary.Extensions, " "))
	if len(summary.Sources) > 0 {
		packages := make([]string, 0, len(summary.Sources))
		for pkg, ok := range summary.Sources {
			packages = append(packages, fmt.Sprintf("%s=%t", pkg, ok))
		}
		sort.Strings(packages)
		fmt.Fprintf(out, "sources: %s\n", SummarizePaths(packages, 8))
	}
	fmt.Fprintf(out, "tools: go=%t git=%t\n", summary.Tools["go"], summary.Tools["git"])
	if len(summary.Missing) > 0 {
		fmt.Fprintf(out, "missing (%d): %s\n", len(summary.Missing), strings.Join(summary.Missing, ", "))
	}
	for _, suggestion := range summary.Suggestions {
		fmt.Fprintf(out, "next: %s\n", suggestion)
	}
	return nil
}
