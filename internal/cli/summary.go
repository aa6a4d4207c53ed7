package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/citetrace/citetrace/internal/fileutil"
)

type RunSummary struct {
	Mode       string `json:"mode"`
	Format     string `json:"format,omitempty"`
	Target     string `json:"target"`
	Output     string `json:"output,omitempty"`
	Scanned    int    `json:"scanned,omitempty"`
	Annotated  int    `json:"annotated,omitempty"`
	Entries    int    `json:"entries"`
	References int    `json:"references"`
	Issues     int    `json:"issues,omitempty"`
	Hits       int    `json:"hits,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`
	Rewritten  bool   `json:"rewritten"`
	DurationMS int64  `json:"duration_ms"`
}

type DoctorSummary struct {
	Mode        string          `json:"mode"`
	RootPath    string          `json:"root_path"`
	ConfigFile  string          `json:"config_file,omitempty"`
	IgnoreFile  bool            `json:"ignore_file"`
	Healthy     bool            `json:"healthy"`
	Extensions  []string        `json:"extensions"`
	Sources     map[string]bool `json:"sources,omitempty"`
	Tools       map[string]bool `json:"tools"`
	Missing     []string        `json:"missing,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

func PrintRunSummary(w io.Writer, summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	parts := []string{fmt.Sprintf("%s:", summary.Mode)}
	if summary.Mode == "run" {
		parts = append(parts,
			fmt.Sprintf("hits=%d", summary.Hits),
			fmt.Sprintf("exit_code=%d", summary.ExitCode),
		)
	} else {
		parts = append(parts,
			fmt.Sprintf("scanned=%d", summary.Scanned),
			fmt.Sprintf("annotated=%d", summary.Annotated),
			fmt.Sprintf("issues=%d", summary.Issues),
		)
	}
	parts = append(parts,
		fmt.Sprintf("entries=%d", summary.Entries),
		fmt.Sprintf("references=%d", summary.References),
		fmt.Sprintf("duration=%dms", summary.DurationMS),
	)
	fmt.Fprintln(w, strings.Join(parts, " "))

	if summary.Output != "" {
		state := "unchanged"
		if summary.Rewritten {
			state = "written"
		}
		fmt.Fprintf(w, "output: %s (%s, %s)\n", summary.Output, summary.Format, state)
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
