package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "citetrace",
		Short: "Track the scientific references behind your code",
		Long: `citetrace records which papers, books and datasets a program relies on.

Annotate functions with citations, then either run the program and collect
the references of the code that actually executed, or scan the sources
without running them. The result is written as a terminal listing, markdown,
JSON lines, YAML or a bibtex file.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "",
		"config file (default: ./.citetrace.yaml, then ~/.config/citetrace/config.yaml)")

	runCmd := &cobra.Command{
		Use:   "run [flags] <target> [args...]",
		Short: "Run a program with reference tracking and report what it touched",
		Long: `Run executes the target with tracking enabled. Go files and packages run
through "go run"; any other path is executed directly. Arguments after the
target are passed to it unchanged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: RunRun,
	}
	runCmd.Flags().SetInterspersed(false)
	addReportFlags(runCmd)

	staticCmd := &cobra.Command{
		Use:   "static [flags] [target]",
		Short: "Scan sources for references without running them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStatic,
	}
	addReportFlags(staticCmd)
	staticCmd.Flags().Bool("docstring", false, "Also collect DOIs and citation keys from doc comments and docstrings")
	staticCmd.Flags().Bool("notebook", false, "Scan the markdown cells of a Jupyter notebook target")
	staticCmd.Flags().Bool("check", false, "Fail if the report on disk differs from a fresh scan")
	staticCmd.Flags().Bool("watch", false, "Rescan and rewrite the report whenever sources change")

	viewCmd := &cobra.Command{
		Use:   "view [file.md]",
		Short: "Render a markdown report in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunView,
	}
	viewCmd.Flags().Int("width", 100, "Word wrap width")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .citetrace.yaml and .citetraceignore",
		RunE:  RunInit,
	}

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, bibliographies and required tools",
		RunE:  RunDoctor,
	}
	doctorCmd.Flags().Bool("json", false, "Print machine-readable doctor output")

	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install a git pre-commit hook that checks the reference report",
		RunE:  RunInstallHook,
	}
	installHookCmd.Flags().String("args", "", "Extra arguments for the static check, e.g. \"--format markdown --docstring\"")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "citetrace %s\n", version)
		},
	}

	rootCmd.AddCommand(
		runCmd,
		staticCmd,
		viewCmd,
		initCmd,
		doctorCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}
