package cli

import (
	"time"

	"github.com/citetrace/citetrace/internal/report"
	"github.com/citetrace/citetrace/internal/runner"
	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/spf13/cobra"
)

// newRunner is replaced in tests.
var newRunner = func(s *settings, cmd *cobra.Command) *runner.Runner {
	return &runner.Runner{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Logger: s.logger,
	}
}

func RunRun(cmd *cobra.Command, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	s, err := loadSettings(cmd, stderr)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	defer s.close(ctx)

	if len(args) == 0 {
		return usageError("run needs a target")
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	target := runner.Target{Path: args[0], Args: args[1:]}
	output, err := s.outputPath(target.Path)
	if err != nil {
		return err
	}

	started := time.Now()
	reg := refs.NewRegistry()
	result, runErr := newRunner(s, cmd).Run(ctx, target, reg)
	summary := RunSummary{
		Mode:       "run",
		Format:     s.writer.Name(),
		Target:     target.Path,
		Output:     output,
		Hits:       result.Hits,
		ExitCode:   result.ExitCode,
		Entries:    reg.Len(),
		References: len(reg.References()),
	}
	if runErr != nil {
		return runErr
	}

	summary.Rewritten, err = report.Emit(ctx, s.writer, reg, s.reportOptions(output), stdout)
	if err != nil {
		return err
	}
	summary.DurationMS = time.Since(started).Milliseconds()

	summaryOut := stdout
	if s.writer.Extension() == "" && !asJSON {
		summaryOut = stderr
	}
	return PrintRunSummary(summaryOut, summary, asJSON)
}
