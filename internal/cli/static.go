package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/citetrace/citetrace/internal/docrefs"
	"github.com/citetrace/citetrace/internal/fileutil"
	"github.com/citetrace/citetrace/internal/ignore"
	"github.com/citetrace/citetrace/internal/languages"
	"github.com/citetrace/citetrace/internal/notebook"
	"github.com/citetrace/citetrace/internal/report"
	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/internal/watch"
	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/spf13/cobra"
)

// staticJob is one configured static scan. Watch mode reruns it.
type staticJob struct {
	s         *settings
	target    string
	docstring bool
	notebook  bool
	check     bool
	asJSON    bool
	registry  *scan.Registry
	ignore    []string
	output    string
	hashes    map[string]string
	stdout    io.Writer
	stderr    io.Writer
}

func RunStatic(cmd *cobra.Command, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	s, err := loadSettings(cmd, stderr)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	defer s.close(ctx)

	job, err := newStaticJob(cmd, args, s, stdout, stderr)
	if err != nil {
		return err
	}
	watchMode, err := OptionalBoolFlag(cmd, "watch", false)
	if err != nil {
		return err
	}
	if watchMode && job.check {
		return usageError("--watch and --check cannot be combined")
	}

	summary, err := job.run(ctx)
	if err != nil {
		return err
	}
	if err := PrintRunSummary(job.summaryWriter(), summary, job.asJSON); err != nil {
		return err
	}
	if !watchMode {
		return nil
	}
	return job.watch(ctx)
}

func newStaticJob(cmd *cobra.Command, args []string, s *settings, stdout, stderr io.Writer) (*staticJob, error) {
	job := &staticJob{s: s, target: ".", stdout: stdout, stderr: stderr}
	if len(args) > 0 {
		job.target = args[0]
	}

	var err error
	if job.docstring, err = OptionalBoolFlag(cmd, "docstring", false); err != nil {
		return nil, err
	}
	if job.notebook, err = OptionalBoolFlag(cmd, "notebook", false); err != nil {
		return nil, err
	}
	if job.check, err = OptionalBoolFlag(cmd, "check", false); err != nil {
		return nil, err
	}
	if job.asJSON, err = OptionalBoolFlag(cmd, "json", false); err != nil {
		return nil, err
	}

	if job.notebook && !strings.EqualFold(filepath.Ext(job.target), notebook.Extension) {
		return nil, usageError("--notebook requires a %s target, got %s", notebook.Extension, job.target)
	}
	if job.check && s.writer.Extension() == "" {
		return nil, usageError("--check needs a file format, not %s", s.writer.Name())
	}
	if _, err := os.Stat(job.target); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", scan.ErrTargetNotFound, job.target)
		}
		return nil, fmt.Errorf("failed to inspect %s: %w", job.target, err)
	}

	if job.notebook {
		job.registry = scan.NewRegistry()
		job.registry.Register(notebook.NewScanner())
	} else {
		job.registry = languages.NewDefaultRegistry()
	}
	job.registry.SetDecoder(job.s.decode)

	root := job.target
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}
	rules, err := ignore.LoadRules(root)
	if err != nil {
		return nil, err
	}
	job.ignore = append(rules, s.cfg.Ignore...)

	if job.output, err = s.outputPath(job.target); err != nil {
		return nil, err
	}
	return job, nil
}

// run scans, fills a fresh registry and writes or checks the report.
func (j *staticJob) run(ctx context.Context) (RunSummary, error) {
	started := time.Now()
	summary := RunSummary{
		Mode:   "static",
		Format: j.s.writer.Name(),
		Target: j.target,
		Output: j.output,
	}

	progress := newScanProgress("scanning", j.asJSON)
	result, err := j.registry.ScanTarget(ctx, j.target, scan.Options{
		Ignore:   j.ignore,
		Progress: progress.Update,
	})
	if err != nil {
		return summary, err
	}
	progress.Done(len(result.Files))

	for _, issue := range result.Issues {
		j.s.logger.Warn(issue.Message, "file", issue.File, "line", issue.Line, "severity", issue.Severity)
	}

	reg := refs.NewRegistry()
	if !j.notebook {
		scan.Populate(reg, result)
	}
	if j.docstring || j.notebook {
		docrefs.Populate(reg, result)
	}

	summary.Scanned = len(result.Files)
	summary.Annotated = result.Annotated()
	summary.Entries = reg.Len()
	summary.References = len(reg.References())
	summary.Issues = len(result.Issues)

	if j.check {
		err = j.checkReport(ctx, reg)
	} else {
		summary.Rewritten, err = report.Emit(ctx, j.s.writer, reg, j.s.reportOptions(j.output), j.stdout)
	}
	summary.DurationMS = time.Since(started).Milliseconds()
	return summary, err
}

func (j *staticJob) checkReport(ctx context.Context, reg *refs.Registry) error {
	rendered, err := j.s.writer.Render(ctx, reg, j.s.reportOptions(j.output))
	if err != nil {
		return err
	}
	existing, err := os.ReadFile(j.output)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", j.output, err)
	}
	diff, err := report.Check(existing, rendered)
	if errors.Is(err, report.ErrStale) {
		fmt.Fprintf(j.stderr, "%s is out of date; run citetrace static to refresh it\n%s", j.output, diff)
		return fmt.Errorf("%w: %s", report.ErrStale, j.output)
	}
	return err
}

// summaryWriter keeps the summary off stdout when the report itself is
// printed there.
func (j *staticJob) summaryWriter() io.Writer {
	if j.s.writer.Extension() == "" && !j.asJSON {
		return j.stderr
	}
	return j.stdout
}

// watch reruns the job after every relevant source change until interrupted.
func (j *staticJob) watch(ctx context.Context) error {
	dirs, err := watchDirs(j.target, j.ignore)
	if err != nil {
		return err
	}

	root := j.target
	if len(dirs) > 0 {
		root = dirs[0]
	}
	matcher := ignore.NewMatcher(j.ignore)
	output, _ := filepath.Abs(j.output)

	w, err := watch.New(watch.Config{
		Dirs:   dirs,
		Logger: j.s.logger,
		Relevant: func(path string) bool {
			if abs, err := filepath.Abs(path); err == nil && abs == output {
				return false
			}
			isDir := strings.HasSuffix(path, string(os.PathSeparator))
			if rel, err := filepath.Rel(root, strings.TrimSuffix(path, string(os.PathSeparator))); err == nil && matcher.ShouldIgnore(rel, isDir) {
				return false
			}
			if isDir {
				return true
			}
			_, ok := j.registry.ScannerForFile(path)
			return ok
		},
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := j.sourcesChanged(); err != nil {
		return err
	}
	fmt.Fprintf(j.stderr, "watching %d directories; press Ctrl+C to stop\n", len(dirs))
	return watch.Run(ctx, w, j.s.logger, func(ctx context.Context) error {
		changed, err := j.sourcesChanged()
		if err != nil {
			return err
		}
		if !changed {
			j.s.logger.Debug("sources unchanged, skipping rescan")
			return nil
		}
		j.s.resolver.Reset()
		summary, err := j.run(ctx)
		if err != nil {
			return err
		}
		return PrintRunSummary(j.summaryWriter(), summary, j.asJSON)
	})
}

// sourcesChanged rehashes the scannable files of the target and reports
// whether the set or any content changed since the last call.
func (j *staticJob) sourcesChanged() (bool, error) {
	paths, err := j.registry.ExpandTargets(j.target, j.ignore)
	if err != nil {
		return false, err
	}
	hashes, err := fileutil.HashFiles(paths)
	if err != nil {
		return false, err
	}
	changed := !maps.Equal(hashes, j.hashes)
	j.hashes = hashes
	return changed, nil
}

// watchDirs lists the target directory and every directory below it that
// the ignore rules keep. A file target watches its own directory.
func watchDirs(target string, rules []string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Dir(target)}, nil
	}

	matcher := ignore.NewMatcher(rules)
	dirs := make([]string, 0)
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(target, path)
		if rel != "." && matcher.ShouldIgnore(rel, true) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}
