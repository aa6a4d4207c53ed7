package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/citetrace/citetrace/internal/config"
	"github.com/citetrace/citetrace/internal/fileutil"
	"github.com/citetrace/citetrace/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	HookStart = "# >>> citetrace check hook >>>"
	HookEnd   = "# <<< citetrace check hook <<<"
)

func RunInstallHook(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	staticArgs, err := OptionalStringFlag(cmd, "args")
	if err != nil {
		return err
	}

	repoRoot, gitDir, err := ResolveGitPaths(rootPath)
	if err != nil {
		return err
	}

	configFormat, err := hookConfigFormat(cmd, repoRoot)
	if err != nil {
		return err
	}
	staticArgs, err = CheckableHookArgs(staticArgs, configFormat)
	if err != nil {
		return err
	}

	hookPath := filepath.Join(gitDir, "hooks", "pre-commit")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0755); err != nil {
		return fmt.Errorf("failed to create hook directory: %w", err)
	}

	existing := ""
	if data, err := os.ReadFile(hookPath); err == nil {
		existing = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing hook: %w", err)
	}

	updated := UpsertCitetraceHook(existing, repoRoot, staticArgs)
	if err := os.WriteFile(hookPath, []byte(updated), 0755); err != nil {
		return fmt.Errorf("failed to write hook: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed pre-commit hook at %s\n", hookPath)
	return nil
}

// hookFormat is added to the hook's check when nothing names a file format.
const hookFormat = "markdown"

// hookConfigFormat is the format the hook's static run reads from the config
// at the repository root.
func hookConfigFormat(cmd *cobra.Command, repoRoot string) (string, error) {
	configPath, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return "", err
	}
	if configPath == "" {
		if candidate := filepath.Join(repoRoot, config.FileName); fileExists(candidate) {
			configPath = candidate
		}
	}
	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		return "", usageError("%v", err)
	}
	return cfg.Format, nil
}

// CheckableHookArgs makes sure `static --check` runs with a file format. A
// format named in staticArgs must write a file; otherwise a printing
// configFormat gets --format markdown appended.
func CheckableHookArgs(staticArgs, configFormat string) (string, error) {
	staticArgs = strings.TrimSpace(staticArgs)
	if format, ok := formatArg(strings.Fields(staticArgs)); ok {
		w, err := report.Lookup(format)
		if err != nil {
			return "", usageError("%v", err)
		}
		if w.Extension() == "" {
			return "", usageError("the pre-commit check needs a file format, not %s", w.Name())
		}
		return staticArgs, nil
	}
	if w, err := report.Lookup(strings.TrimSpace(configFormat)); err == nil && w.Extension() != "" {
		return staticArgs, nil
	}
	return strings.TrimSpace("--format " + hookFormat + " " + staticArgs), nil
}

// formatArg finds the last --format or -f value in args.
func formatArg(args []string) (string, bool) {
	format, found := "", false
	for i, arg := range args {
		switch {
		case (arg == "--format" || arg == "-f") && i+1 < len(args):
			format, found = args[i+1], true
		case strings.HasPrefix(arg, "--format="):
			format, found = strings.TrimPrefix(arg, "--format="), true
		case strings.HasPrefix(arg, "-f="):
			format, found = strings.TrimPrefix(arg, "-f="), true
		}
	}
	return format, found
}

func ResolveGitPaths(workingDir string) (repoRoot string, gitDir string, err error) {
	repoRootOut, err := exec.Command("git", "-C", workingDir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", "", fmt.Errorf("not inside a git repository")
	}

	gitDirOut, err := exec.Command("git", "-C", workingDir, "rev-parse", "--git-dir").Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve git directory: %w", err)
	}

	repoRoot = strings.TrimSpace(string(repoRootOut))
	gitDir = strings.TrimSpace(string(gitDirOut))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(repoRoot, gitDir)
	}
	return repoRoot, gitDir, nil
}

func UpsertCitetraceHook(existingHook, repoRoot, staticArgs string) string {
	block := BuildCitetraceHookBlock(repoRoot, staticArgs)

	if existingHook == "" {
		return "#!/bin/sh\n\n" + block + "\n"
	}

	start := strings.Index(existingHook, HookStart)
	end := strings.Index(existingHook, HookEnd)
	if start >= 0 && end >= start {
		end += len(HookEnd)
		updated := existingHook[:start] + block + existingHook[end:]
		return fileutil.EnsureTrailingNewline(updated)
	}

	base := fileutil.EnsureTrailingNewline(existingHook)
	if !strings.HasPrefix(base, "#!") {
		base = "#!/bin/sh\n" + base
	}
	return base + "\n" + block + "\n"
}

// BuildCitetraceHookBlock fails the commit when the committed reference
// report no longer matches the sources.
func BuildCitetraceHookBlock(repoRoot, staticArgs string) string {
	command := "citetrace static --check"
	if staticArgs = strings.TrimSpace(staticArgs); staticArgs != "" {
		command += " " + staticArgs
	}
	return fmt.Sprintf(
		"%s\nrepo_root=%q\nif command -v citetrace >/dev/null 2>&1; then\n  (cd \"$repo_root\" && %s) || exit 1\nfi\n%s",
		HookStart,
		repoRoot,
		command,
		HookEnd,
	)
}
