package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/citetrace/citetrace/internal/config"
	"github.com/citetrace/citetrace/internal/logging"
	"github.com/citetrace/citetrace/internal/report"
	"github.com/citetrace/citetrace/internal/resolve"
	"github.com/citetrace/citetrace/internal/textenc"
	"github.com/citetrace/citetrace/internal/tracing"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrUsage marks configuration errors detected before any scanning or
// execution starts.
var ErrUsage = errors.New("invalid usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// settings is everything a reporting command needs, resolved from flags,
// environment and config files.
type settings struct {
	cfg      config.Config
	logger   *slog.Logger
	writer   report.Writer
	decode   func([]byte) ([]byte, error)
	tracer   *tracing.Provider
	resolver *resolve.Resolver
}

// configFlags are bound to config keys of the same name.
var configFlags = []string{"format", "output", "encoding", "debug"}

// loadSettings reads the command's flags into a fresh viper instance, loads
// config files on top and validates the result.
func loadSettings(cmd *cobra.Command, stderr io.Writer) (*settings, error) {
	v := viper.New()
	for _, name := range configFlags {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(name, flag); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	configPath, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, usageError("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError("%v", err)
	}

	logger := logging.New(logging.Level(cfg.Debug), cfg.LogFormat, stderr)
	if cfg.File != "" {
		logger.Debug("loaded config", "path", cfg.File)
	}

	writer, err := report.Lookup(strings.TrimSpace(cfg.Format))
	if err != nil {
		return nil, usageError("%v", err)
	}
	decode, err := textenc.Decoder(cfg.Encoding)
	if err != nil {
		return nil, usageError("%v", err)
	}

	bindings := resolve.NewBindings()
	for _, source := range cfg.Sources {
		if err := bindings.Register(source.Package, source.Path); err != nil {
			return nil, usageError("%v", err)
		}
	}

	tracer, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, usageError("%v", err)
	}

	return &settings{
		cfg:    cfg,
		logger: logger,
		writer: writer,
		decode: decode,
		tracer: tracer,
		resolver: resolve.NewResolver(resolve.Options{
			Bindings: bindings,
			Fetcher:  resolve.NewHTTPFetcher(cfg.DOI.Endpoint, cfg.DOI.Timeout),
			CacheTTL: cfg.Cache.TTL,
			Logger:   logger,
		}),
	}, nil
}

// close flushes traces.
func (s *settings) close(ctx context.Context) {
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.logger.Warn("failed to flush traces", "error", err)
	}
}

// outputPath returns where a file writer should write for target: the
// configured output, or "references" next to the target.
func (s *settings) outputPath(target string) (string, error) {
	base := strings.TrimSpace(s.cfg.Output)
	if base != "" {
		if err := report.ValidateOutput(base); err != nil {
			return "", usageError("%v", err)
		}
	}
	if s.writer.Extension() == "" {
		return "", nil
	}
	if base == "" {
		dir := target
		if info, err := os.Stat(target); err == nil && !info.IsDir() {
			dir = filepath.Dir(target)
		}
		base = filepath.Join(dir, "references")
	}
	path := report.OutputPath(base, s.writer)
	if err := report.ValidateOutput(path); err != nil {
		return "", usageError("%v", err)
	}
	return path, nil
}

// colorEnabled applies terminal.color: "auto" styles only when stdout is a
// terminal.
func (s *settings) colorEnabled() bool {
	switch s.cfg.Terminal.Color {
	case "always":
		return true
	case "never":
		return false
	}
	return isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}

func (s *settings) reportOptions(output string) report.Options {
	return report.Options{
		Output:   output,
		Resolver: s.resolver,
		Color:    s.colorEnabled(),
	}
}
