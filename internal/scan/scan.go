package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/citetrace/citetrace/internal/ignore"
	"github.com/citetrace/citetrace/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// ErrTargetNotFound is returned when a scan target does not exist.
var ErrTargetNotFound = errors.New("target not found")

// Scanner recognizes annotation syntax and doc blocks for one language.
type Scanner interface {
	// Language returns the language name (e.g., "go", "python")
	Language() string

	// Extensions returns file extensions this scanner handles
	Extensions() []string

	// Scan extracts annotations and doc blocks from source code
	Scan(filename string, content []byte) (*FileFindings, error)
}

// Decoder converts raw file bytes to UTF-8 before scanning.
type Decoder func([]byte) ([]byte, error)

// Registry holds all registered language scanners
type Registry struct {
	scanners  map[string]Scanner // language name -> scanner
	extToLang map[string]string  // extension -> language name
	decode    Decoder
}

// NewRegistry creates a new scanner registry
func NewRegistry() *Registry {
	return &Registry{
		scanners:  make(map[string]Scanner),
		extToLang: make(map[string]string),
	}
}

// Register adds a language scanner to the registry
func (r *Registry) Register(s Scanner) {
	lang := s.Language()
	r.scanners[lang] = s
	for _, ext := range s.Extensions() {
		r.extToLang[ext] = lang
	}
}

// SetDecoder installs the source decoder applied to every file read.
func (r *Registry) SetDecoder(decode Decoder) {
	r.decode = decode
}

// ScannerForFile returns the appropriate scanner for a file
func (r *Registry) ScannerForFile(filename string) (Scanner, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	scanner, ok := r.scanners[lang]
	return scanner, ok
}

// SupportedExtensions returns all supported file extensions, sorted
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ReadSource reads path and applies the registry decoder.
func (r *Registry) ReadSource(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if r.decode == nil {
		return content, nil
	}
	decoded, err := r.decode(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return decoded, nil
}

// ScanFile scans a single file. Unsupported file types yield nil findings.
func (r *Registry) ScanFile(path string) (*FileFindings, error) {
	scanner, ok := r.ScannerForFile(path)
	if !ok {
		return nil, nil
	}

	content, err := r.ReadSource(path)
	if err != nil {
		return nil, err
	}

	findings, err := scanner.Scan(path, content)
	if err != nil {
		return nil, err
	}
	findings.Path = path
	findings.Language = scanner.Language()
	findings.Hash = hashContent(content)
	for i := range findings.Issues {
		findings.Issues[i].File = path
		findings.Issues[i].Language = scanner.Language()
	}
	return findings, nil
}

// ExpandTargets resolves a scan target into files. A file yields itself; a
// directory yields every supported file below it, honoring ignore rules, in
// sorted order.
func (r *Registry) ExpandTargets(target string, ignoreRules []string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", target, err)
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	ignoreMatcher := ignore.NewMatcher(ignoreRules)
	files := make([]string, 0)
	err = filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, _ := filepath.Rel(target, path)
		if relPath != "." && ignoreMatcher.ShouldIgnore(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := r.ScannerForFile(path); ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Options tune a directory scan.
type Options struct {
	Ignore []string
	// Progress, when set, is called before each file is scanned.
	Progress func(path string, count, total int)
}

// ScanTarget scans a file or directory. Per-file failures become issues and
// the scan continues; only a missing target or a cancelled context fails it.
func (r *Registry) ScanTarget(ctx context.Context, target string, opts Options) (*Result, error) {
	ctx, span := tracing.Start(ctx, tracing.SpanScan, attribute.String(tracing.AttrTarget, target))
	result, err := r.scanTarget(ctx, target, opts)
	if result != nil {
		span.SetAttributes(attribute.Int(tracing.AttrFiles, len(result.Files)))
	}
	tracing.End(span, err)
	return result, err
}

func (r *Registry) scanTarget(ctx context.Context, target string, opts Options) (*Result, error) {
	files, err := r.ExpandTargets(target, opts.Ignore)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Target: target,
		Files:  make([]FileFindings, 0, len(files)),
		Issues: make([]Issue, 0),
	}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if opts.Progress != nil {
			opts.Progress(path, i+1, len(files))
		}

		findings, err := r.ScanFile(path)
		if err != nil {
			lang := ""
			if scanner, ok := r.ScannerForFile(path); ok {
				lang = scanner.Language()
			}
			result.Issues = append(result.Issues, Issue{
				File:     path,
				Language: lang,
				Severity: "error",
				Message:  err.Error(),
			})
			continue
		}
		if findings == nil {
			continue
		}
		result.Issues = append(result.Issues, findings.Issues...)
		result.Files = append(result.Files, *findings)
	}

	sort.SliceStable(result.Issues, func(i, j int) bool {
		if result.Issues[i].File != result.Issues[j].File {
			return result.Issues[i].File < result.Issues[j].File
		}
		return result.Issues[i].Line < result.Issues[j].Line
	})
	return result, nil
}

func hashContent(content []byte) string {
	h := sha256.New()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:16] // short hash
}
