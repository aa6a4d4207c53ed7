package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/citetrace/citetrace/internal/cachemanager"
	"github.com/citetrace/citetrace/internal/tracing"
	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/nickng/bibtex"
	"go.opentelemetry.io/otel/attribute"
)

// Options configure a Resolver. Zero values select defaults.
type Options struct {
	Bindings *Bindings
	Fetcher  DOIFetcher
	CacheTTL time.Duration
	Logger   *slog.Logger
}

type request struct {
	ref    refs.Reference
	pkg    string
	format Format
}

// Resolver turns references into plain text or bibtex entries, dispatching on
// the reference kind. Results are cached per reference and format; bibtex
// and DOI results are also scoped by package, since their bibliographies
// are.
type Resolver struct {
	bindings   *Bindings
	fetcher    DOIFetcher
	logger     *slog.Logger
	processors map[refs.Kind]Processor
	databases  map[string]*database
	fetched    map[string]string
	cache      *cachemanager.ReadThrough[string, request]
	ttl        time.Duration
}

func NewResolver(opts Options) *Resolver {
	if opts.Bindings == nil {
		opts.Bindings = NewBindings()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewHTTPFetcher("", 0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Resolver{
		bindings:  opts.Bindings,
		fetcher:   opts.Fetcher,
		logger:    opts.Logger,
		databases: make(map[string]*database),
		fetched:   make(map[string]string),
		ttl:       opts.CacheTTL,
	}
	r.processors = map[refs.Kind]Processor{
		refs.KindPlain:  plainProcessor{},
		refs.KindBibtex: bibtexProcessor{resolver: r},
		refs.KindDOI:    doiProcessor{resolver: r},
	}
	store := cachemanager.NewMemory[string]("references", opts.CacheTTL, cachemanager.DefaultCleanupInterval, opts.Logger)
	r.cache = cachemanager.NewReadThrough[string, request](store, r.process)
	return r
}

// Bindings returns the package to bibliography bindings.
func (r *Resolver) Bindings() *Bindings {
	return r.bindings
}

// RegisterProcessor installs or replaces the processor for kind.
func (r *Resolver) RegisterProcessor(kind refs.Kind, p Processor) {
	r.processors[kind] = p
}

// Process resolves a tagged "[kind]value" reference string.
func (r *Resolver) Process(ctx context.Context, tagged, pkg string, format Format) (string, error) {
	ref, err := refs.ParseTagged(tagged)
	if err != nil {
		return "", err
	}
	return r.Resolve(ctx, ref, pkg, format)
}

// Resolve renders ref in format, reading bibliographies bound to pkg.
func (r *Resolver) Resolve(ctx context.Context, ref refs.Reference, pkg string, format Format) (string, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return "", err
	}
	ctx, span := tracing.Start(ctx, tracing.SpanResolve,
		attribute.String(tracing.AttrRefKind, string(ref.Kind)),
		attribute.String(tracing.AttrFormat, string(format)),
	)
	req := request{ref: ref, pkg: pkg, format: format}
	out, err := r.cache.Get(ctx, cacheKey(req), req, r.ttl)
	tracing.End(span, err)
	return out, err
}

// Reset drops cached results and loaded bibliographies, so the next lookup
// rereads files.
func (r *Resolver) Reset() {
	r.databases = make(map[string]*database)
	r.cache.Flush()
}

func (r *Resolver) process(ctx context.Context, req request) (string, error) {
	processor, ok := r.processors[req.ref.Kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoProcessor, req.ref.Kind)
	}
	return processor.Process(ctx, req.ref, req.pkg, req.format)
}

func cacheKey(req request) string {
	parts := []string{string(req.format), req.ref.Tagged()}
	if req.ref.Kind != refs.KindPlain {
		parts = append(parts, req.pkg)
	}
	return strings.Join(parts, "\x00")
}

// database returns the bibliography bound to pkg, loading it on first use.
func (r *Resolver) database(pkg string) (*database, error) {
	path, ok := r.bindings.Lookup(pkg)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotRegistered, pkg)
	}
	if db, ok := r.databases[path]; ok {
		return db, nil
	}
	db, err := loadDatabase(path)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("loaded bibliography", "package", pkg, "path", path, "entries", len(db.bib.Entries))
	r.databases[path] = db
	return db, nil
}

// fetchDOI asks the fetcher once per DOI per process.
func (r *Resolver) fetchDOI(ctx context.Context, doi string) (*bibtex.BibEntry, error) {
	text, ok := r.fetched[doi]
	if !ok {
		var err error
		text, err = r.fetcher.Fetch(ctx, doi)
		if err != nil {
			return nil, err
		}
		r.fetched[doi] = text
	}

	entry, err := parseEntry(text)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("DOI %s returned an unreadable entry", doi), err)
	}
	if fieldValue(entry, "doi") == "" {
		entry.AddField("doi", bibtex.NewBibConst(doi))
	}
	return entry, nil
}
