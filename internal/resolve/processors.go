package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/nickng/bibtex"
)

// Format is the shape a resolved reference is rendered in.
type Format string

const (
	FormatPlain  Format = "plain"
	FormatBibtex Format = "bibtex"
)

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatPlain, FormatBibtex:
		return Format(value), nil
	}
	return "", fmt.Errorf("%w: %q (supported: plain, bibtex)", ErrUnsupportedFormat, value)
}

// Processor renders one kind of reference.
type Processor interface {
	Process(ctx context.Context, ref refs.Reference, pkg string, format Format) (string, error)
}

type plainProcessor struct{}

// Process returns plain text unchanged, or wrapped in an @misc note.
func (plainProcessor) Process(ctx context.Context, ref refs.Reference, pkg string, format Format) (string, error) {
	if format == FormatPlain {
		return ref.Value, nil
	}
	entry := bibtex.NewBibEntry("misc", miscKey(ref.Value))
	entry.AddField("note", bibtex.NewBibConst(ref.Value))
	return formatEntry(entry), nil
}

func miscKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return "ref-" + hex.EncodeToString(sum[:])[:8]
}

type bibtexProcessor struct {
	resolver *Resolver
}

func (p bibtexProcessor) Process(ctx context.Context, ref refs.Reference, pkg string, format Format) (string, error) {
	db, err := p.resolver.database(pkg)
	if err != nil {
		return "", err
	}
	entry, ok := db.findKey(ref.Value)
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrKeyNotFound, ref.Value, db.path)
	}
	return render(entry, format), nil
}

type doiProcessor struct {
	resolver *Resolver
}

// Process looks the DOI up in the package bibliography, then through the
// fetcher. A fetched entry is appended to the bibliography when the package
// is bound. A DOI found nowhere, or a lookup that fails, is a warning and
// renders empty.
func (p doiProcessor) Process(ctx context.Context, ref refs.Reference, pkg string, format Format) (string, error) {
	r := p.resolver
	bare := refs.BareDOI(ref.Value)

	db, err := r.database(pkg)
	if err != nil && !errors.Is(err, ErrSourceNotRegistered) {
		return "", err
	}
	if db != nil {
		if entry, ok := db.findDOI(bare); ok {
			return render(entry, format), nil
		}
	}

	entry, err := r.fetchDOI(ctx, bare)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, ErrDOINotFound) {
			r.logger.Warn("reference not found", "doi", bare)
			return "", nil
		}
		r.logger.Warn("reference lookup failed", "doi", bare, "error", err)
		return "", nil
	}
	if db != nil {
		if err := db.append(entry); err != nil {
			return "", err
		}
		r.logger.Debug("stored fetched reference", "doi", bare, "bibliography", db.path)
	}
	return render(entry, format), nil
}

func render(entry *bibtex.BibEntry, format Format) string {
	if format == FormatBibtex {
		return formatEntry(entry)
	}
	return summarize(entry)
}
