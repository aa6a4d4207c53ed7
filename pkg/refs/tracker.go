package refs

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Environment variables the runner sets on a tracked target.
const (
	EnvTracking = "CITETRACE_TRACKING"
	EnvHits     = "CITETRACE_HITS"
)

// Tracker is the context object for one analysis run: the registry markers
// record into and the flag that turns recording on. Pass it explicitly to the
// code being annotated.
type Tracker struct {
	registry *Registry
	enabled  bool
	sink     *HitWriter
	closer   io.Closer
}

// NewTracker creates a tracker with an empty registry and tracking disabled.
func NewTracker() *Tracker {
	return &Tracker{registry: NewRegistry()}
}

// NewTrackerFromEnv creates a tracker configured by the runner. Tracking is
// enabled when CITETRACE_TRACKING is truthy; when CITETRACE_HITS names a file,
// every recorded hit is appended there as it happens, so hits survive an
// os.Exit in the target.
func NewTrackerFromEnv() (*Tracker, error) {
	t := NewTracker()
	if raw := strings.TrimSpace(os.Getenv(EnvTracking)); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvTracking, raw, err)
		}
		t.enabled = enabled
	}

	path := strings.TrimSpace(os.Getenv(EnvHits))
	if path == "" {
		return t, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open hits file: %w", err)
	}
	t.sink = NewHitWriter(f)
	t.closer = f
	return t, nil
}

// Registry returns the registry hits are recorded into.
func (t *Tracker) Registry() *Registry {
	return t.registry
}

// Enable turns tracking on or off.
func (t *Tracker) Enable(enabled bool) {
	t.enabled = enabled
}

func (t *Tracker) Enabled() bool {
	return t.enabled
}

// SetSink streams every newly recorded hit to w.
func (t *Tracker) SetSink(w io.Writer) {
	if w == nil {
		t.sink = nil
		return
	}
	t.sink = NewHitWriter(w)
}

// Reset clears the registry and disables tracking.
func (t *Tracker) Reset() {
	t.registry.Clear()
	t.enabled = false
}

// Close releases the hits file opened by NewTrackerFromEnv.
func (t *Tracker) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	t.sink = nil
	return err
}

func (t *Tracker) record(loc Location, purpose string, ref Reference) {
	if !t.registry.Add(loc, purpose, ref) {
		return
	}
	if t.sink != nil {
		// The sink is best effort; the registry already holds the hit.
		_ = t.sink.Write(Hit{Location: loc, Purpose: purpose, Reference: ref})
	}
}
