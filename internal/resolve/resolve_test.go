package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/stretchr/testify/require"
)

const sampleBib = `@article{cesar2013,
  title = {An amazing title},
  author = {César, Jean},
  year = {2013},
  doi = {10.1000/xyz123},
}
`

const fetchedBib = `@article{Smith_2020, title={Fetched Work}, author={Smith, Ann and Doe, John}, year={2020}, doi={10.5555/fetched}}`

func writeBib(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refs.bib")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func doiServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get("Accept") != "application/x-bibtex" {
			http.Error(w, "bad accept", http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/10.5555/fetched":
			_, _ = w.Write([]byte(fetchedBib))
		case "/10.5555/soft":
			_, _ = w.Write([]byte("<html>DOI Not Found</html>"))
		case "/10.5555/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestResolver(t *testing.T, endpoint string, bindings map[string]string) *Resolver {
	t.Helper()
	b := NewBindings()
	for pkg, path := range bindings {
		require.NoError(t, b.Register(pkg, path))
	}
	return NewResolver(Options{
		Bindings: b,
		Fetcher:  NewHTTPFetcher(endpoint, time.Second),
	})
}

func TestResolve_PlainReference(t *testing.T) {
	r := newTestResolver(t, "http://127.0.0.1:0", nil)
	ctx := context.Background()

	out, err := r.Resolve(ctx, refs.Plain("Great British Roasts, 2019"), "", FormatPlain)
	require.NoError(t, err)
	require.Equal(t, "Great British Roasts, 2019", out)

	out, err = r.Resolve(ctx, refs.Plain("Great British Roasts, 2019"), "", FormatBibtex)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "@misc{ref-"), out)
	require.Contains(t, out, "note = {Great British Roasts, 2019}")

	multiline := refs.Plain("Great British Roasts,\n    2nd edition, 2019 ")
	out, err = r.Process(ctx, multiline.Tagged(), "", FormatPlain)
	require.NoError(t, err)
	require.Equal(t, multiline.Value, out)
}

func TestResolve_BibtexKey(t *testing.T) {
	path := writeBib(t, sampleBib)
	r := newTestResolver(t, "http://127.0.0.1:0", map[string]string{"example.com/kitchen": path})
	ctx := context.Background()

	out, err := r.Process(ctx, "[bibtex]cesar2013", "example.com/kitchen/recipes", FormatPlain)
	require.NoError(t, err)
	require.Equal(t, "An amazing title by Jean César (2013)", out)

	out, err = r.Resolve(ctx, refs.Bibtex("cesar2013"), "example.com/kitchen", FormatBibtex)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "@article{cesar2013,\n"), out)
	require.Contains(t, out, "  year = {2013},\n")

	_, err = r.Resolve(ctx, refs.Bibtex("missing"), "example.com/kitchen", FormatPlain)
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = r.Resolve(ctx, refs.Bibtex("cesar2013"), "unbound", FormatPlain)
	require.ErrorIs(t, err, ErrSourceNotRegistered)
}

func TestResolve_DOIFromDatabase(t *testing.T) {
	var hits int32
	server := doiServer(t, &hits)
	path := writeBib(t, sampleBib)
	r := newTestResolver(t, server.URL, map[string]string{"kitchen": path})

	out, err := r.Resolve(context.Background(), refs.DOI("10.1000/XYZ123"), "kitchen", FormatPlain)
	require.NoError(t, err)
	require.Equal(t, "An amazing title by Jean César (2013)", out)
	require.Zero(t, atomic.LoadInt32(&hits))
}

func TestResolve_DOIFetchedPersistedAndCached(t *testing.T) {
	var hits int32
	server := doiServer(t, &hits)
	path := writeBib(t, sampleBib)
	r := newTestResolver(t, server.URL, map[string]string{"kitchen": path})
	ctx := context.Background()

	out, err := r.Process(ctx, "[doi]https://doi.org/10.5555/fetched", "kitchen", FormatPlain)
	require.NoError(t, err)
	require.Equal(t, "Fetched Work by Ann Smith and John Doe (2020)", out)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "@article{Smith_2020,")
	require.True(t, strings.HasPrefix(string(content), sampleBib))

	// The bibtex rendering misses the cache but finds the appended entry.
	_, err = r.Resolve(ctx, refs.DOI("10.5555/fetched"), "kitchen", FormatBibtex)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, refs.DOI("10.5555/fetched"), "kitchen", FormatPlain)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))

	// A fresh resolver reads the persisted entry back.
	fresh := newTestResolver(t, server.URL, map[string]string{"kitchen": path})
	out, err = fresh.Resolve(ctx, refs.DOI("10.5555/fetched"), "kitchen", FormatPlain)
	require.NoError(t, err)
	require.Equal(t, "Fetched Work by Ann Smith and John Doe (2020)", out)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestResolve_DOIUnboundPackageIsNotPersisted(t *testing.T) {
	var hits int32
	server := doiServer(t, &hits)
	r := newTestResolver(t, server.URL, nil)

	out, err := r.Resolve(context.Background(), refs.DOI("10.5555/fetched"), "nowhere", FormatPlain)
	require.NoError(t, err)
	require.Equal(t, "Fetched Work by Ann Smith and John Doe (2020)", out)
}

func TestResolve_DOINotFoundIsSoft(t *testing.T) {
	var hits int32
	server := doiServer(t, &hits)
	r := newTestResolver(t, server.URL, nil)
	ctx := context.Background()

	for _, doi := range []string{"10.5555/missing", "10.5555/soft", "10.5555/broken"} {
		out, err := r.Resolve(ctx, refs.DOI(doi), "", FormatBibtex)
		require.NoError(t, err, doi)
		require.Empty(t, out, doi)
	}
}

func TestResolve_DOILookupFailureIsSoft(t *testing.T) {
	var hits int32
	server := doiServer(t, &hits)
	path := writeBib(t, sampleBib)
	r := newTestResolver(t, server.URL, map[string]string{"kitchen": path})

	out, err := r.Resolve(context.Background(), refs.DOI("10.5555/broken"), "kitchen", FormatBibtex)
	require.NoError(t, err)
	require.Empty(t, out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, sampleBib, string(data))

	unreachable := newTestResolver(t, "http://127.0.0.1:0", nil)
	out, err = unreachable.Resolve(context.Background(), refs.DOI("10.5555/fetched"), "", FormatPlain)
	require.NoError(t, err)
	require.Empty(t, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestResolver(t, server.URL, nil).Resolve(ctx, refs.DOI("10.5555/fetched"), "", FormatPlain)
	require.ErrorIs(t, err, context.Canceled)
}

func TestResolve_UnknownKindAndFormat(t *testing.T) {
	r := newTestResolver(t, "http://127.0.0.1:0", nil)
	ctx := context.Background()

	_, err := r.Process(ctx, "no tag", "", FormatPlain)
	require.Error(t, err)

	_, err = r.Resolve(ctx, refs.Plain("x"), "", Format("html"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.Resolve(ctx, refs.Reference{Kind: refs.Kind("isbn"), Value: "123"}, "", FormatPlain)
	require.ErrorIs(t, err, ErrNoProcessor)
}

func TestBindings(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.Register("example.com/kitchen", "a.bib"))
	require.NoError(t, b.Register("oven", "b.bib"))
	require.ErrorIs(t, b.Register("oven", "c.bib"), ErrAlreadyRegistered)
	require.Error(t, b.Register("  ", "d.bib"))

	cases := map[string]string{
		"example.com/kitchen":         "a.bib",
		"example.com/kitchen/recipes": "a.bib",
		"github.com/someone/oven":     "b.bib",
		"oven.tools.heat":             "b.bib",
	}
	for pkg, want := range cases {
		got, ok := b.Lookup(pkg)
		require.True(t, ok, pkg)
		require.Equal(t, want, got, pkg)
	}
	_, ok := b.Lookup("fridge")
	require.False(t, ok)
	require.Equal(t, []string{"example.com/kitchen", "oven"}, b.Packages())
}

func TestFormatAuthors(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"César, Jean":              "Jean César",
		"Ann Smith":                "Ann Smith",
		"Smith, Ann and Doe, John": "Ann Smith and John Doe",
		"A, B and C, D and {E}, F": "B A, D C and F E",
	}
	for in, want := range cases {
		require.Equal(t, want, formatAuthors(in), in)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("bibtex")
	require.NoError(t, err)
	require.Equal(t, FormatBibtex, f)
	_, err = ParseFormat("terminal")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
