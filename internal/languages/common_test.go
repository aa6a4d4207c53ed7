package languages

import (
	"errors"
	"testing"

	"github.com/citetrace/citetrace/pkg/refs"
)

func TestParseDirective(t *testing.T) {
	c, err := parseDirective(`purpose="Roasted \"chicken\"" doi=10.1234/abc`)
	if err != nil {
		t.Fatalf("parseDirective failed: %v", err)
	}
	if c.Purpose != `Roasted "chicken"` || c.DOI != "10.1234/abc" {
		t.Fatalf("unexpected citation %#v", c)
	}

	c, err = parseDirective("short_purpose=`raw value` key=knuth1984")
	if err != nil {
		t.Fatalf("parseDirective failed: %v", err)
	}
	if c.Purpose != "raw value" || c.BibKey != "knuth1984" {
		t.Fatalf("unexpected citation %#v", c)
	}

	if _, err := parseDirective(`purpose="p" text="a" doi="10.1/x"`); !errors.Is(err, refs.ErrInvalidCitation) {
		t.Fatalf("expected ErrInvalidCitation, got %v", err)
	}
	if _, err := parseDirective(`text="a"`); !errors.Is(err, refs.ErrMissingPurpose) {
		t.Fatalf("expected ErrMissingPurpose, got %v", err)
	}
	if _, err := parseDirective(`isbn="123"`); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, err := parseDirective(`purpose="unterminated`); err == nil {
		t.Fatalf("expected quoting error")
	}
	if _, err := parseDirective(""); !errors.Is(err, errEmptyDirective) {
		t.Fatalf("expected errEmptyDirective, got %v", err)
	}
}

func TestDirectiveArgs(t *testing.T) {
	cases := []struct {
		body string
		args string
		ok   bool
	}{
		{body: `citetrace:ref purpose="p"`, args: `purpose="p"`, ok: true},
		{body: ` citetrace:ref  doi=x `, args: "doi=x", ok: true},
		{body: " citetrace:refs x", ok: false},
		{body: " plain comment", ok: false},
	}
	for _, tc := range cases {
		args, ok := directiveArgs(tc.body)
		if ok != tc.ok || args != tc.args {
			t.Fatalf("%q: expected (%q, %v), got (%q, %v)", tc.body, tc.args, tc.ok, args, ok)
		}
	}
}

func TestBlockCommentLines(t *testing.T) {
	got := docText(blockCommentLines("/**\n * First line.\n *\n * Second.\n */"))
	if got != "First line.\n\nSecond." {
		t.Fatalf("unexpected doc text %q", got)
	}
}
