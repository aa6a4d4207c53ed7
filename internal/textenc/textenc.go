// Package textenc decodes source files named by a WHATWG encoding label.
package textenc

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Default is the encoding sources are assumed to be in.
const Default = "utf-8"

// Lookup resolves an encoding label such as "utf-8", "latin1" or
// "shift_jis".
func Lookup(name string) (encoding.Encoding, error) {
	label := strings.TrimSpace(name)
	if label == "" {
		label = Default
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// Decoder returns a function converting content in the named encoding to
// UTF-8. UTF-8 input only loses a leading byte order mark.
func Decoder(name string) (func([]byte) ([]byte, error), error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		enc = unicode.UTF8BOM
	}
	return func(content []byte) ([]byte, error) {
		return enc.NewDecoder().Bytes(content)
	}, nil
}
