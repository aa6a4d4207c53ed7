package resolve

import "errors"

var (
	ErrKeyNotFound         = errors.New("bibtex key not found")
	ErrSourceNotRegistered = errors.New("no bibliography source registered for package")
	ErrAlreadyRegistered   = errors.New("bibliography source already registered for package")
	ErrDOINotFound         = errors.New("DOI not found")
	ErrUnsupportedFormat   = errors.New("unsupported output format")
	ErrNoProcessor         = errors.New("no processor registered for reference kind")
)
