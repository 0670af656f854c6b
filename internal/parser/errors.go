package parser

import "fmt"

// Kind classifies parse failures.
type Kind string

const (
	KindUnsupportedType  Kind = "UNSUPPORTED_TYPE"
	KindMalformedTabular Kind = "MALFORMED_TABULAR"
)

// ParseError reports why raw upload bytes could not be normalized.
type ParseError struct {
	Kind Kind
	Ext  string
	Err  error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindUnsupportedType:
		if e.Ext == "" {
			return "unsupported file type: missing extension"
		}
		return fmt.Sprintf("unsupported file type: %s", e.Ext)
	default:
		return fmt.Sprintf("error reading %s file: %v", e.Ext, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

func unsupported(ext string) error {
	return &ParseError{Kind: KindUnsupportedType, Ext: ext}
}

func malformed(ext string, err error) error {
	return &ParseError{Kind: KindMalformedTabular, Ext: ext, Err: err}
}
