package atecccert

import "errors"

// ErrMalformed is returned for input that is not valid DER for the expected
// structure.
var ErrMalformed = errors.New("atecccert: malformed input")

// SyntaxError names the field that could not be parsed.
type SyntaxError struct {
	Field string
}

func (e *SyntaxError) Error() string {
	return "atecccert: malformed " + e.Field
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformed
}

func malformed(field string) error {
	return &SyntaxError{Field: field}
}
