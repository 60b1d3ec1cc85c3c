package crossref

import (
	"errors"
	"fmt"
)

// Sentinel errors for DOI lookups.
var (
	ErrNotFound    = errors.New("crossref: DOI not found")
	ErrRateLimited = errors.New("crossref: rate limited by server")
	ErrBadRequest  = errors.New("crossref: bad request")
	ErrServer      = errors.New("crossref: server error")
	ErrInvalidDOI  = errors.New("crossref: invalid DOI")
	ErrMalformed   = errors.New("crossref: malformed metadata")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // "fetch" or "parse"
	DOI string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("crossref %s [%s]: %v", e.Op, e.DOI, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, doi string, err error) error {
	return &Error{Op: op, DOI: doi, Err: err}
}
