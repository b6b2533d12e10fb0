package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig       Kind = "config"
	KindFetch        Kind = "fetch"
	KindDownload     Kind = "download"
	KindUpload       Kind = "upload"
	KindPostCreation Kind = "post_creation"
	KindStorage      Kind = "storage"
)

// Error is a run failure tagged with the step that produced it.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.URL != "" {
		msg = fmt.Sprintf("%s %s", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func WithURL(kind Kind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
