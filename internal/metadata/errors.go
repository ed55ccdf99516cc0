package metadata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRecordNotFound signals that no record exists for the key.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNoRecords is returned when statistics are requested over an empty table.
	ErrNoRecords = errors.New("no records")
	// ErrInvalidKey signals an identifier that cannot be percent-decoded or is unusable.
	ErrInvalidKey = errors.New("invalid object key")
)

// Kind classifies handler failures so callers can choose a response or retry policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindUpstream
	KindNotFound
	KindEmpty
	KindInvalidKey
)

func (k Kind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindNotFound:
		return "not_found"
	case KindEmpty:
		return "empty"
	case KindInvalidKey:
		return "invalid_key"
	default:
		return "unknown"
	}
}

// Error carries the failing operation and the key/container it was working on.
type Error struct {
	Kind      Kind
	Op        string
	Key       string
	Container string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	if e.Container != "" {
		fmt.Fprintf(&b, " in %q", e.Container)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
