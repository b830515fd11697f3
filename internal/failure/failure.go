// Package failure classifies errors raised by the sync engines.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the class of a failure.
type Kind int

const (
	// Unknown is returned by KindOf for unclassified errors.
	Unknown Kind = iota
	// Transport covers network errors, non-2xx responses and undecodable bodies.
	Transport
	// Rejected means the backend answered but reported success=false.
	Rejected
	// Invalid is local input that never reaches the network.
	Invalid
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Rejected:
		return "rejected"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name. Unrecognised names decode to Unknown.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "transport":
		*k = Transport
	case "rejected":
		*k = Rejected
	case "invalid":
		*k = Invalid
	default:
		*k = Unknown
	}
	return nil
}

// Error is a classified failure of operation Op.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a failure of the given kind.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Rejectedf builds a Rejected failure with a formatted reason.
func Rejectedf(op, format string, args ...any) error {
	return &Error{Kind: Rejected, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first failure.Error in err's chain.
// Unclassified errors are treated as Transport: anything that escaped the
// transport without a verdict came from the wire.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Transport
}

// IsRecoverable reports whether err should be surfaced to the driver as a
// dismissable alert.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case Transport, Rejected:
		return true
	default:
		return false
	}
}

// Outcome labels an operation result for metrics and the activity journal.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch KindOf(err) {
	case Rejected:
		return "rejected"
	case Invalid:
		return "invalid"
	default:
		return "transport_error"
	}
}
