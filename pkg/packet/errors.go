// Package packet holds what the format-specific packet views share: the
// error kinds raised while constructing or mutating a view.
package packet

import (
	"errors"
	"fmt"
)

// Kind classifies a packet error.
type Kind int

const (
	// KindInvalidFormat means the buffer is too short for the layout its own
	// header fields describe, or a supplied value does not fit its field.
	KindInvalidFormat Kind = iota + 1
	// KindChecksum is reserved for checksum mismatches. Verification in this
	// module reports mismatches as a bool, so nothing raises it today.
	KindChecksum
)

func (k Kind) String() string {
	switch k {
	case KindInvalidFormat:
		return "invalid format"
	case KindChecksum:
		return "checksum"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is.
var (
	ErrInvalidFormat = &Error{Kind: KindInvalidFormat}
	ErrChecksum      = &Error{Kind: KindChecksum}
)

// Error is returned by the packet views.
type Error struct {
	Kind  Kind
	Layer string // "ethernet", "arp", "icmp", "ipv4"
	Field string // optional field name
	Need  int
	Have  int
}

func (e *Error) Error() string {
	if e.Layer == "" {
		return "packet: " + e.Kind.String()
	}
	msg := fmt.Sprintf("%s: %s", e.Layer, e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Need > 0 || e.Have > 0 {
		msg += fmt.Sprintf(": need %d bytes, have %d", e.Need, e.Have)
	}
	return msg
}

// Is matches any *Error of the same Kind, so callers can test against the
// sentinels without caring about layer details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Short reports a buffer of have bytes where the layer needs at least need.
func Short(layer string, need, have int) error {
	return &Error{Kind: KindInvalidFormat, Layer: layer, Need: need, Have: have}
}

// Mismatch reports a value of have bytes written to a field of need bytes.
func Mismatch(layer, field string, need, have int) error {
	return &Error{Kind: KindInvalidFormat, Layer: layer, Field: field, Need: need, Have: have}
}

// Invalid reports a header field whose value makes the layout impossible.
func Invalid(layer, field string) error {
	return &Error{Kind: KindInvalidFormat, Layer: layer, Field: field}
}
