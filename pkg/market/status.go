package market

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the lifecycle state of an asset as reported by the marketplace
// contract. Its numeric value is the wire encoding.
type Status uint8

// Known statuses in wire-encoding order.
const (
	PendingVerification Status = iota
	Rejected
	Available
	Hidden
	Reserved
	Sold
	Unavailable
)

// MaxStatus is the largest known status code.
const MaxStatus = Unavailable

var statusNames = [...]string{
	PendingVerification: "Pending Verification",
	Rejected:            "Rejected",
	Available:           "Available",
	Hidden:              "Hidden",
	Reserved:            "Reserved",
	Sold:                "Sold",
	Unavailable:         "Unavailable",
}

// transitions lists status changes that can be caused by marketplace
// operations. The machine is open, no state is terminal.
var transitions = map[Status][]Status{
	PendingVerification: {Available, Rejected},
	Available:           {Sold, Unavailable},
	Sold:                {Available, Unavailable},
	Unavailable:         {Available},
}

// StatusFromWire maps a raw status code to Status. Any value outside of the
// known vocabulary is an error wrapping ErrUnknownStatus (and thus ErrData),
// it's never coerced to some known status.
func StatusFromWire(v int64) (Status, error) {
	if v < 0 || v > int64(MaxStatus) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownStatus, v)
	}
	return Status(v), nil
}

// ParseStatus parses status name as returned by String. It's case-insensitive
// and ignores spaces, dashes and underscores, so "pending-verification" and
// "PendingVerification" are both accepted. Decimal codes are accepted too.
func ParseStatus(s string) (Status, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return StatusFromWire(n)
	}
	key := normalizeStatusName(s)
	for i, name := range statusNames {
		if normalizeStatusName(name) == key {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func normalizeStatusName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	if s.IsValid() {
		return statusNames[s]
	}
	return "Unknown(" + strconv.Itoa(int(s)) + ")"
}

// IsValid returns true if s belongs to the known vocabulary.
func (s Status) IsValid() bool {
	return s <= MaxStatus
}

// CanTransition reports whether any marketplace operation can move an asset
// from one status to another. It's informational, the client never infers
// status changes by itself.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Status) UnmarshalText(text []byte) error {
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
