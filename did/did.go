// Package did provides the decentralized identifier type and the DID
// Document model resolved for it.
package did

import (
	"fmt"
	"strings"
)

const scheme = "did"

// DID is a parsed decentralized identifier of the form
// did:<method>:<method-specific-id>. It is immutable once parsed and
// compares structurally.
type DID struct {
	method           string
	methodSpecificID string
}

// Parse parses a DID string. The method must be non-empty lowercase
// alphanumeric and the method-specific id must be non-empty.
func Parse(s string) (DID, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return DID{}, fmt.Errorf("invalid DID %q: expected did:<method>:<method-specific-id>", s)
	}

	if parts[0] != scheme {
		return DID{}, fmt.Errorf("invalid DID %q: scheme is not %q", s, scheme)
	}

	method := parts[1]
	if method == "" || !isValidMethodName(method) {
		return DID{}, fmt.Errorf("invalid DID %q: malformed method name", s)
	}

	if parts[2] == "" {
		return DID{}, fmt.Errorf("invalid DID %q: empty method-specific id", s)
	}

	return DID{method: method, methodSpecificID: parts[2]}, nil
}

// MustParse parses a DID string and panics on failure. Intended for
// fixed identifiers known-good at compile time.
func MustParse(s string) DID {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return d
}

// Method returns the DID method name.
func (d DID) Method() string {
	return d.method
}

// MethodSpecificID returns the method-specific identifier.
func (d DID) MethodSpecificID() string {
	return d.methodSpecificID
}

// String reassembles the canonical DID string.
func (d DID) String() string {
	return scheme + ":" + d.method + ":" + d.methodSpecificID
}

// IsZero reports whether d is the zero DID.
func (d DID) IsZero() bool {
	return d.method == "" && d.methodSpecificID == ""
}

// Equal reports structural equality.
func (d DID) Equal(other DID) bool {
	return d == other
}

func isValidMethodName(method string) bool {
	for _, r := range method {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}

	return true
}
