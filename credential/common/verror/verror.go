// Package verror defines the error taxonomy shared by the credential
// validation pipeline, the resolver and the status mechanisms.
package verror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a validation failure so callers can dispatch on the
// failure class without string matching.
type Kind int

const (
	// KindStructural covers malformed tokens, missing required fields,
	// wrong status types and ambiguous domain linkage.
	KindStructural Kind = iota + 1
	// KindResolution covers unsupported DID methods and handler failures.
	KindResolution
	// KindSignature covers verification failures and missing matching keys.
	KindSignature
	// KindTemporal covers expired and dormant (not yet valid) documents.
	KindTemporal
	// KindRevocation covers revoked credentials and status decode failures.
	KindRevocation
	// KindConfiguration covers invalid construction input such as a too
	// small status list or a malformed service id.
	KindConfiguration
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindResolution:
		return "resolution"
	case KindSignature:
		return "signature"
	case KindTemporal:
		return "temporal"
	case KindRevocation:
		return "revocation"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a classified validation error. It wraps an optional cause so
// the underlying failure stays reachable through errors.Is/As.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New creates a classified error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error that preserves the underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

// Kind returns the failure class.
func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}

	return e.msg
}

// Unwrap exposes the cause for errors.Is/As traversal.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the Kind of err, traversing wrapped errors. It returns
// 0 when err carries no classification.
func KindOf(err error) Kind {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.kind
	}

	return 0
}

// Sentinel errors for the named failure conditions the pipeline reports.
// They are wrapped by classified errors, so both errors.Is and KindOf work.
var (
	// ErrExpired reports a document whose expiration date has passed.
	ErrExpired = errors.New("expired")
	// ErrDormant reports a document whose issuance date is in the future.
	ErrDormant = errors.New("dormant")
	// ErrRevoked reports a credential flagged by its status mechanism.
	ErrRevoked = errors.New("revoked")
	// ErrSuspended reports a credential flagged by a suspension-purpose
	// status list.
	ErrSuspended = errors.New("suspended")
	// ErrUnknownStatusType reports a status descriptor whose type tag
	// matches no registered mechanism. Distinct from a decode failure on
	// a recognized type so callers can tolerate it without masking
	// corruption.
	ErrUnknownStatusType = errors.New("unknown status type")
	// ErrNonTransferable reports a nonTransferable credential presented
	// by a holder that is not its subject.
	ErrNonTransferable = errors.New("non-transferable credential presented by non-subject holder")
	// ErrDeactivated reports a deactivated DID document.
	ErrDeactivated = errors.New("deactivated")
)

// Deficiency names a failure condition a relying party may explicitly
// tolerate during validation.
type Deficiency string

const (
	DeficiencyExpired            Deficiency = "expired"
	DeficiencyDormant            Deficiency = "dormant"
	DeficiencyDeactivatedSubject Deficiency = "deactivated-subject"
	DeficiencyUnknownStatusType  Deficiency = "unknown-status-type"
)

// DeficiencyOf maps err to the deficiency a caller could tolerate, or ""
// when the failure is not tolerable.
func DeficiencyOf(err error) Deficiency {
	switch {
	case errors.Is(err, ErrExpired):
		return DeficiencyExpired
	case errors.Is(err, ErrDormant):
		return DeficiencyDormant
	case errors.Is(err, ErrDeactivated):
		return DeficiencyDeactivatedSubject
	case errors.Is(err, ErrUnknownStatusType):
		return DeficiencyUnknownStatusType
	default:
		return ""
	}
}

// Entry is one failing outcome inside a Compound error. Position is the
// index of the credential inside a batch, or -1 when the entry is not
// positional. Check names the failing sub-check.
type Entry struct {
	Position int
	Check    string
	Err      error
}

func (e Entry) String() string {
	if e.Position >= 0 {
		return fmt.Sprintf("[%d] %s: %v", e.Position, e.Check, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Check, e.Err)
}

// Compound aggregates the failing outcomes of a validation run in input
// order. It is returned under collect-all policy; under fail-fast it
// carries exactly one entry.
type Compound struct {
	// Op describes the validation that failed, e.g. "validate presentation".
	Op      string
	Entries []Entry
}

// NewCompound creates an empty compound error for the given operation.
func NewCompound(op string) *Compound {
	return &Compound{Op: op}
}

// Add appends a failing outcome.
func (c *Compound) Add(position int, check string, err error) {
	c.Entries = append(c.Entries, Entry{Position: position, Check: check, Err: err})
}

// HasErrors reports whether any outcome failed.
func (c *Compound) HasErrors() bool {
	return len(c.Entries) > 0
}

// ErrOrNil returns c when it holds at least one entry, nil otherwise, so
// validators can return it directly.
func (c *Compound) ErrOrNil() error {
	if c.HasErrors() {
		return c
	}

	return nil
}

// At returns the entries recorded for the given position.
func (c *Compound) At(position int) []Entry {
	var out []Entry
	for _, e := range c.Entries {
		if e.Position == position {
			out = append(out, e)
		}
	}

	return out
}

func (c *Compound) Error() string {
	msgs := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		msgs[i] = e.String()
	}

	return fmt.Sprintf("%s failed: %s", c.Op, strings.Join(msgs, "; "))
}

// Unwrap exposes every recorded error so errors.Is/As traverse the
// whole collection.
func (c *Compound) Unwrap() []error {
	errs := make([]error, len(c.Entries))
	for i, e := range c.Entries {
		errs[i] = e.Err
	}

	return errs
}
