package vc

import (
	"time"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

// StatusPolicy selects whether the validator evaluates credential
// status descriptors.
type StatusPolicy int

const (
	// StatusCheckStrict evaluates every status descriptor and fails on
	// revocation, suspension, unknown types and corrupt status data.
	StatusCheckStrict StatusPolicy = iota
	// StatusCheckSkip ignores status descriptors entirely.
	StatusCheckSkip
)

// ValidationOptions configures a validation run. It is built once from
// its functional options and never mutated by the pipeline.
type ValidationOptions struct {
	expectedIssuer string
	latestIssuance time.Time
	earliestExpiry time.Time
	statusPolicy   StatusPolicy
	collectAll     bool
	tolerated      map[verror.Deficiency]bool
	validateSchema bool
	schemaLoader   SchemaLoaderFunc
	checkSubjects  bool
}

// Option adjusts a validation run.
type Option func(*ValidationOptions)

func newValidationOptions(opts ...Option) *ValidationOptions {
	options := &ValidationOptions{
		tolerated: make(map[verror.Deficiency]bool),
	}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithExpectedIssuer requires the credential's issuer to equal the
// given DID.
func WithExpectedIssuer(issuer string) Option {
	return func(o *ValidationOptions) {
		o.expectedIssuer = issuer
	}
}

// WithLatestIssuance overrides the upper bound on the issuance date.
// Defaults to the time of validation.
func WithLatestIssuance(t time.Time) Option {
	return func(o *ValidationOptions) {
		o.latestIssuance = t
	}
}

// WithEarliestExpiry overrides the lower bound on the expiration date.
// Defaults to the time of validation.
func WithEarliestExpiry(t time.Time) Option {
	return func(o *ValidationOptions) {
		o.earliestExpiry = t
	}
}

// WithStatusPolicy selects the status checking policy.
func WithStatusPolicy(policy StatusPolicy) Option {
	return func(o *ValidationOptions) {
		o.statusPolicy = policy
	}
}

// WithCollectAll runs every check and returns a compound error listing
// all failures, instead of stopping at the first.
func WithCollectAll() Option {
	return func(o *ValidationOptions) {
		o.collectAll = true
	}
}

// WithToleratedDeficiencies names failure conditions the caller
// accepts. A tolerated failure is dropped from the result instead of
// failing the run.
func WithToleratedDeficiencies(deficiencies ...verror.Deficiency) Option {
	return func(o *ValidationOptions) {
		for _, d := range deficiencies {
			o.tolerated[d] = true
		}
	}
}

// WithSchemaValidation checks the credential body against every schema
// it declares.
func WithSchemaValidation() Option {
	return func(o *ValidationOptions) {
		o.validateSchema = true
	}
}

// WithSchemaLoader substitutes the loader used to dereference schema
// ids. Implies WithSchemaValidation.
func WithSchemaLoader(load SchemaLoaderFunc) Option {
	return func(o *ValidationOptions) {
		o.validateSchema = true
		o.schemaLoader = load
	}
}

// WithSubjectActivationCheck resolves each subject DID and fails when
// its document is deactivated.
func WithSubjectActivationCheck() Option {
	return func(o *ValidationOptions) {
		o.checkSubjects = true
	}
}

func (o *ValidationOptions) latestIssuanceOr(now time.Time) time.Time {
	if o.latestIssuance.IsZero() {
		return now
	}

	return o.latestIssuance
}

func (o *ValidationOptions) earliestExpiryOr(now time.Time) time.Time {
	if o.earliestExpiry.IsZero() {
		return now
	}

	return o.earliestExpiry
}
