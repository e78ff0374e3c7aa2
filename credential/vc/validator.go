package vc

import (
	"context"
	"time"

	"golang.org/x/exp/slices"

	"github.com/iotaledger/identity.rs-sub007/credential/common/dataintegrity"
	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/credential/status"
	"github.com/iotaledger/identity.rs-sub007/did"
	"github.com/iotaledger/identity.rs-sub007/resolver"
)

// Validator runs untrusted credentials through the full validation
// pipeline: decode, issuer resolution, signature verification, temporal
// bounds, semantic structure and status evaluation.
//
// The zero fields are usable defaults: a nil Verifier falls back to the
// built-in one and the zero Status config checks embedded mechanisms.
type Validator struct {
	Resolver *resolver.Resolver
	Verifier jwt.Verifier
	Status   status.Config
}

// NewValidator creates a validator resolving issuers through res.
func NewValidator(res *resolver.Resolver) *Validator {
	return &Validator{Resolver: res, Verifier: jwt.NewDefaultVerifier()}
}

func (v *Validator) verifier() jwt.Verifier {
	if v.Verifier != nil {
		return v.Verifier
	}

	return jwt.NewDefaultVerifier()
}

// Validate decodes and fully checks a credential in either wire form.
// Under the default fail-fast policy the returned error carries the
// first failing check; under collect-all it enumerates every failure.
// The decoded credential is returned even when validation fails, as
// long as decoding itself succeeded.
func (v *Validator) Validate(ctx context.Context, raw []byte, opts ...Option) (*Credential, error) {
	options := newValidationOptions(opts...)

	cred, err := Parse(raw)
	if err != nil {
		compound := verror.NewCompound("validate credential")
		compound.Add(-1, "decode", err)

		return nil, compound
	}

	return cred, v.validateParsed(ctx, cred, options)
}

// ValidateParsed checks an already decoded credential. The vp package
// uses it to validate credentials embedded in a presentation.
func (v *Validator) ValidateParsed(ctx context.Context, cred *Credential, opts ...Option) error {
	return v.validateParsed(ctx, cred, newValidationOptions(opts...))
}

func (v *Validator) validateParsed(ctx context.Context, cred *Credential, options *ValidationOptions) error {
	run := &validationRun{
		compound: verror.NewCompound("validate credential"),
		options:  options,
	}

	issuerDoc := v.checkIssuerResolution(ctx, cred, run)
	if run.failed() {
		return run.compound
	}

	if issuerDoc != nil {
		v.checkSignature(cred, issuerDoc, run)
		if run.failed() {
			return run.compound
		}
	}

	v.checkTemporalBounds(cred, time.Now(), run)
	if run.failed() {
		return run.compound
	}

	v.checkStructure(cred, run)
	if run.failed() {
		return run.compound
	}

	if issuerDoc != nil && options.statusPolicy == StatusCheckStrict {
		v.checkStatus(ctx, cred, issuerDoc, run)
		if run.failed() {
			return run.compound
		}
	}

	if options.checkSubjects {
		v.checkSubjectActivation(ctx, cred, run)
	}

	return run.compound.ErrOrNil()
}

// validationRun accumulates failing checks, honoring the tolerance and
// collect-all settings.
type validationRun struct {
	compound *verror.Compound
	options  *ValidationOptions
}

// record registers a failing check. Tolerated deficiencies are dropped.
func (r *validationRun) record(check string, err error) {
	if err == nil {
		return
	}

	if d := verror.DeficiencyOf(err); d != "" && r.options.tolerated[d] {
		return
	}

	r.compound.Add(-1, check, err)
}

// failed reports whether the run should stop: any recorded failure
// under fail-fast, never under collect-all.
func (r *validationRun) failed() bool {
	return !r.options.collectAll && r.compound.HasErrors()
}

func (v *Validator) checkIssuerResolution(ctx context.Context, cred *Credential, run *validationRun) *did.Document {
	if cred.Contents.Issuer == "" {
		run.record("resolution", verror.New(verror.KindStructural, "credential has no issuer"))

		return nil
	}

	issuerDoc, err := v.Resolver.ResolveString(ctx, cred.Contents.Issuer)
	if err != nil {
		run.record("resolution", err)

		return nil
	}

	return issuerDoc
}

// checkSignature verifies the credential's proof against a key on the
// issuer's document: the kid-selected method for tokens, the
// verificationMethod-selected one for embedded proofs.
func (v *Validator) checkSignature(cred *Credential, issuerDoc *did.Document, run *validationRun) {
	switch {
	case cred.Token != nil:
		if len(cred.Token.Signature) == 0 {
			run.record("signature", verror.New(verror.KindSignature, "credential token is unsigned"))

			return
		}

		method, err := issuerDoc.ResolveVerificationMethod(cred.Token.Header.Kid)
		if err != nil {
			run.record("signature", verror.Wrap(verror.KindSignature,
				"no issuer key matches the token kid", err))

			return
		}

		err = v.verifier().Verify(cred.Token.Header.Alg,
			[]byte(cred.Token.SigningInput), cred.Token.Signature, method)
		if err != nil {
			run.record("signature", verror.Wrap(verror.KindSignature,
				"credential signature verification failed", err))
		}
	case cred.Proof != nil:
		method, err := issuerDoc.ResolveVerificationMethod(cred.Proof.VerificationMethod)
		if err != nil {
			run.record("signature", verror.Wrap(verror.KindSignature,
				"no issuer key matches the proof verification method", err))

			return
		}

		if err := dataintegrity.VerifyProof(cred.Doc(), cred.Proof, method); err != nil {
			run.record("signature", verror.Wrap(verror.KindSignature,
				"credential proof verification failed", err))
		}
	default:
		run.record("signature", verror.New(verror.KindSignature, "credential carries no proof"))
	}
}

func (v *Validator) checkTemporalBounds(cred *Credential, now time.Time, run *validationRun) {
	latestIssuance := run.options.latestIssuanceOr(now)
	if !cred.Contents.ValidFrom.IsZero() && cred.Contents.ValidFrom.After(latestIssuance) {
		run.record("temporal", verror.Wrap(verror.KindTemporal,
			"credential is not yet valid at "+latestIssuance.UTC().Format(time.RFC3339),
			verror.ErrDormant))
	}

	earliestExpiry := run.options.earliestExpiryOr(now)
	if !cred.Contents.ValidUntil.IsZero() && cred.Contents.ValidUntil.Before(earliestExpiry) {
		run.record("temporal", verror.Wrap(verror.KindTemporal,
			"credential expired before "+earliestExpiry.UTC().Format(time.RFC3339),
			verror.ErrExpired))
	}
}

func (v *Validator) checkStructure(cred *Credential, run *validationRun) {
	if len(cred.Contents.Context) == 0 || cred.Contents.Context[0] != ContextCredentials {
		run.record("structure", verror.New(verror.KindStructural,
			"credential @context must start with "+ContextCredentials))
	}

	if !slices.Contains(cred.Contents.Types, TypeVerifiableCredential) {
		run.record("structure", verror.New(verror.KindStructural,
			"credential type must include "+TypeVerifiableCredential))
	}

	if len(cred.Contents.Subject) == 0 {
		run.record("structure", verror.New(verror.KindStructural,
			"credential has no credentialSubject"))
	}

	if run.options.expectedIssuer != "" && cred.Contents.Issuer != run.options.expectedIssuer {
		run.record("structure", verror.Newf(verror.KindStructural,
			"credential issued by %s, expected %s", cred.Contents.Issuer, run.options.expectedIssuer))
	}

	if run.options.validateSchema {
		run.record("schema", validateSchemas(cred.Doc(), cred.Contents.Schemas, run.options.schemaLoader))
	}
}

func (v *Validator) checkStatus(ctx context.Context, cred *Credential, issuerDoc *did.Document, run *validationRun) {
	for _, desc := range cred.Contents.Status {
		run.record("status", status.Check(ctx, desc, issuerDoc, v.Status))
		if run.failed() {
			return
		}
	}
}

// checkSubjectActivation resolves each subject DID and rejects
// credentials about deactivated subjects. Subjects without a DID id are
// skipped.
func (v *Validator) checkSubjectActivation(ctx context.Context, cred *Credential, run *validationRun) {
	for _, subject := range cred.Contents.Subject {
		if subject.ID == "" {
			continue
		}

		if _, err := did.Parse(subject.ID); err != nil {
			continue
		}

		subjectDoc, err := v.Resolver.ResolveString(ctx, subject.ID)
		if err != nil {
			run.record("subject", err)
			if run.failed() {
				return
			}

			continue
		}

		if subjectDoc.Deactivated() {
			run.record("subject", verror.Wrap(verror.KindRevocation,
				"subject document "+subject.ID+" is deactivated", verror.ErrDeactivated))
			if run.failed() {
				return
			}
		}
	}
}
