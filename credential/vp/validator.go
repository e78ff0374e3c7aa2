package vp

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/credential/vc"
	"github.com/iotaledger/identity.rs-sub007/resolver"
)

// ValidationOptions configures a presentation validation run.
type ValidationOptions struct {
	expectedAudience string
	expectedNonce    string
	collectAll       bool
	credentialOpts   []vc.Option
}

// Option adjusts a presentation validation run.
type Option func(*ValidationOptions)

// WithExpectedAudience requires the presentation's aud claim to equal
// the given value.
func WithExpectedAudience(audience string) Option {
	return func(o *ValidationOptions) {
		o.expectedAudience = audience
	}
}

// WithExpectedNonce requires the presentation's nonce claim to equal
// the verifier's challenge.
func WithExpectedNonce(nonce string) Option {
	return func(o *ValidationOptions) {
		o.expectedNonce = nonce
	}
}

// WithCollectAll validates every contained credential and returns a
// compound error carrying one entry per failure, instead of aborting at
// the first failing credential.
func WithCollectAll() Option {
	return func(o *ValidationOptions) {
		o.collectAll = true
		o.credentialOpts = append(o.credentialOpts, vc.WithCollectAll())
	}
}

// WithCredentialOptions forwards options to the per-credential
// validation runs.
func WithCredentialOptions(opts ...vc.Option) Option {
	return func(o *ValidationOptions) {
		o.credentialOpts = append(o.credentialOpts, opts...)
	}
}

// Validator runs presentations through holder resolution, signature
// verification, audience/nonce binding, structural checks and
// per-credential validation.
type Validator struct {
	Resolver    *resolver.Resolver
	Verifier    jwt.Verifier
	Credentials *vc.Validator
}

// NewValidator creates a presentation validator resolving holders and
// issuers through res.
func NewValidator(res *resolver.Resolver) *Validator {
	return &Validator{
		Resolver:    res,
		Verifier:    jwt.NewDefaultVerifier(),
		Credentials: vc.NewValidator(res),
	}
}

// Validate decodes and fully checks a presentation. The returned
// presentation's Credentials slice maps position-for-position onto the
// contained credentials; under collect-all a failing credential leaves
// a nil slot there and an error entry at its position in the compound
// error.
func (v *Validator) Validate(ctx context.Context, raw string, opts ...Option) (*Presentation, error) {
	options := &ValidationOptions{}
	for _, opt := range opts {
		opt(options)
	}

	pres, err := ParseJWT(raw)
	if err != nil {
		compound := verror.NewCompound("validate presentation")
		compound.Add(-1, "decode", err)

		return nil, compound
	}

	compound := verror.NewCompound("validate presentation")

	v.checkHolder(ctx, pres, compound)
	if !options.collectAll && compound.HasErrors() {
		return pres, compound
	}

	v.checkBinding(pres, options, compound)
	if !options.collectAll && compound.HasErrors() {
		return pres, compound
	}

	v.checkStructure(pres, compound)
	if !options.collectAll && compound.HasErrors() {
		return pres, compound
	}

	v.checkCredentials(ctx, pres, options, compound)

	return pres, compound.ErrOrNil()
}

// checkHolder resolves the holder and verifies the presentation
// signature against the holder's key named by the token kid.
func (v *Validator) checkHolder(ctx context.Context, pres *Presentation, compound *verror.Compound) {
	if pres.Contents.Holder == "" {
		compound.Add(-1, "resolution", verror.New(verror.KindStructural, "presentation has no holder"))

		return
	}

	holderDoc, err := v.Resolver.ResolveString(ctx, pres.Contents.Holder)
	if err != nil {
		compound.Add(-1, "resolution", err)

		return
	}

	if len(pres.Token.Signature) == 0 {
		compound.Add(-1, "signature", verror.New(verror.KindSignature, "presentation token is unsigned"))

		return
	}

	method, err := holderDoc.ResolveVerificationMethod(pres.Token.Header.Kid)
	if err != nil {
		compound.Add(-1, "signature", verror.Wrap(verror.KindSignature,
			"no holder key matches the token kid", err))

		return
	}

	err = v.Verifier.Verify(pres.Token.Header.Alg,
		[]byte(pres.Token.SigningInput), pres.Token.Signature, method)
	if err != nil {
		compound.Add(-1, "signature", verror.Wrap(verror.KindSignature,
			"presentation signature verification failed", err))
	}
}

// checkBinding compares the aud and nonce claims against the
// verifier's expectations.
func (v *Validator) checkBinding(pres *Presentation, options *ValidationOptions, compound *verror.Compound) {
	if options.expectedAudience != "" {
		if !audienceMatches(pres.Token.Claims["aud"], options.expectedAudience) {
			compound.Add(-1, "binding", verror.Newf(verror.KindStructural,
				"presentation audience does not match expected %q", options.expectedAudience))
		}
	}

	if options.expectedNonce != "" {
		nonce, _ := pres.Token.Claims["nonce"].(string)
		if nonce != options.expectedNonce {
			compound.Add(-1, "binding", verror.New(verror.KindStructural,
				"presentation nonce does not match the expected challenge"))
		}
	}
}

// audienceMatches reports whether the aud claim names want. The claim
// may be a single string or, per RFC 7519, an array of strings.
func audienceMatches(claim interface{}, want string) bool {
	switch aud := claim.(type) {
	case string:
		return aud == want
	case []interface{}:
		for _, entry := range aud {
			if s, ok := entry.(string); ok && s == want {
				return true
			}
		}
	}

	return false
}

func (v *Validator) checkStructure(pres *Presentation, compound *verror.Compound) {
	if len(pres.Contents.Context) == 0 || pres.Contents.Context[0] != ContextCredentials {
		compound.Add(-1, "structure", verror.New(verror.KindStructural,
			"presentation @context must start with "+ContextCredentials))
	}

	if !slices.Contains(pres.Contents.Types, TypeVerifiablePresentation) {
		compound.Add(-1, "structure", verror.New(verror.KindStructural,
			"presentation type must include "+TypeVerifiablePresentation))
	}
}

// checkCredentials validates each contained credential at its input
// position. Under fail-fast the first failing credential aborts the
// loop; under collect-all every credential is attempted and the
// Credentials slice keeps a nil slot at each failing position.
func (v *Validator) checkCredentials(ctx context.Context, pres *Presentation, options *ValidationOptions, compound *verror.Compound) {
	pres.Credentials = make([]*vc.Credential, len(pres.Contents.Credentials))

	for i, entry := range pres.Contents.Credentials {
		raw, err := credentialBytes(entry)
		if err != nil {
			if !v.recordCredential(compound, i, err, options) {
				return
			}

			continue
		}

		cred, err := vc.Parse(raw)
		if err != nil {
			if !v.recordCredential(compound, i, err, options) {
				return
			}

			continue
		}

		if err := v.Credentials.ValidateParsed(ctx, cred, options.credentialOpts...); err != nil {
			if !v.recordCredential(compound, i, err, options) {
				return
			}

			continue
		}

		if err := checkNonTransferable(cred, pres.Contents.Holder); err != nil {
			compound.Add(i, "nonTransferable", err)
			if !options.collectAll {
				return
			}

			continue
		}

		pres.Credentials[i] = cred
	}
}

// recordCredential adds a per-position failure and reports whether the
// loop should continue.
func (v *Validator) recordCredential(compound *verror.Compound, position int, err error, options *ValidationOptions) bool {
	compound.Add(position, "credential", err)

	return options.collectAll
}

// checkNonTransferable rejects a nonTransferable credential presented
// by a holder that is not its subject.
func checkNonTransferable(cred *vc.Credential, holder string) error {
	if !cred.Contents.NonTransferable {
		return nil
	}

	for _, subject := range cred.Contents.Subject {
		if subject.ID == holder {
			return nil
		}
	}

	return verror.Wrap(verror.KindStructural,
		fmt.Sprintf("credential is bound to its subject, holder is %s", holder),
		verror.ErrNonTransferable)
}

// credentialBytes normalizes a verifiableCredential entry to its wire
// bytes: compact token strings pass through, embedded objects re-encode
// as JSON.
func credentialBytes(entry interface{}) ([]byte, error) {
	switch e := entry.(type) {
	case string:
		return []byte(e), nil
	case map[string]interface{}:
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, verror.Wrap(verror.KindStructural, "failed to re-encode embedded credential", err)
		}

		return raw, nil
	default:
		return nil, verror.Newf(verror.KindStructural, "unsupported credential entry type: %T", entry)
	}
}
