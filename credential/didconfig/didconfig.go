// Package didconfig validates domain linkage: the two-way binding
// between a DID and a web origin published as a DID Configuration
// resource under /.well-known/did-configuration.json.
package didconfig

import (
	"context"
	"encoding/json"
	"net/url"

	"golang.org/x/exp/slices"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/credential/vc"
	"github.com/iotaledger/identity.rs-sub007/did"
	"github.com/iotaledger/identity.rs-sub007/resolver"
)

const (
	// ContextDIDConfiguration is the required context of a DID
	// Configuration resource.
	ContextDIDConfiguration = "https://identity.foundation/.well-known/did-configuration/v1"
	// TypeDomainLinkage is the credential type every linkage credential
	// must carry.
	TypeDomainLinkage = "DomainLinkageCredential"
	// WellKnownPath is the path the resource is served under.
	WellKnownPath = "/.well-known/did-configuration.json"

	contextProperty    = "@context"
	linkedDIDsProperty = "linked_dids"
	originProperty     = "origin"
)

// Resource is a parsed DID Configuration resource: the linkage
// credentials in wire form, in declaration order.
type Resource struct {
	Context    string
	LinkedDIDs []interface{}
}

// ParseResource decodes a DID Configuration resource. Both properties
// are required and no other property is allowed.
func ParseResource(raw []byte) (*Resource, error) {
	var resource map[string]interface{}
	if err := json.Unmarshal(raw, &resource); err != nil {
		return nil, verror.Wrap(verror.KindStructural, "failed to decode DID configuration resource", err)
	}

	for property := range resource {
		if property != contextProperty && property != linkedDIDsProperty {
			return nil, verror.Newf(verror.KindStructural,
				"DID configuration resource carries disallowed property %q", property)
		}
	}

	ctx, ok := resource[contextProperty].(string)
	if !ok || ctx != ContextDIDConfiguration {
		return nil, verror.Newf(verror.KindStructural,
			"DID configuration resource %s must be %q", contextProperty, ContextDIDConfiguration)
	}

	linked, ok := resource[linkedDIDsProperty].([]interface{})
	if !ok {
		return nil, verror.Newf(verror.KindStructural,
			"DID configuration resource is missing the %s array", linkedDIDsProperty)
	}

	return &Resource{Context: ctx, LinkedDIDs: linked}, nil
}

// Validator checks domain linkage credentials against the issuer they
// claim and the origin the resource was fetched from.
type Validator struct {
	Credentials *vc.Validator
}

// NewValidator creates a domain linkage validator resolving DIDs
// through res.
func NewValidator(res *resolver.Resolver) *Validator {
	return &Validator{Credentials: vc.NewValidator(res)}
}

// Validate locates the single linkage credential in the resource issued
// by issuerDID, checks the linkage-specific structure, and runs it
// through the credential pipeline. More than one credential by the same
// issuer is ambiguous linkage and rejected outright.
func (v *Validator) Validate(ctx context.Context, resource *Resource, issuerDID, domain string, opts ...vc.Option) (*vc.Credential, error) {
	var match *vc.Credential

	for _, entry := range resource.LinkedDIDs {
		cred, err := parseEntry(entry)
		if err != nil {
			return nil, err
		}

		if cred.Contents.Issuer != issuerDID {
			continue
		}

		if match != nil {
			return nil, verror.Newf(verror.KindStructural,
				"ambiguous domain linkage: multiple credentials issued by %s", issuerDID)
		}

		match = cred
	}

	if match == nil {
		return nil, verror.Newf(verror.KindStructural,
			"no domain linkage credential issued by %s", issuerDID)
	}

	if err := validateLinkage(match, issuerDID, domain); err != nil {
		return nil, err
	}

	opts = append(opts, vc.WithExpectedIssuer(issuerDID))
	if err := v.Credentials.ValidateParsed(ctx, match, opts...); err != nil {
		return nil, err
	}

	return match, nil
}

func parseEntry(entry interface{}) (*vc.Credential, error) {
	switch e := entry.(type) {
	case string:
		return vc.ParseJWT(e)
	case map[string]interface{}:
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, verror.Wrap(verror.KindStructural, "failed to re-encode linkage credential", err)
		}

		return vc.ParseJSON(raw)
	default:
		return nil, verror.Newf(verror.KindStructural, "unsupported linked_dids entry type: %T", entry)
	}
}

// validateLinkage enforces the DID configuration resource verification
// rules: the linkage type, mandatory validity dates, a single subject
// equal to the issuer, and an origin matching the serving domain.
func validateLinkage(cred *vc.Credential, issuerDID, domain string) error {
	if !slices.Contains(cred.Contents.Types, TypeDomainLinkage) {
		return verror.Newf(verror.KindStructural,
			"linkage credential is not of type %s", TypeDomainLinkage)
	}

	if cred.Contents.ValidFrom.IsZero() {
		return verror.New(verror.KindStructural, "linkage credential issuance date must be present")
	}

	if cred.Contents.ValidUntil.IsZero() {
		return verror.New(verror.KindStructural, "linkage credential expiration date must be present")
	}

	if len(cred.Contents.Subject) != 1 {
		return verror.Newf(verror.KindStructural,
			"linkage credential must have exactly one subject, got %d", len(cred.Contents.Subject))
	}

	subject := cred.Contents.Subject[0]
	if _, err := did.Parse(subject.ID); err != nil {
		return verror.Wrap(verror.KindStructural, "linkage credential subject id must be a DID", err)
	}

	if subject.ID != issuerDID {
		return verror.Newf(verror.KindStructural,
			"linkage credential subject %s differs from issuer %s", subject.ID, issuerDID)
	}

	origin, ok := subject.CustomFields[originProperty].(string)
	if !ok {
		return verror.New(verror.KindStructural, "linkage credential subject origin must be a string")
	}

	if err := validateOrigin(origin, domain); err != nil {
		return err
	}

	return nil
}

// validateOrigin compares two origins the way browsers do: scheme,
// hostname and port must all match.
func validateOrigin(origin, domain string) error {
	originURL, err := url.Parse(origin)
	if err != nil {
		return verror.Wrap(verror.KindStructural, "malformed subject origin", err)
	}

	domainURL, err := url.Parse(domain)
	if err != nil {
		return verror.Wrap(verror.KindStructural, "malformed domain", err)
	}

	if originURL.Scheme != domainURL.Scheme ||
		originURL.Hostname() != domainURL.Hostname() ||
		originURL.Port() != domainURL.Port() {
		return verror.Newf(verror.KindStructural,
			"origin %q does not match domain %q", origin, domain)
	}

	return nil
}

