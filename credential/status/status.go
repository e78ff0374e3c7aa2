// Package status implements the credential status mechanisms: the
// embedded revocation bitmap, the external status list credential and
// the timeframe status. A credential's status descriptor names exactly
// one mechanism through its type tag; unknown tags are rejected, never
// ignored.
package status

import (
	"context"
	"time"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/did"
)

// Descriptor is a credential's status entry: a type tag selecting the
// mechanism plus the mechanism-specific properties.
type Descriptor struct {
	ID         string
	Type       string
	Properties map[string]interface{}
}

// Config carries the collaborators status checking needs. The zero
// value checks embedded bitmap and timeframe statuses; checking an
// external status list requires a Fetcher.
type Config struct {
	// Fetcher retrieves external status list credentials. Defaults to
	// the HTTPS-only, redirect-refusing HTTP fetcher.
	Fetcher FetchFunc
	// Clock returns the current time for timeframe checks. Defaults to
	// time.Now.
	Clock func() time.Time
}

func (c Config) fetcher() FetchFunc {
	if c.Fetcher != nil {
		return c.Fetcher
	}

	return defaultFetcher
}

func (c Config) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}

	return time.Now()
}

// Check evaluates a status descriptor against the issuer's resolved
// document. It returns nil when the credential is not revoked, a
// revocation error when it is, a structural error when the descriptor
// or its backing data is malformed, and an unknown-status-type error
// when the type tag matches no mechanism.
func Check(ctx context.Context, desc Descriptor, issuerDoc *did.Document, cfg Config) error {
	switch desc.Type {
	case TypeRevocationBitmap:
		return checkRevocationBitmap(desc, issuerDoc)
	case TypeStatusListEntry:
		return checkStatusList(ctx, desc, cfg)
	case TypeTimeframe:
		return checkTimeframe(desc, cfg.now())
	default:
		return verror.Wrap(verror.KindStructural,
			"status descriptor declares type "+desc.Type, verror.ErrUnknownStatusType)
	}
}

// property reads a required string property from the descriptor.
// Numeric JSON values are not accepted where the wire format mandates
// strings.
func (d Descriptor) property(name string) (string, error) {
	value, ok := d.Properties[name]
	if !ok {
		return "", verror.Newf(verror.KindStructural,
			"status descriptor of type %s is missing the %s property", d.Type, name)
	}

	s, ok := value.(string)
	if !ok {
		return "", verror.Newf(verror.KindStructural,
			"status descriptor property %s is not a string", name)
	}

	return s, nil
}
