package vp

import (
	"time"

	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

// SignOption adds a holder-binding claim to a signed presentation.
type SignOption func(map[string]interface{})

// WithAudience sets the aud claim naming the intended verifier.
func WithAudience(audience string) SignOption {
	return func(claims map[string]interface{}) {
		claims["aud"] = audience
	}
}

// WithNonce sets the nonce claim binding the presentation to a
// verifier challenge.
func WithNonce(nonce string) SignOption {
	return func(claims map[string]interface{}) {
		claims["nonce"] = nonce
	}
}

// WithExpiration sets the exp claim on the presentation token.
func WithExpiration(t time.Time) SignOption {
	return func(claims map[string]interface{}) {
		claims["exp"] = t.Unix()
	}
}

// SignJWT signs the presentation as a compact JWT with the vp claim
// carrying the presentation body.
func (p *Presentation) SignJWT(signer *jwt.Signer, opts ...SignOption) (string, error) {
	claims := map[string]interface{}{
		"iss": p.Contents.Holder,
	}
	for _, opt := range opts {
		opt(claims)
	}

	signed, err := signer.SignDocument(p.doc, "vp", claims)
	if err != nil {
		return "", verror.Wrap(verror.KindConfiguration, "failed to sign presentation", err)
	}

	return signed, nil
}

// ParseJWT decodes a compact JWT presentation without verifying its
// signature or its contained credentials.
func ParseJWT(raw string) (*Presentation, error) {
	token, err := jwt.Decode(raw)
	if err != nil {
		return nil, verror.Wrap(verror.KindStructural, "failed to decode presentation token", err)
	}

	doc, err := token.ClaimObject("vp")
	if err != nil {
		return nil, verror.Wrap(verror.KindStructural, "presentation token has no vp claim", err)
	}

	contents, err := parseContents(doc)
	if err != nil {
		return nil, err
	}

	if iss, ok := token.Claims["iss"].(string); ok && iss != "" {
		contents.Holder = iss
	}

	custom := make(map[string]interface{})
	for key, value := range token.Claims {
		switch key {
		case "vp", "iss", "sub", "exp", "nbf", "iat", "jti":
		default:
			custom[key] = value
		}
	}

	return &Presentation{
		Contents:     contents,
		Token:        token,
		CustomClaims: custom,
		doc:          doc,
	}, nil
}
