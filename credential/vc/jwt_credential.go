package vc

import (
	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

// registeredClaims are the JWT claims the credential mapping consumes;
// everything else in the payload surfaces as a custom claim.
var registeredClaims = map[string]bool{
	"vc":  true,
	"iss": true,
	"sub": true,
	"exp": true,
	"nbf": true,
	"iat": true,
	"jti": true,
}

// SignJWT signs the credential as a compact JWT with the vc claim
// carrying the credential body and the registered claims mirroring the
// tracked fields.
func (c *Credential) SignJWT(signer *jwt.Signer) (string, error) {
	claims := map[string]interface{}{
		"iss": c.Contents.Issuer,
	}
	if len(c.Contents.Subject) > 0 && c.Contents.Subject[0].ID != "" {
		claims["sub"] = c.Contents.Subject[0].ID
	}
	if !c.Contents.ValidFrom.IsZero() {
		claims["nbf"] = c.Contents.ValidFrom.Unix()
		claims["iat"] = c.Contents.ValidFrom.Unix()
	}
	if !c.Contents.ValidUntil.IsZero() {
		claims["exp"] = c.Contents.ValidUntil.Unix()
	}

	signed, err := signer.SignDocument(c.doc, "vc", claims)
	if err != nil {
		return "", verror.Wrap(verror.KindConfiguration, "failed to sign credential", err)
	}

	return signed, nil
}

// ParseJWT decodes a compact JWT credential without verifying its
// signature. The returned credential keeps the decoded token so the
// validator can verify the signature against a resolved key.
func ParseJWT(raw string) (*Credential, error) {
	token, err := jwt.Decode(raw)
	if err != nil {
		return nil, verror.Wrap(verror.KindStructural, "failed to decode credential token", err)
	}

	return fromToken(token)
}

func fromToken(token *jwt.Token) (*Credential, error) {
	doc, err := token.ClaimObject("vc")
	if err != nil {
		return nil, verror.Wrap(verror.KindStructural, "credential token has no vc claim", err)
	}

	contents, err := parseContents(doc)
	if err != nil {
		return nil, err
	}

	// Registered claims take precedence over the mirrored body fields.
	if iss, ok := token.Claims["iss"].(string); ok && iss != "" {
		contents.Issuer = iss
	}
	if jti, ok := token.Claims["jti"].(string); ok && contents.ID == "" {
		contents.ID = jti
	}

	custom := make(map[string]interface{})
	for key, value := range token.Claims {
		if !registeredClaims[key] {
			custom[key] = value
		}
	}

	return &Credential{
		Contents:     contents,
		Token:        token,
		CustomClaims: custom,
		doc:          doc,
	}, nil
}
