package jwt

import (
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func init() {
	gojwt.RegisterSigningMethod(ES256K.Alg(), func() gojwt.SigningMethod {
		return ES256K
	})
	gojwt.RegisterSigningMethod(EdDSA.Alg(), func() gojwt.SigningMethod {
		return EdDSA
	})
}

// Signer signs verifiable documents (credentials and presentations) as
// compact tokens on behalf of a signer DID.
type Signer struct {
	key       interface{}
	signerDID string
	fragment  string
	method    gojwt.SigningMethod
}

// NewES256KSigner creates a signer holding a hex-encoded secp256k1
// private key. The fragment names the verification method on the
// signer's document, e.g. "key-1".
func NewES256KSigner(privKeyHex, signerDID, fragment string) *Signer {
	return &Signer{key: privKeyHex, signerDID: signerDID, fragment: fragment, method: ES256K}
}

// NewEdDSASigner creates a signer holding an ed25519.PrivateKey.
func NewEdDSASigner(key interface{}, signerDID, fragment string) *Signer {
	return &Signer{key: key, signerDID: signerDID, fragment: fragment, method: EdDSA}
}

// KeyID returns the verification method URL written into the token
// header.
func (s *Signer) KeyID() string {
	return fmt.Sprintf("%s#%s", s.signerDID, s.fragment)
}

// SignDocument wraps a document under the given claim key ("vc" or
// "vp"), merges any additional claims, and returns the signed compact
// token.
func (s *Signer) SignDocument(doc map[string]interface{}, claimKey string, additionalClaims map[string]interface{}) (string, error) {
	docID, ok := doc["id"].(string)
	if !ok || docID == "" {
		docID = "urn:uuid:" + uuid.NewString()
	}

	claims := gojwt.MapClaims{
		claimKey: doc,
		"jti":    docID,
	}
	for key, value := range additionalClaims {
		claims[key] = value
	}

	token := gojwt.NewWithClaims(s.method, claims)
	token.Header["typ"] = "JWT"
	token.Header["kid"] = s.KeyID()

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
