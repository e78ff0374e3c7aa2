package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/multiformats/go-multibase"

	"github.com/iotaledger/identity.rs-sub007/did"
)

// Verifier checks a signature over a signing input given the candidate
// verification method resolved from a DID Document. Implementations are
// supplied by the caller; DefaultVerifier covers the built-in
// algorithms.
type Verifier interface {
	Verify(alg string, signingInput, signature []byte, method *did.VerificationMethod) error
}

// DefaultVerifier verifies ES256K and EdDSA signatures using the public
// key material published on the verification method.
type DefaultVerifier struct{}

// NewDefaultVerifier creates a DefaultVerifier.
func NewDefaultVerifier() *DefaultVerifier {
	return &DefaultVerifier{}
}

// Verify dispatches on the algorithm and verifies the signature.
func (v *DefaultVerifier) Verify(alg string, signingInput, signature []byte, method *did.VerificationMethod) error {
	switch alg {
	case AlgES256K:
		key, err := secp256k1Key(method)
		if err != nil {
			return err
		}

		return ES256K.Verify(string(signingInput), signature, key)
	case AlgEdDSA:
		key, err := ed25519Key(method)
		if err != nil {
			return err
		}

		return EdDSA.Verify(string(signingInput), signature, key)
	default:
		return fmt.Errorf("unsupported signature algorithm %q", alg)
	}
}

// secp256k1Key extracts an ECDSA public key from the verification
// method's hex or JWK material.
func secp256k1Key(method *did.VerificationMethod) (*ecdsa.PublicKey, error) {
	if method.PublicKeyHex != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(method.PublicKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("malformed publicKeyHex on %q: %w", method.ID, err)
		}

		pub, err := secp256k1.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid secp256k1 public key on %q: %w", method.ID, err)
		}

		return pub.ToECDSA(), nil
	}

	if jwk := method.PublicKeyJwk; jwk != nil {
		if jwk.Kty != "EC" || jwk.Crv != "secp256k1" {
			return nil, fmt.Errorf("verification method %q JWK is not a secp256k1 key", method.ID)
		}

		x, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			return nil, fmt.Errorf("malformed JWK x coordinate on %q: %w", method.ID, err)
		}

		y, err := base64.RawURLEncoding.DecodeString(jwk.Y)
		if err != nil {
			return nil, fmt.Errorf("malformed JWK y coordinate on %q: %w", method.ID, err)
		}

		return &ecdsa.PublicKey{
			Curve: secp256k1.S256(),
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}, nil
	}

	return nil, fmt.Errorf("verification method %q carries no secp256k1 key material", method.ID)
}

// ed25519MulticodecPrefix is the multicodec tag for ed25519-pub.
var ed25519MulticodecPrefix = []byte{0xed, 0x01}

// ed25519Key extracts an Ed25519 public key from the verification
// method's multibase or JWK material.
func ed25519Key(method *did.VerificationMethod) (ed25519.PublicKey, error) {
	if method.PublicKeyMultibase != "" {
		_, raw, err := multibase.Decode(method.PublicKeyMultibase)
		if err != nil {
			return nil, fmt.Errorf("malformed publicKeyMultibase on %q: %w", method.ID, err)
		}

		if len(raw) == ed25519.PublicKeySize+len(ed25519MulticodecPrefix) &&
			raw[0] == ed25519MulticodecPrefix[0] && raw[1] == ed25519MulticodecPrefix[1] {
			raw = raw[len(ed25519MulticodecPrefix):]
		}

		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid Ed25519 public key length %d on %q", len(raw), method.ID)
		}

		return ed25519.PublicKey(raw), nil
	}

	if jwk := method.PublicKeyJwk; jwk != nil {
		if jwk.Kty != "OKP" || jwk.Crv != "Ed25519" {
			return nil, fmt.Errorf("verification method %q JWK is not an Ed25519 key", method.ID)
		}

		raw, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			return nil, fmt.Errorf("malformed JWK x coordinate on %q: %w", method.ID, err)
		}

		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid Ed25519 public key length %d on %q", len(raw), method.ID)
		}

		return ed25519.PublicKey(raw), nil
	}

	return nil, fmt.Errorf("verification method %q carries no Ed25519 key material", method.ID)
}
