package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// SigningMethodES256K implements ES256K (secp256k1 over SHA-256).
type SigningMethodES256K struct{}

// Alg returns the algorithm name.
func (m *SigningMethodES256K) Alg() string {
	return AlgES256K
}

// Sign signs a string with a hex-encoded secp256k1 private key.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	privKeyHex, ok := key.(string)
	if !ok {
		return nil, fmt.Errorf("invalid key type for ES256K")
	}

	privKeyBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	privKey, err := crypto.ToECDSA(privKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	hash := sha256.Sum256([]byte(signingString))
	sig, err := crypto.Sign(hash[:], privKey)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	// R and S only, the recovery id is not part of the signature.
	return sig[:64], nil
}

// Verify verifies a 64-byte R||S signature against an ECDSA public key.
func (m *SigningMethodES256K) Verify(signingString string, signature []byte, key interface{}) error {
	publicKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("invalid key type for ES256K")
	}

	if len(signature) != 64 {
		return fmt.Errorf("invalid signature length %d, expected 64", len(signature))
	}

	hash := sha256.Sum256([]byte(signingString))
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])

	if !ecdsa.Verify(publicKey, hash[:], r, s) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

// SigningMethodEdDSA implements EdDSA over Ed25519.
type SigningMethodEdDSA struct{}

// Alg returns the algorithm name.
func (m *SigningMethodEdDSA) Alg() string {
	return AlgEdDSA
}

// Sign signs a string with an ed25519.PrivateKey.
func (m *SigningMethodEdDSA) Sign(signingString string, key interface{}) ([]byte, error) {
	privKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("invalid key type for EdDSA")
	}

	return ed25519.Sign(privKey, []byte(signingString)), nil
}

// Verify verifies an Ed25519 signature.
func (m *SigningMethodEdDSA) Verify(signingString string, signature []byte, key interface{}) error {
	publicKey, ok := key.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("invalid key type for EdDSA")
	}

	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature length %d, expected %d", len(signature), ed25519.SignatureSize)
	}

	if !ed25519.Verify(publicKey, []byte(signingString), signature) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

// ES256K and EdDSA are the signing method instances.
var (
	ES256K = &SigningMethodES256K{}
	EdDSA  = &SigningMethodEdDSA{}
)
