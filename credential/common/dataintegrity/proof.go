// Package dataintegrity creates and verifies embedded Data Integrity
// proofs carried on JSON credentials, as an alternative to the compact
// token form.
package dataintegrity

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/iotaledger/identity.rs-sub007/credential/common/canonical"
	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/did"
)

// ProofType is the type tag of the proofs this package produces.
const ProofType = "DataIntegrityProof"

// Cryptosuite identifies the canonicalize-digest-sign suite in use.
const Cryptosuite = "ecdsa-rdfc-2019"

// Proof is an embedded proof object on a JSON credential or
// presentation.
type Proof struct {
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite,omitempty"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue,omitempty"`
	Challenge          string `json:"challenge,omitempty"`
	Domain             string `json:"domain,omitempty"`
}

// CreateProof canonicalizes doc (minus any existing proof) and signs the
// canonical form with a hex-encoded secp256k1 private key.
func CreateProof(doc map[string]interface{}, privKeyHex, verificationMethodURL string) (*Proof, error) {
	signingInput, err := signingInput(doc)
	if err != nil {
		return nil, err
	}

	signature, err := jwt.ES256K.Sign(string(signingInput), privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to sign document: %w", err)
	}

	return &Proof{
		Type:               ProofType,
		Cryptosuite:        Cryptosuite,
		Created:            time.Now().UTC().Format(time.RFC3339),
		VerificationMethod: verificationMethodURL,
		ProofPurpose:       "assertionMethod",
		ProofValue:         hex.EncodeToString(signature),
	}, nil
}

// VerifyProof checks an embedded proof against the verification method
// it names. The caller resolves the method from the proof's
// verificationMethod URL.
func VerifyProof(doc map[string]interface{}, proof *Proof, method *did.VerificationMethod) error {
	if proof == nil {
		return fmt.Errorf("document carries no proof")
	}

	if proof.Type != ProofType {
		return fmt.Errorf("unsupported proof type %q", proof.Type)
	}

	if proof.Cryptosuite != "" && proof.Cryptosuite != Cryptosuite {
		return fmt.Errorf("unsupported cryptosuite %q", proof.Cryptosuite)
	}

	signature, err := hex.DecodeString(proof.ProofValue)
	if err != nil {
		return fmt.Errorf("malformed proof value: %w", err)
	}

	input, err := signingInput(doc)
	if err != nil {
		return err
	}

	verifier := jwt.NewDefaultVerifier()
	if err := verifier.Verify(jwt.AlgES256K, input, signature, method); err != nil {
		return fmt.Errorf("embedded proof verification failed: %w", err)
	}

	return nil
}

func signingInput(doc map[string]interface{}) ([]byte, error) {
	canonicalized, err := canonical.Canonicalize(canonical.WithoutProof(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}

	return canonicalized, nil
}
