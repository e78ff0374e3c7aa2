package vc

import (
	"encoding/json"

	"github.com/iotaledger/identity.rs-sub007/credential/common/dataintegrity"
	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

// SignEmbedded attaches a data integrity proof to the credential body.
// The credential then serializes as a plain JSON document instead of a
// compact token.
func (c *Credential) SignEmbedded(privKeyHex, verificationMethodURL string) error {
	proof, err := dataintegrity.CreateProof(c.doc, privKeyHex, verificationMethodURL)
	if err != nil {
		return verror.Wrap(verror.KindConfiguration, "failed to create embedded proof", err)
	}

	c.Proof = proof

	return nil
}

// ParseJSON decodes a JSON credential document, lifting an embedded
// proof out of the body when present.
func ParseJSON(raw []byte) (*Credential, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, verror.Wrap(verror.KindStructural, "failed to decode credential JSON", err)
	}

	var proof *dataintegrity.Proof
	if rawProof, ok := doc["proof"]; ok {
		proofBytes, err := json.Marshal(rawProof)
		if err != nil {
			return nil, verror.Wrap(verror.KindStructural, "failed to re-encode embedded proof", err)
		}

		proof = &dataintegrity.Proof{}
		if err := json.Unmarshal(proofBytes, proof); err != nil {
			return nil, verror.Wrap(verror.KindStructural, "failed to decode embedded proof", err)
		}

		delete(doc, "proof")
	}

	contents, err := parseContents(doc)
	if err != nil {
		return nil, err
	}

	return &Credential{Contents: contents, Proof: proof, doc: doc}, nil
}

// Parse decodes a credential in either wire form: a compact token or a
// JSON document.
func Parse(raw []byte) (*Credential, error) {
	if jwt.IsCompact(string(raw)) {
		return ParseJWT(string(raw))
	}

	return ParseJSON(raw)
}
