// Package vc implements verifiable credentials: construction, signing
// as compact JWT or with an embedded data integrity proof, and the
// validation pipeline that takes an untrusted token through decoding,
// issuer resolution, signature, temporal, structural and status checks.
package vc

import (
	"encoding/json"
	"time"

	"golang.org/x/exp/slices"

	"github.com/iotaledger/identity.rs-sub007/credential/common/dataintegrity"
	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/credential/status"
)

const (
	// ContextCredentials is the base W3C credentials context. It must be
	// the first entry of every credential's @context.
	ContextCredentials = "https://www.w3.org/2018/credentials/v1"
	// TypeVerifiableCredential is the base type every credential carries.
	TypeVerifiableCredential = "VerifiableCredential"
)

// Contents holds the semantic fields of a credential, independent of
// its wire envelope (JWT claims or plain JSON document).
type Contents struct {
	Context         []interface{}
	ID              string
	Types           []string
	Issuer          string
	ValidFrom       time.Time
	ValidUntil      time.Time
	Subject         []Subject
	Status          []status.Descriptor
	Schemas         []Schema
	NonTransferable bool
}

// Subject is one credentialSubject entry. CustomFields carries every
// property besides the id.
type Subject struct {
	ID           string
	CustomFields map[string]interface{}
}

// Schema references a credentialSchema the credential claims to
// conform to.
type Schema struct {
	ID   string
	Type string
}

// Credential is a credential decoded from a token or a JSON document.
// Token is non-nil for JWT credentials; Proof is non-nil for JSON
// credentials carrying an embedded data integrity proof.
type Credential struct {
	Contents     Contents
	Token        *jwt.Token
	Proof        *dataintegrity.Proof
	CustomClaims map[string]interface{}

	doc map[string]interface{}
}

// New builds a credential from contents for the issue path. The base
// context and type are prepended when missing. An issuer and at least
// one subject are required.
func New(contents Contents) (*Credential, error) {
	if contents.Issuer == "" {
		return nil, verror.New(verror.KindConfiguration, "credential issuer is required")
	}

	if len(contents.Subject) == 0 {
		return nil, verror.New(verror.KindConfiguration, "credential requires at least one subject")
	}

	if len(contents.Context) == 0 || contents.Context[0] != ContextCredentials {
		contents.Context = append([]interface{}{ContextCredentials}, contents.Context...)
	}

	if !slices.Contains(contents.Types, TypeVerifiableCredential) {
		contents.Types = append([]string{TypeVerifiableCredential}, contents.Types...)
	}

	doc, err := serializeContents(&contents)
	if err != nil {
		return nil, err
	}

	return &Credential{Contents: contents, doc: doc}, nil
}

// Doc returns the credential body as a JSON object. For decoded
// credentials this is the vc claim or the parsed document, including
// fields the contents model does not track.
func (c *Credential) Doc() map[string]interface{} {
	return c.doc
}

// MarshalJSON serializes the credential body, including the embedded
// proof when present.
func (c *Credential) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(c.doc)+1)
	for key, value := range c.doc {
		doc[key] = value
	}

	if c.Proof != nil {
		doc["proof"] = c.Proof
	}

	return json.Marshal(doc)
}
