// Package vp implements verifiable presentations: a holder-signed
// envelope around a set of credentials. Validation checks the holder's
// signature and audience/nonce binding, then runs every contained
// credential through the credential pipeline with per-position error
// reporting.
package vp

import (
	"golang.org/x/exp/slices"

	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/credential/vc"
)

const (
	// ContextCredentials is the base W3C credentials context.
	ContextCredentials = vc.ContextCredentials
	// TypeVerifiablePresentation is the base type every presentation
	// carries.
	TypeVerifiablePresentation = "VerifiablePresentation"
)

// Contents holds the semantic fields of a presentation. Credentials
// keeps the contained credentials in wire form: compact token strings
// or embedded JSON objects, in declaration order.
type Contents struct {
	Context     []interface{}
	ID          string
	Types       []string
	Holder      string
	Credentials []interface{}
}

// Presentation is a presentation decoded from a token or built for
// signing. After validation, Credentials holds the decoded credential
// at each input position, nil where that credential failed.
type Presentation struct {
	Contents     Contents
	Token        *jwt.Token
	CustomClaims map[string]interface{}
	Credentials  []*vc.Credential

	doc map[string]interface{}
}

// New builds a presentation from contents for the signing path. The
// base context and type are prepended when missing; a holder is
// required.
func New(contents Contents) (*Presentation, error) {
	if contents.Holder == "" {
		return nil, verror.New(verror.KindConfiguration, "presentation holder is required")
	}

	if len(contents.Context) == 0 || contents.Context[0] != ContextCredentials {
		contents.Context = append([]interface{}{ContextCredentials}, contents.Context...)
	}

	if !slices.Contains(contents.Types, TypeVerifiablePresentation) {
		contents.Types = append([]string{TypeVerifiablePresentation}, contents.Types...)
	}

	return &Presentation{Contents: contents, doc: serializeContents(&contents)}, nil
}

// Doc returns the presentation body as a JSON object.
func (p *Presentation) Doc() map[string]interface{} {
	return p.doc
}

func serializeContents(contents *Contents) map[string]interface{} {
	doc := make(map[string]interface{})
	if len(contents.Context) > 0 {
		doc["@context"] = append([]interface{}{}, contents.Context...)
	}
	if contents.ID != "" {
		doc["id"] = contents.ID
	}
	if len(contents.Types) > 0 {
		doc["type"] = serializeTypes(contents.Types)
	}
	if contents.Holder != "" {
		doc["holder"] = contents.Holder
	}
	if len(contents.Credentials) > 0 {
		doc["verifiableCredential"] = append([]interface{}{}, contents.Credentials...)
	}

	return doc
}

func serializeTypes(types []string) interface{} {
	if len(types) == 1 {
		return types[0]
	}

	out := make([]interface{}, len(types))
	for i, t := range types {
		out[i] = t
	}

	return out
}

func parseContents(doc map[string]interface{}) (Contents, error) {
	var contents Contents

	switch context := doc["@context"].(type) {
	case nil:
	case string:
		contents.Context = append(contents.Context, context)
	case []interface{}:
		contents.Context = append(contents.Context, context...)
	default:
		return Contents{}, verror.Newf(verror.KindStructural, "unsupported @context type: %T", context)
	}

	if id, ok := doc["id"].(string); ok {
		contents.ID = id
	}

	switch types := doc["type"].(type) {
	case nil:
	case string:
		contents.Types = append(contents.Types, types)
	case []interface{}:
		for _, entry := range types {
			s, ok := entry.(string)
			if !ok {
				return Contents{}, verror.Newf(verror.KindStructural, "unsupported type entry: %T", entry)
			}
			contents.Types = append(contents.Types, s)
		}
	default:
		return Contents{}, verror.Newf(verror.KindStructural, "unsupported type field: %T", types)
	}

	if holder, ok := doc["holder"].(string); ok {
		contents.Holder = holder
	}

	switch creds := doc["verifiableCredential"].(type) {
	case nil:
	case string, map[string]interface{}:
		contents.Credentials = append(contents.Credentials, creds)
	case []interface{}:
		contents.Credentials = append(contents.Credentials, creds...)
	default:
		return Contents{}, verror.Newf(verror.KindStructural, "unsupported verifiableCredential type: %T", creds)
	}

	return contents, nil
}
