package vc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/status"
	"github.com/iotaledger/identity.rs-sub007/did"
	"github.com/iotaledger/identity.rs-sub007/resolver"
)

const (
	testIssuerDID  = "did:iota:0x1ss0e5"
	testSubjectDID = "did:iota:0x5bbjec7"
)

// testIssuer is a signing identity with a resolvable document.
type testIssuer struct {
	privKeyHex string
	doc        *did.Document
	signer     *jwt.Signer
}

func newTestIssuer(t *testing.T) *testIssuer {
	t.Helper()

	privKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	return &testIssuer{
		privKeyHex: hex.EncodeToString(crypto.FromECDSA(privKey)),
		doc: &did.Document{
			ID: testIssuerDID,
			VerificationMethod: []did.VerificationMethod{{
				ID:           testIssuerDID + "#key-1",
				Type:         "EcdsaSecp256k1VerificationKey2019",
				Controller:   testIssuerDID,
				PublicKeyHex: hex.EncodeToString(crypto.CompressPubkey(&privKey.PublicKey)),
			}},
			AssertionMethod: []string{testIssuerDID + "#key-1"},
		},
		signer: jwt.NewES256KSigner(hex.EncodeToString(crypto.FromECDSA(privKey)), testIssuerDID, "key-1"),
	}
}

// newTestResolver resolves the iota method from a fixed document set.
func newTestResolver(docs ...*did.Document) *resolver.Resolver {
	byID := make(map[string]*did.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	res := resolver.New()
	res.AttachHandler("iota", func(ctx context.Context, d did.DID) (*did.Document, error) {
		doc, ok := byID[d.String()]
		if !ok {
			return nil, fmt.Errorf("document %s not found", d)
		}

		return doc, nil
	})

	return res
}

func testContents() Contents {
	return Contents{
		ID:     "urn:uuid:3c0b9c5e-0001-4b8a-9f3d-2d1c6e1a9fd2",
		Types:  []string{"UniversityDegreeCredential"},
		Issuer: testIssuerDID,
		Subject: []Subject{{
			ID:           testSubjectDID,
			CustomFields: map[string]interface{}{"degree": "Bachelor of Science"},
		}},
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(24 * time.Hour),
	}
}

func TestNewAppliesBaseContextAndType(t *testing.T) {
	cred, err := New(testContents())
	require.NoError(t, err)

	assert.Equal(t, ContextCredentials, cred.Contents.Context[0])
	assert.Equal(t, []string{TypeVerifiableCredential, "UniversityDegreeCredential"}, cred.Contents.Types)

	doc := cred.Doc()
	assert.Equal(t, testIssuerDID, doc["issuer"])
	assert.Contains(t, doc, "credentialSubject")
}

func TestNewRejectsIncompleteContents(t *testing.T) {
	_, err := New(Contents{Subject: []Subject{{ID: testSubjectDID}}})
	assert.Error(t, err, "missing issuer")

	_, err = New(Contents{Issuer: testIssuerDID})
	assert.Error(t, err, "missing subject")
}

func TestSignJWTAndParseRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	cred, err := New(testContents())
	require.NoError(t, err)

	signed, err := cred.SignJWT(issuer.signer)
	require.NoError(t, err)

	parsed, err := ParseJWT(signed)
	require.NoError(t, err)

	assert.Equal(t, testIssuerDID, parsed.Contents.Issuer)
	assert.Equal(t, cred.Contents.ID, parsed.Contents.ID)
	require.Len(t, parsed.Contents.Subject, 1)
	assert.Equal(t, testSubjectDID, parsed.Contents.Subject[0].ID)
	assert.Equal(t, "Bachelor of Science", parsed.Contents.Subject[0].CustomFields["degree"])
	require.NotNil(t, parsed.Token)
	assert.Equal(t, testIssuerDID+"#key-1", parsed.Token.Header.Kid)
	assert.Empty(t, parsed.CustomClaims)
}

func TestParseKeepsCustomClaims(t *testing.T) {
	issuer := newTestIssuer(t)

	cred, err := New(testContents())
	require.NoError(t, err)

	signed, err := issuer.signer.SignDocument(cred.Doc(), "vc", map[string]interface{}{
		"iss":   testIssuerDID,
		"nonce": "abc123",
	})
	require.NoError(t, err)

	parsed, err := ParseJWT(signed)
	require.NoError(t, err)
	assert.Equal(t, "abc123", parsed.CustomClaims["nonce"])
	assert.NotContains(t, parsed.CustomClaims, "iss")
}

func TestParseContentsVariants(t *testing.T) {
	doc := map[string]interface{}{
		"@context":          []interface{}{ContextCredentials, "https://example.com/contexts/degree/v1"},
		"id":                "urn:uuid:1",
		"type":              []interface{}{TypeVerifiableCredential, "DegreeCredential"},
		"issuer":            map[string]interface{}{"id": testIssuerDID, "name": "Example University"},
		"issuanceDate":      "2024-01-01T00:00:00Z",
		"expirationDate":    "2030-01-01T00:00:00Z",
		"credentialSubject": []interface{}{map[string]interface{}{"id": testSubjectDID}},
		"credentialStatus": map[string]interface{}{
			"id":                    testIssuerDID + "#revocation",
			"type":                  status.TypeRevocationBitmap,
			"revocationBitmapIndex": "5",
		},
		"nonTransferable": true,
	}

	contents, err := parseContents(doc)
	require.NoError(t, err)

	assert.Equal(t, testIssuerDID, contents.Issuer)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), contents.ValidFrom.UTC())
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), contents.ValidUntil.UTC())
	require.Len(t, contents.Status, 1)
	assert.Equal(t, status.TypeRevocationBitmap, contents.Status[0].Type)
	assert.Equal(t, "5", contents.Status[0].Properties["revocationBitmapIndex"])
	assert.True(t, contents.NonTransferable)
}

func TestParseContentsRejectsMalformedFields(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]interface{}
	}{
		{name: "bad context entry", doc: map[string]interface{}{"@context": []interface{}{42}}},
		{name: "bad type field", doc: map[string]interface{}{"type": 42}},
		{name: "issuer object without id", doc: map[string]interface{}{"issuer": map[string]interface{}{"name": "x"}}},
		{name: "bad date", doc: map[string]interface{}{"validFrom": "yesterday"}},
		{name: "bad subject entry", doc: map[string]interface{}{"credentialSubject": []interface{}{42}}},
		{name: "bad status entry", doc: map[string]interface{}{"credentialStatus": []interface{}{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseContents(tt.doc)
			assert.Error(t, err)
		})
	}
}

func TestParseJSONLiftsEmbeddedProof(t *testing.T) {
	issuer := newTestIssuer(t)

	cred, err := New(testContents())
	require.NoError(t, err)
	require.NoError(t, cred.SignEmbedded(issuer.privKeyHex, testIssuerDID+"#key-1"))

	raw, err := json.Marshal(cred)
	require.NoError(t, err)

	parsed, err := ParseJSON(raw)
	require.NoError(t, err)
	require.NotNil(t, parsed.Proof)
	assert.Equal(t, "DataIntegrityProof", parsed.Proof.Type)
	assert.Equal(t, testIssuerDID+"#key-1", parsed.Proof.VerificationMethod)
	assert.NotContains(t, parsed.Doc(), "proof")
	assert.Equal(t, testIssuerDID, parsed.Contents.Issuer)
}

func TestParseDispatchesOnShape(t *testing.T) {
	issuer := newTestIssuer(t)

	cred, err := New(testContents())
	require.NoError(t, err)

	signed, err := cred.SignJWT(issuer.signer)
	require.NoError(t, err)

	fromToken, err := Parse([]byte(signed))
	require.NoError(t, err)
	assert.NotNil(t, fromToken.Token)

	raw, err := json.Marshal(cred)
	require.NoError(t, err)

	fromJSON, err := Parse(raw)
	require.NoError(t, err)
	assert.Nil(t, fromJSON.Token)
}
