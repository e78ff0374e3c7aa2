package vc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/iotaledger/identity.rs-sub007/credential/common/bitmap"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/credential/status"
	"github.com/iotaledger/identity.rs-sub007/did"
)

func signedCredential(t *testing.T, issuer *testIssuer, contents Contents) []byte {
	t.Helper()

	cred, err := New(contents)
	require.NoError(t, err)

	signed, err := cred.SignJWT(issuer.signer)
	require.NoError(t, err)

	return []byte(signed)
}

func TestValidateSuccess(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))

	cred, err := validator.Validate(context.Background(), signedCredential(t, issuer, testContents()))
	require.NoError(t, err)
	assert.Equal(t, testIssuerDID, cred.Contents.Issuer)
}

func TestValidateRejectsMalformedToken(t *testing.T) {
	validator := NewValidator(newTestResolver())

	_, err := validator.Validate(context.Background(), []byte("a.b.c"))
	require.Error(t, err)
	assert.Equal(t, verror.KindStructural, verror.KindOf(err))
}

func TestValidateUnresolvableIssuer(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver()) // no documents registered

	_, err := validator.Validate(context.Background(), signedCredential(t, issuer, testContents()))
	require.Error(t, err)
	assert.Equal(t, verror.KindResolution, verror.KindOf(err))
}

func TestValidateWrongKey(t *testing.T) {
	issuer := newTestIssuer(t)
	impostor := newTestIssuer(t) // same DID, different key

	// Resolve to the impostor's document so the published key does not
	// match the signature.
	validator := NewValidator(newTestResolver(impostor.doc))

	_, err := validator.Validate(context.Background(), signedCredential(t, issuer, testContents()))
	require.Error(t, err)
	assert.Equal(t, verror.KindSignature, verror.KindOf(err))
}

func TestValidateUnknownKid(t *testing.T) {
	issuer := newTestIssuer(t)
	issuer.doc.VerificationMethod[0].ID = testIssuerDID + "#other-key"

	validator := NewValidator(newTestResolver(issuer.doc))

	_, err := validator.Validate(context.Background(), signedCredential(t, issuer, testContents()))
	require.Error(t, err)
	assert.Equal(t, verror.KindSignature, verror.KindOf(err))
}

func TestValidateTemporalBounds(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))

	expired := testContents()
	expired.ValidUntil = time.Now().Add(-time.Hour)

	_, err := validator.Validate(context.Background(), signedCredential(t, issuer, expired))
	require.Error(t, err)
	assert.ErrorIs(t, err, verror.ErrExpired)
	assert.Equal(t, verror.KindTemporal, verror.KindOf(err))

	dormant := testContents()
	dormant.ValidFrom = time.Now().Add(time.Hour)

	_, err = validator.Validate(context.Background(), signedCredential(t, issuer, dormant))
	require.Error(t, err)
	assert.ErrorIs(t, err, verror.ErrDormant)
}

func TestValidateTemporalBoundOverrides(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))

	expired := testContents()
	expired.ValidUntil = time.Now().Add(-time.Hour)
	raw := signedCredential(t, issuer, expired)

	// Moving the expiry bound before the expiration date accepts it.
	_, err := validator.Validate(context.Background(), raw,
		WithEarliestExpiry(time.Now().Add(-2*time.Hour)))
	assert.NoError(t, err)

	// Tolerating the deficiency accepts it too.
	_, err = validator.Validate(context.Background(), raw,
		WithToleratedDeficiencies(verror.DeficiencyExpired))
	assert.NoError(t, err)
}

func TestValidateExpectedIssuer(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))
	raw := signedCredential(t, issuer, testContents())

	_, err := validator.Validate(context.Background(), raw, WithExpectedIssuer(testIssuerDID))
	assert.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw, WithExpectedIssuer("did:iota:0xother"))
	require.Error(t, err)
	assert.Equal(t, verror.KindStructural, verror.KindOf(err))
}

func TestValidateCollectAll(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))

	contents := testContents()
	contents.ValidUntil = time.Now().Add(-time.Hour)
	raw := signedCredential(t, issuer, contents)

	_, err := validator.Validate(context.Background(), raw,
		WithCollectAll(), WithExpectedIssuer("did:iota:0xother"))
	require.Error(t, err)

	var compound *verror.Compound
	require.ErrorAs(t, err, &compound)
	require.Len(t, compound.Entries, 2)
	assert.Equal(t, "temporal", compound.Entries[0].Check)
	assert.Equal(t, "structure", compound.Entries[1].Check)
	assert.ErrorIs(t, err, verror.ErrExpired)
}

func TestValidateFailFastStopsAtFirstFailure(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))

	contents := testContents()
	contents.ValidUntil = time.Now().Add(-time.Hour)
	raw := signedCredential(t, issuer, contents)

	_, err := validator.Validate(context.Background(), raw,
		WithExpectedIssuer("did:iota:0xother"))
	require.Error(t, err)

	var compound *verror.Compound
	require.ErrorAs(t, err, &compound)
	require.Len(t, compound.Entries, 1)
	assert.Equal(t, "temporal", compound.Entries[0].Check)
}

func TestValidateEmbeddedBitmapStatus(t *testing.T) {
	issuer := newTestIssuer(t)

	serviceID := testIssuerDID + "#revocation"
	svc, err := status.NewRevocationBitmapService(serviceID, bitmap.New())
	require.NoError(t, err)
	issuer.doc.Service = append(issuer.doc.Service, *svc)

	contents := testContents()
	contents.Status = []status.Descriptor{status.NewRevocationBitmapStatus(serviceID, 5)}
	raw := signedCredential(t, issuer, contents)

	validator := NewValidator(newTestResolver(issuer.doc))

	_, err = validator.Validate(context.Background(), raw)
	require.NoError(t, err)

	// Revoking the credential's index flips the outcome on the next run.
	require.NoError(t, status.UpdateRevocationBitmap(issuer.doc, serviceID, []uint32{5}, nil))

	_, err = validator.Validate(context.Background(), raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, verror.ErrRevoked)
	assert.Equal(t, verror.KindRevocation, verror.KindOf(err))
}

func TestValidateUnknownStatusType(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))

	contents := testContents()
	contents.Status = []status.Descriptor{{
		ID:         testIssuerDID + "#status",
		Type:       "ProprietaryStatus2077",
		Properties: map[string]interface{}{},
	}}
	raw := signedCredential(t, issuer, contents)

	_, err := validator.Validate(context.Background(), raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, verror.ErrUnknownStatusType)

	_, err = validator.Validate(context.Background(), raw,
		WithToleratedDeficiencies(verror.DeficiencyUnknownStatusType))
	assert.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw, WithStatusPolicy(StatusCheckSkip))
	assert.NoError(t, err)
}

func TestValidateSchema(t *testing.T) {
	issuer := newTestIssuer(t)
	validator := NewValidator(newTestResolver(issuer.doc))

	const schemaJSON = `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"credentialSubject": {
				"type": "object",
				"required": ["degree"]
			}
		}
	}`
	loader := func(string) gojsonschema.JSONLoader {
		return gojsonschema.NewStringLoader(schemaJSON)
	}

	contents := testContents()
	contents.Schemas = []Schema{{ID: "https://example.com/schemas/degree.json", Type: "JsonSchema"}}

	_, err := validator.Validate(context.Background(),
		signedCredential(t, issuer, contents), WithSchemaLoader(loader))
	assert.NoError(t, err)

	contents.Subject = []Subject{{ID: testSubjectDID}} // no degree field

	_, err = validator.Validate(context.Background(),
		signedCredential(t, issuer, contents), WithSchemaLoader(loader))
	require.Error(t, err)
	assert.Equal(t, verror.KindStructural, verror.KindOf(err))
}

func TestValidateDeactivatedSubject(t *testing.T) {
	issuer := newTestIssuer(t)
	subjectDoc := &did.Document{
		ID:       testSubjectDID,
		Metadata: map[string]interface{}{"deactivated": true},
	}
	validator := NewValidator(newTestResolver(issuer.doc, subjectDoc))
	raw := signedCredential(t, issuer, testContents())

	// The check is opt-in.
	_, err := validator.Validate(context.Background(), raw)
	assert.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw, WithSubjectActivationCheck())
	require.Error(t, err)
	assert.ErrorIs(t, err, verror.ErrDeactivated)

	_, err = validator.Validate(context.Background(), raw,
		WithSubjectActivationCheck(),
		WithToleratedDeficiencies(verror.DeficiencyDeactivatedSubject))
	assert.NoError(t, err)
}
