package vp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

func TestValidateSuccess(t *testing.T) {
	issuer := newIdentity(t, issuerDID)
	holder := newIdentity(t, holderDID)
	validator := NewValidator(newTestResolver(issuer, holder))

	credential := signedCredential(t, issuer, holderDID, time.Now().Add(24*time.Hour), false)
	signed := signedPresentation(t, holder, []interface{}{credential})

	pres, err := validator.Validate(context.Background(), signed)
	require.NoError(t, err)
	require.Len(t, pres.Credentials, 1)
	require.NotNil(t, pres.Credentials[0])
	assert.Equal(t, issuerDID, pres.Credentials[0].Contents.Issuer)
}

func TestValidateHolderSignature(t *testing.T) {
	issuer := newIdentity(t, issuerDID)
	holder := newIdentity(t, holderDID)
	impostor := newIdentity(t, holderDID) // same DID, different key

	credential := signedCredential(t, issuer, holderDID, time.Now().Add(24*time.Hour), false)
	signed := signedPresentation(t, impostor, []interface{}{credential})

	validator := NewValidator(newTestResolver(issuer, holder))

	_, err := validator.Validate(context.Background(), signed)
	require.Error(t, err)
	assert.Equal(t, verror.KindSignature, verror.KindOf(err))
}

func TestValidateUnresolvableHolder(t *testing.T) {
	issuer := newIdentity(t, issuerDID)
	holder := newIdentity(t, holderDID)

	signed := signedPresentation(t, holder, nil)
	validator := NewValidator(newTestResolver(issuer)) // holder not registered

	_, err := validator.Validate(context.Background(), signed)
	require.Error(t, err)
	assert.Equal(t, verror.KindResolution, verror.KindOf(err))
}

func TestValidateAudienceAndNonceBinding(t *testing.T) {
	holder := newIdentity(t, holderDID)
	validator := NewValidator(newTestResolver(holder))

	signed := signedPresentation(t, holder, nil,
		WithAudience("did:iota:0xcc33"), WithNonce("challenge-1"))

	_, err := validator.Validate(context.Background(), signed,
		WithExpectedAudience("did:iota:0xcc33"), WithExpectedNonce("challenge-1"))
	assert.NoError(t, err)

	_, err = validator.Validate(context.Background(), signed,
		WithExpectedAudience("did:iota:0xdd44"))
	require.Error(t, err)
	assert.Equal(t, verror.KindStructural, verror.KindOf(err))

	_, err = validator.Validate(context.Background(), signed,
		WithExpectedNonce("challenge-2"))
	require.Error(t, err)
}

func TestValidateAudienceArrayClaim(t *testing.T) {
	holder := newIdentity(t, holderDID)
	validator := NewValidator(newTestResolver(holder))

	withAudiences := func(claims map[string]interface{}) {
		claims["aud"] = []string{"did:iota:0xcc33", "did:iota:0xdd44"}
	}
	signed := signedPresentation(t, holder, nil, withAudiences)

	_, err := validator.Validate(context.Background(), signed,
		WithExpectedAudience("did:iota:0xdd44"))
	assert.NoError(t, err)

	_, err = validator.Validate(context.Background(), signed,
		WithExpectedAudience("did:iota:0xee55"))
	require.Error(t, err)
	assert.Equal(t, verror.KindStructural, verror.KindOf(err))
}

func TestValidateFailFastRecordsPosition(t *testing.T) {
	issuer := newIdentity(t, issuerDID)
	holder := newIdentity(t, holderDID)
	validator := NewValidator(newTestResolver(issuer, holder))

	future := time.Now().Add(24 * time.Hour)
	credentials := []interface{}{
		signedCredential(t, issuer, holderDID, future, false),
		signedCredential(t, issuer, holderDID, time.Now().Add(-time.Hour), false), // expired
		signedCredential(t, issuer, holderDID, future, false),
	}
	signed := signedPresentation(t, holder, credentials)

	pres, err := validator.Validate(context.Background(), signed)
	require.Error(t, err)

	var compound *verror.Compound
	require.ErrorAs(t, err, &compound)
	require.Len(t, compound.Entries, 1, "fail-fast stops at the first failing credential")
	assert.Equal(t, 1, compound.Entries[0].Position)
	assert.ErrorIs(t, err, verror.ErrExpired)

	// Index 2 was never attempted.
	assert.NotNil(t, pres.Credentials[0])
	assert.Nil(t, pres.Credentials[1])
	assert.Nil(t, pres.Credentials[2])
}

func TestValidateCollectAllKeepsPositions(t *testing.T) {
	issuer := newIdentity(t, issuerDID)
	holder := newIdentity(t, holderDID)
	validator := NewValidator(newTestResolver(issuer, holder))

	future := time.Now().Add(24 * time.Hour)
	credentials := []interface{}{
		signedCredential(t, issuer, holderDID, future, false),
		signedCredential(t, issuer, holderDID, time.Now().Add(-time.Hour), false), // expired
		signedCredential(t, issuer, holderDID, future, false),
	}
	signed := signedPresentation(t, holder, credentials)

	pres, err := validator.Validate(context.Background(), signed, WithCollectAll())
	require.Error(t, err)

	var compound *verror.Compound
	require.ErrorAs(t, err, &compound)

	assert.Empty(t, compound.At(0))
	assert.Empty(t, compound.At(2))
	require.Len(t, compound.At(1), 1)
	assert.ErrorIs(t, compound.At(1)[0].Err, verror.ErrExpired)

	require.Len(t, pres.Credentials, 3)
	assert.NotNil(t, pres.Credentials[0])
	assert.Nil(t, pres.Credentials[1])
	assert.NotNil(t, pres.Credentials[2])
}

func TestValidateNonTransferable(t *testing.T) {
	issuer := newIdentity(t, issuerDID)
	holder := newIdentity(t, holderDID)
	validator := NewValidator(newTestResolver(issuer, holder))

	future := time.Now().Add(24 * time.Hour)

	// Subject equals holder: allowed.
	owned := signedPresentation(t, holder, []interface{}{
		signedCredential(t, issuer, holderDID, future, true),
	})
	_, err := validator.Validate(context.Background(), owned)
	assert.NoError(t, err)

	// Subject differs from holder: rejected with the named error.
	borrowed := signedPresentation(t, holder, []interface{}{
		signedCredential(t, issuer, "did:iota:0xee55", future, true),
	})
	_, err = validator.Validate(context.Background(), borrowed)
	require.Error(t, err)
	assert.ErrorIs(t, err, verror.ErrNonTransferable)

	var compound *verror.Compound
	require.ErrorAs(t, err, &compound)
	require.Len(t, compound.Entries, 1)
	assert.Equal(t, 0, compound.Entries[0].Position)
	assert.Equal(t, "nonTransferable", compound.Entries[0].Check)
}

func TestValidateMalformedCredentialEntry(t *testing.T) {
	holder := newIdentity(t, holderDID)
	validator := NewValidator(newTestResolver(holder))

	signed := signedPresentation(t, holder, []interface{}{"not-a-credential"})

	_, err := validator.Validate(context.Background(), signed)
	require.Error(t, err)

	var compound *verror.Compound
	require.ErrorAs(t, err, &compound)
	require.Len(t, compound.Entries, 1)
	assert.Equal(t, 0, compound.Entries[0].Position)
}
