package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/identity.rs-sub007/credential/common/bitmap"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/did"
)

const issuerID = "did:iota:0xissuer"

func issuerDocWithBitmap(t *testing.T, revoked ...uint32) *did.Document {
	t.Helper()

	bm := bitmap.New()
	for _, index := range revoked {
		bm.Revoke(index)
	}

	svc, err := NewRevocationBitmapService(issuerID+"#revocation", bm)
	require.NoError(t, err)

	return &did.Document{
		ID:      issuerID,
		Service: []did.Service{*svc},
	}
}

func TestNewRevocationBitmapService(t *testing.T) {
	_, err := NewRevocationBitmapService("did:iota:0xissuer", bitmap.New())
	assert.Error(t, err, "service id without fragment is rejected")
	assert.Equal(t, verror.KindConfiguration, verror.KindOf(err))

	svc, err := NewRevocationBitmapService(issuerID+"#revocation", bitmap.New())
	require.NoError(t, err)
	assert.Equal(t, TypeRevocationBitmap, svc.Type)

	endpoint, ok := svc.ServiceEndpoint.One()
	require.True(t, ok)
	assert.Equal(t, "data:application/octet-stream;base64,eJyzMmAAAwADKABr", endpoint)
}

func TestBitmapFromServiceRejectsWrongShape(t *testing.T) {
	tests := []struct {
		name string
		svc  did.Service
	}{
		{
			name: "wrong type tag",
			svc: did.Service{
				ID:              issuerID + "#revocation",
				Type:            "LinkedDomains",
				ServiceEndpoint: did.NewEndpointOne("data:application/octet-stream;base64,eJyzMmAAAwADKABr"),
			},
		},
		{
			name: "set endpoint",
			svc: did.Service{
				ID:              issuerID + "#revocation",
				Type:            TypeRevocationBitmap,
				ServiceEndpoint: did.NewEndpointSet("data:application/octet-stream;base64,eJyzMmAAAwADKABr"),
			},
		},
		{
			name: "map endpoint",
			svc: did.Service{
				ID:              issuerID + "#revocation",
				Type:            TypeRevocationBitmap,
				ServiceEndpoint: did.NewEndpointMap(map[string][]string{"main": {"data:application/octet-stream;base64,eJyzMmAAAwADKABr"}}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BitmapFromService(&tt.svc)
			assert.Error(t, err)
			assert.Equal(t, verror.KindStructural, verror.KindOf(err))
		})
	}
}

func TestCheckRevocationBitmap(t *testing.T) {
	doc := issuerDocWithBitmap(t, 5)

	revoked := NewRevocationBitmapStatus(issuerID+"#revocation", 5)
	err := checkRevocationBitmap(revoked, doc)
	assert.True(t, errors.Is(err, verror.ErrRevoked))
	assert.Equal(t, verror.KindRevocation, verror.KindOf(err))

	clear := NewRevocationBitmapStatus(issuerID+"#revocation", 6)
	assert.NoError(t, checkRevocationBitmap(clear, doc))
}

func TestCheckRevocationBitmapStructuralErrors(t *testing.T) {
	doc := issuerDocWithBitmap(t)

	tests := []struct {
		name string
		desc Descriptor
	}{
		{
			name: "missing service id",
			desc: Descriptor{Type: TypeRevocationBitmap, Properties: map[string]interface{}{"revocationBitmapIndex": "1"}},
		},
		{
			name: "missing index property",
			desc: Descriptor{ID: issuerID + "#revocation", Type: TypeRevocationBitmap, Properties: map[string]interface{}{}},
		},
		{
			name: "non-string index",
			desc: Descriptor{ID: issuerID + "#revocation", Type: TypeRevocationBitmap, Properties: map[string]interface{}{"revocationBitmapIndex": 5.0}},
		},
		{
			name: "non-numeric index",
			desc: Descriptor{ID: issuerID + "#revocation", Type: TypeRevocationBitmap, Properties: map[string]interface{}{"revocationBitmapIndex": "five"}},
		},
		{
			name: "unknown service",
			desc: Descriptor{ID: issuerID + "#other", Type: TypeRevocationBitmap, Properties: map[string]interface{}{"revocationBitmapIndex": "1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRevocationBitmap(tt.desc, doc)
			assert.Error(t, err)
			assert.Equal(t, verror.KindStructural, verror.KindOf(err))
			assert.False(t, errors.Is(err, verror.ErrRevoked))
		})
	}
}

func TestUpdateRevocationBitmap(t *testing.T) {
	doc := issuerDocWithBitmap(t)

	require.NoError(t, UpdateRevocationBitmap(doc, "#revocation", []uint32{1, 5, 99}, nil))

	svc, err := doc.FindService("#revocation")
	require.NoError(t, err)
	bm, err := BitmapFromService(svc)
	require.NoError(t, err)
	assert.True(t, bm.IsRevoked(5))
	assert.True(t, bm.IsRevoked(99))
	assert.False(t, bm.IsRevoked(2))

	require.NoError(t, UpdateRevocationBitmap(doc, "#revocation", nil, []uint32{5}))

	svc, err = doc.FindService("#revocation")
	require.NoError(t, err)
	bm, err = BitmapFromService(svc)
	require.NoError(t, err)
	assert.False(t, bm.IsRevoked(5))
	assert.True(t, bm.IsRevoked(1))

	assert.Error(t, UpdateRevocationBitmap(doc, "#missing", []uint32{1}, nil))
}
