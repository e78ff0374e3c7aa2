package status

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iotaledger/identity.rs-sub007/credential/common/bitmap"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/did"
)

// TypeRevocationBitmap is the service and status type of the embedded
// bitmap mechanism.
const TypeRevocationBitmap = "RevocationBitmap2022"

// revocationBitmapIndexProperty holds the credential's bit index,
// encoded as a decimal string.
const revocationBitmapIndexProperty = "revocationBitmapIndex"

// NewRevocationBitmapStatus builds the status descriptor embedded into
// a credential: serviceID points at the issuer's bitmap service and
// index is the bit assigned to the credential.
func NewRevocationBitmapStatus(serviceID string, index uint32) Descriptor {
	return Descriptor{
		ID:   serviceID,
		Type: TypeRevocationBitmap,
		Properties: map[string]interface{}{
			revocationBitmapIndexProperty: strconv.FormatUint(uint64(index), 10),
		},
	}
}

// NewRevocationBitmapService builds the issuer document service that
// carries the bitmap. The service id must be a URL with a fragment.
func NewRevocationBitmapService(serviceID string, bm *bitmap.RevocationBitmap) (*did.Service, error) {
	if !strings.Contains(serviceID, "#") {
		return nil, verror.Newf(verror.KindConfiguration,
			"revocation bitmap service id %q has no fragment", serviceID)
	}

	endpoint, err := bm.Serialize()
	if err != nil {
		return nil, verror.Wrap(verror.KindConfiguration, "cannot serialize revocation bitmap", err)
	}

	return &did.Service{
		ID:              serviceID,
		Type:            TypeRevocationBitmap,
		ServiceEndpoint: did.NewEndpointOne(endpoint),
	}, nil
}

// BitmapFromService extracts and decodes the bitmap from a service. The
// service's declared type must equal the mechanism type exactly, and
// the endpoint must be a single data URL; a set or map endpoint is a
// structural error.
func BitmapFromService(svc *did.Service) (*bitmap.RevocationBitmap, error) {
	if svc.Type != TypeRevocationBitmap {
		return nil, verror.Newf(verror.KindStructural,
			"service %q has type %q, expected %q", svc.ID, svc.Type, TypeRevocationBitmap)
	}

	endpoint, ok := svc.ServiceEndpoint.One()
	if !ok {
		return nil, verror.Newf(verror.KindStructural,
			"service %q endpoint is not a single data URL", svc.ID)
	}

	bm, err := bitmap.Deserialize(endpoint)
	if err != nil {
		return nil, verror.Wrap(verror.KindRevocation,
			fmt.Sprintf("cannot decode revocation bitmap of service %q", svc.ID), err)
	}

	return bm, nil
}

// UpdateRevocationBitmap applies revocations and un-revocations to the
// bitmap service on doc and re-serializes the bitmap into the service
// endpoint. This is the only mutation path for the embedded bitmap; the
// whole batch is applied to a decoded copy first, so a failure leaves
// the document unchanged.
func UpdateRevocationBitmap(doc *did.Document, serviceID string, revoke, unrevoke []uint32) error {
	svc, err := doc.FindService(serviceID)
	if err != nil {
		return verror.Wrap(verror.KindConfiguration, "cannot update revocation bitmap", err)
	}

	bm, err := BitmapFromService(svc)
	if err != nil {
		return err
	}

	for _, index := range revoke {
		bm.Revoke(index)
	}
	for _, index := range unrevoke {
		bm.Unrevoke(index)
	}

	endpoint, err := bm.Serialize()
	if err != nil {
		return verror.Wrap(verror.KindConfiguration, "cannot serialize revocation bitmap", err)
	}

	svc.ServiceEndpoint = did.NewEndpointOne(endpoint)

	return nil
}

// checkRevocationBitmap locates the bitmap service named by the
// descriptor on the issuer's document and tests the credential's bit.
func checkRevocationBitmap(desc Descriptor, issuerDoc *did.Document) error {
	if issuerDoc == nil {
		return verror.New(verror.KindStructural, "no issuer document available for bitmap status check")
	}

	if desc.ID == "" {
		return verror.New(verror.KindStructural, "revocation bitmap status has no service id")
	}

	indexStr, err := desc.property(revocationBitmapIndexProperty)
	if err != nil {
		return err
	}

	index, err := strconv.ParseUint(indexStr, 10, 32)
	if err != nil {
		return verror.Wrap(verror.KindStructural,
			fmt.Sprintf("malformed %s %q", revocationBitmapIndexProperty, indexStr), err)
	}

	svc, err := issuerDoc.FindService(desc.ID)
	if err != nil {
		return verror.Wrap(verror.KindStructural, "revocation bitmap service not found", err)
	}

	bm, err := BitmapFromService(svc)
	if err != nil {
		return err
	}

	if bm.IsRevoked(uint32(index)) {
		return verror.Wrap(verror.KindRevocation,
			fmt.Sprintf("credential index %d is revoked", index), verror.ErrRevoked)
	}

	return nil
}
