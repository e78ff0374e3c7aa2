// Package bitmap implements the compressed revocation bitmap used by the
// embedded bitmap status mechanism. The serialized form is a roaring
// bitmap, zlib-compressed, base64-encoded and framed as a data URL, so
// independent implementations interoperate on the exact same bytes.
package bitmap

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/iotaledger/identity.rs-sub007/credential/common/util"
)

// DataURLPrefix frames the serialized bitmap as a data URL payload.
const DataURLPrefix = "data:application/octet-stream;base64,"

// RevocationBitmap is a compact set of revoked credential indices.
// The zero value is not usable; construct with New.
type RevocationBitmap struct {
	bm *roaring.Bitmap
}

// New creates an empty revocation bitmap.
func New() *RevocationBitmap {
	return &RevocationBitmap{bm: roaring.New()}
}

// Revoke marks index as revoked. It returns true when the index was not
// previously revoked, false otherwise; revoking twice is a no-op.
func (r *RevocationBitmap) Revoke(index uint32) bool {
	return r.bm.CheckedAdd(index)
}

// Unrevoke clears index. It returns true when the index was revoked,
// false when it was a no-op.
func (r *RevocationBitmap) Unrevoke(index uint32) bool {
	return r.bm.CheckedRemove(index)
}

// IsRevoked reports whether index is revoked.
func (r *RevocationBitmap) IsRevoked(index uint32) bool {
	return r.bm.Contains(index)
}

// Len returns the number of revoked indices.
func (r *RevocationBitmap) Len() uint64 {
	return r.bm.GetCardinality()
}

// Equal reports whether both bitmaps hold the same set of indices.
func (r *RevocationBitmap) Equal(other *RevocationBitmap) bool {
	if other == nil {
		return false
	}

	return r.bm.Equals(other.bm)
}

// Serialize encodes the bitmap as a data URL: the roaring portable
// serialization, zlib-compressed and base64-encoded.
func (r *RevocationBitmap) Serialize() (string, error) {
	raw, err := r.bm.ToBytes()
	if err != nil {
		return "", fmt.Errorf("failed to serialize bitmap: %w", err)
	}

	compressed, err := util.ZlibCompress(raw)
	if err != nil {
		return "", fmt.Errorf("failed to compress bitmap: %w", err)
	}

	return DataURLPrefix + base64.StdEncoding.EncodeToString(compressed), nil
}

// Deserialize decodes a data URL produced by Serialize. It fails with a
// decoding error on malformed base64, corrupt compressed data or a
// corrupt bitmap structure.
func Deserialize(dataURL string) (*RevocationBitmap, error) {
	payload, err := payloadFromDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed base64 bitmap payload: %w", err)
	}

	raw, err := util.ZlibDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress bitmap: %w", err)
	}

	bm := roaring.New()
	if err := bm.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("corrupt bitmap structure: %w", err)
	}

	return &RevocationBitmap{bm: bm}, nil
}

// payloadFromDataURL strips the data URL framing and returns the base64
// payload. The media type is not enforced, but the base64 marker is.
func payloadFromDataURL(dataURL string) (string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", fmt.Errorf("endpoint is not a data URL: %q", truncate(dataURL))
	}

	header, payload, found := strings.Cut(dataURL[len("data:"):], ",")
	if !found {
		return "", fmt.Errorf("data URL is missing its payload separator")
	}

	if !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("data URL payload is not base64-encoded")
	}

	return payload, nil
}

func truncate(s string) string {
	const max = 32
	if len(s) > max {
		return s[:max] + "..."
	}

	return s
}
