package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

func TestNewTimeframeStatusTruncation(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 42, 37, 123456, time.UTC)

	minute, err := NewTimeframeStatus(GranularityMinute, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15T10:42:00Z", minute.Properties[startValidityProperty])
	assert.Equal(t, "minute", minute.Properties[granularityProperty])

	hour, err := NewTimeframeStatus(GranularityHour, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15T10:00:00Z", hour.Properties[startValidityProperty])
	assert.Equal(t, "hour", hour.Properties[granularityProperty])

	_, err = NewTimeframeStatus(Granularity("week"), now)
	assert.Error(t, err)
}

func TestCheckTimeframe(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 42, 37, 0, time.UTC)

	desc, err := NewTimeframeStatus(GranularityMinute, now)
	require.NoError(t, err)

	// Inside the window.
	assert.NoError(t, checkTimeframe(desc, now))
	assert.NoError(t, checkTimeframe(desc, time.Date(2024, 3, 15, 10, 42, 59, 0, time.UTC)))

	// Window lapsed.
	err = checkTimeframe(desc, time.Date(2024, 3, 15, 10, 43, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, verror.ErrRevoked))

	// Before the window.
	err = checkTimeframe(desc, time.Date(2024, 3, 15, 10, 41, 59, 0, time.UTC))
	assert.True(t, errors.Is(err, verror.ErrRevoked))
}

func TestCheckTimeframeStructuralErrors(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		props map[string]interface{}
	}{
		{name: "missing start", props: map[string]interface{}{granularityProperty: "minute"}},
		{name: "missing granularity", props: map[string]interface{}{startValidityProperty: "2024-03-15T10:42:00Z"}},
		{name: "malformed start", props: map[string]interface{}{startValidityProperty: "yesterday", granularityProperty: "minute"}},
		{name: "malformed granularity", props: map[string]interface{}{startValidityProperty: "2024-03-15T10:42:00Z", granularityProperty: "fortnight"}},
		{name: "non-string start", props: map[string]interface{}{startValidityProperty: 12345, granularityProperty: "minute"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTimeframe(Descriptor{Type: TypeTimeframe, Properties: tt.props}, now)
			assert.Error(t, err)
			assert.Equal(t, verror.KindStructural, verror.KindOf(err))
			assert.False(t, errors.Is(err, verror.ErrRevoked), "structural failure is never treated as a revocation verdict")
		})
	}
}

func TestCheckDispatchUnknownType(t *testing.T) {
	desc := Descriptor{
		Type:       "CredentialStatusList2017",
		Properties: map[string]interface{}{},
	}

	err := Check(context.Background(), desc, nil, Config{})
	assert.True(t, errors.Is(err, verror.ErrUnknownStatusType))

	// Distinct from a decode failure on a recognized type.
	corrupt := Descriptor{
		ID:         issuerID + "#revocation",
		Type:       TypeRevocationBitmap,
		Properties: map[string]interface{}{"revocationBitmapIndex": "not-a-number"},
	}

	err = Check(context.Background(), corrupt, issuerDocWithBitmap(t), Config{})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, verror.ErrUnknownStatusType))
}

func TestCheckDispatchTimeframeUsesClock(t *testing.T) {
	desc, err := NewTimeframeStatus(GranularityHour, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	inside := Config{Clock: func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }}
	assert.NoError(t, Check(context.Background(), desc, nil, inside))

	outside := Config{Clock: func() time.Time { return time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC) }}
	assert.Error(t, Check(context.Background(), desc, nil, outside))
}
