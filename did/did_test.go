package did

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		method  string
		msid    string
		wantErr bool
	}{
		{name: "iota", input: "did:iota:0x1234abcd", method: "iota", msid: "0x1234abcd"},
		{name: "key", input: "did:key:z6MkhaXgBZD", method: "key", msid: "z6MkhaXgBZD"},
		{name: "nested colons", input: "did:web:example.com:user:alice", method: "web", msid: "example.com:user:alice"},
		{name: "wrong scheme", input: "urn:iota:0x1234", wantErr: true},
		{name: "missing method id", input: "did:iota:", wantErr: true},
		{name: "missing method", input: "did::0x1234", wantErr: true},
		{name: "uppercase method", input: "did:IOTA:0x1234", wantErr: true},
		{name: "no separators", input: "did-iota-0x1234", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.method, d.Method())
			assert.Equal(t, tt.msid, d.MethodSpecificID())
			assert.Equal(t, tt.input, d.String())
		})
	}
}

func TestEqual(t *testing.T) {
	a := MustParse("did:iota:0xaa")
	b := MustParse("did:iota:0xaa")
	c := MustParse("did:iota:0xbb")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.IsZero())
	assert.True(t, DID{}.IsZero())
}
