// Package jwt implements the compact signed-token layer: decoding a
// token into its protected header and claims, signing claims on the
// issue path, and the pluggable signature verifier contract used by the
// validators.
package jwt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Supported signature algorithm identifiers. The set is closed: a token
// declaring anything else is rejected at decode time.
const (
	AlgES256K = "ES256K"
	AlgEdDSA  = "EdDSA"
)

var compactTokenPattern = regexp.MustCompile(`^[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*$`)

// Header is the protected header of a compact signed token.
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid,omitempty"`
	Typ string `json:"typ,omitempty"`
}

// Token is a decoded but not yet trusted compact token. SigningInput is
// the exact header.payload string the signature covers.
type Token struct {
	Header       Header
	Claims       map[string]interface{}
	SigningInput string
	Signature    []byte
	Raw          string
}

// IsCompact reports whether s has the three-part compact token shape.
func IsCompact(s string) bool {
	return compactTokenPattern.MatchString(s)
}

// Decode parses a compact token into header and claims without
// performing any signature verification. It fails on malformed base64
// segments, malformed JSON, and a missing or unsupported algorithm.
func Decode(raw string) (*Token, error) {
	raw = strings.Trim(raw, `"`)

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid compact token: expected 3 segments, got %d", len(parts))
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("malformed token header segment: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("malformed token header JSON: %w", err)
	}

	if header.Alg == "" {
		return nil, fmt.Errorf("token header is missing the alg field")
	}

	if header.Alg != AlgES256K && header.Alg != AlgEdDSA {
		return nil, fmt.Errorf("unsupported signature algorithm %q", header.Alg)
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed token payload segment: %w", err)
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, fmt.Errorf("malformed token claims JSON: %w", err)
	}

	var signature []byte
	if parts[2] != "" {
		signature, err = base64.RawURLEncoding.DecodeString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("malformed token signature segment: %w", err)
		}
	}

	return &Token{
		Header:       header,
		Claims:       claims,
		SigningInput: parts[0] + "." + parts[1],
		Signature:    signature,
		Raw:          raw,
	}, nil
}

// ClaimObject extracts a nested JSON object claim, e.g. the "vc" or "vp"
// claim carrying the credential or presentation body.
func (t *Token) ClaimObject(name string) (map[string]interface{}, error) {
	value, ok := t.Claims[name]
	if !ok {
		return nil, fmt.Errorf("claim %q not found in token", name)
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("claim %q is not a JSON object", name)
	}

	return obj, nil
}
