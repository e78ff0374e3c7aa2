// Package canonical produces the canonical form of JSON-LD documents
// for signing and verification of embedded proofs.
package canonical

import (
	"crypto/sha256"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

// defaultDocumentLoader is a shared caching loader so remote contexts
// are fetched once per process, not once per call.
var defaultDocumentLoader ld.DocumentLoader

func init() {
	innerLoader := ld.NewDefaultDocumentLoader(nil)
	defaultDocumentLoader = ld.NewCachingDocumentLoader(innerLoader)
}

// Canonicalize normalizes a JSON-LD document to its URDNA2015 n-quads
// form. The proof field, if present, must be removed by the caller
// before canonicalizing.
func Canonicalize(doc map[string]interface{}) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("failed to canonicalize document: document is nil")
	}

	processor := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Format = "application/n-quads"
	options.Algorithm = ld.AlgorithmURDNA2015
	options.DocumentLoader = defaultDocumentLoader

	canonicalized, err := processor.Normalize(doc, options)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}

	return []byte(canonicalized.(string)), nil
}

// WithoutProof returns a shallow copy of doc with the proof field
// removed.
func WithoutProof(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k != "proof" {
			out[k] = v
		}
	}

	return out
}

// Digest computes the SHA-256 digest of data.
func Digest(data []byte) []byte {
	hash := sha256.Sum256(data)

	return hash[:]
}
