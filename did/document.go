package did

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the resolved state for a DID: its verification methods and
// services. It is read-only during validation; the only sanctioned
// mutation path is replacing a service endpoint through the embedded
// status mechanism.
type Document struct {
	Context            []string               `json:"@context,omitempty"`
	ID                 string                 `json:"id"`
	Controller         interface{}            `json:"controller,omitempty"` // string or []string
	VerificationMethod []VerificationMethod   `json:"verificationMethod,omitempty"`
	Authentication     []string               `json:"authentication,omitempty"`
	AssertionMethod    []string               `json:"assertionMethod,omitempty"`
	Service            []Service              `json:"service,omitempty"`
	Metadata           map[string]interface{} `json:"didDocumentMetadata,omitempty"`
}

// VerificationMethod is a key descriptor published in a DID Document.
// Exactly one of the public key fields is expected to be populated.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyHex       string `json:"publicKeyHex,omitempty"`
	PublicKeyMultibase string `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       *JWK   `json:"publicKeyJwk,omitempty"`
}

// JWK is the subset of a JSON Web Key the document model carries.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y,omitempty"`
}

// Service is a service entry on a DID Document.
type Service struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	ServiceEndpoint ServiceEndpoint `json:"serviceEndpoint"`
}

// EndpointKind discriminates the shape of a service endpoint.
type EndpointKind int

const (
	// EndpointOne is a single URL.
	EndpointOne EndpointKind = iota + 1
	// EndpointSet is an ordered set of URLs.
	EndpointSet
	// EndpointMap is a map from keys to URL sets.
	EndpointMap
)

// ServiceEndpoint is the endpoint of a service: one URL, a set of URLs,
// or a URL-keyed map. The zero value has no kind and marshals to null.
type ServiceEndpoint struct {
	kind EndpointKind
	one  string
	set  []string
	m    map[string][]string
}

// NewEndpointOne creates a single-URL endpoint.
func NewEndpointOne(url string) ServiceEndpoint {
	return ServiceEndpoint{kind: EndpointOne, one: url}
}

// NewEndpointSet creates a URL-set endpoint.
func NewEndpointSet(urls ...string) ServiceEndpoint {
	return ServiceEndpoint{kind: EndpointSet, set: urls}
}

// NewEndpointMap creates a map endpoint.
func NewEndpointMap(m map[string][]string) ServiceEndpoint {
	return ServiceEndpoint{kind: EndpointMap, m: m}
}

// Kind returns the endpoint shape, or 0 for the zero endpoint.
func (e ServiceEndpoint) Kind() EndpointKind {
	return e.kind
}

// One returns the single URL and whether the endpoint has that shape.
func (e ServiceEndpoint) One() (string, bool) {
	return e.one, e.kind == EndpointOne
}

// Set returns the URL set and whether the endpoint has that shape.
func (e ServiceEndpoint) Set() ([]string, bool) {
	return e.set, e.kind == EndpointSet
}

// Map returns the URL map and whether the endpoint has that shape.
func (e ServiceEndpoint) Map() (map[string][]string, bool) {
	return e.m, e.kind == EndpointMap
}

// MarshalJSON writes the endpoint in its native JSON shape.
func (e ServiceEndpoint) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case EndpointOne:
		return json.Marshal(e.one)
	case EndpointSet:
		return json.Marshal(e.set)
	case EndpointMap:
		return json.Marshal(e.m)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a string, an array of strings or a string-keyed
// map of string arrays.
func (e *ServiceEndpoint) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*e = NewEndpointOne(one)
		return nil
	}

	var set []string
	if err := json.Unmarshal(data, &set); err == nil {
		*e = NewEndpointSet(set...)
		return nil
	}

	var m map[string][]string
	if err := json.Unmarshal(data, &m); err == nil {
		*e = NewEndpointMap(m)
		return nil
	}

	return fmt.Errorf("service endpoint is neither a URL, a URL set nor a URL map")
}

// ResolveVerificationMethod finds the verification method matching a key
// id. A bare fragment ("#key-1") matches against the document id.
func (d *Document) ResolveVerificationMethod(kid string) (*VerificationMethod, error) {
	if kid == "" {
		return nil, fmt.Errorf("empty verification method id")
	}

	if strings.HasPrefix(kid, "#") {
		kid = d.ID + kid
	}

	for i := range d.VerificationMethod {
		vm := &d.VerificationMethod[i]
		if vm.ID == kid || d.ID+"#"+strings.TrimPrefix(vm.ID, "#") == kid {
			return vm, nil
		}
	}

	return nil, fmt.Errorf("verification method %q not found in document %q", kid, d.ID)
}

// FindService returns the service with the given id, which may be given
// as a bare fragment.
func (d *Document) FindService(id string) (*Service, error) {
	if strings.HasPrefix(id, "#") {
		id = d.ID + id
	}

	for i := range d.Service {
		svc := &d.Service[i]
		if svc.ID == id || d.ID+"#"+strings.TrimPrefix(svc.ID, "#") == id {
			return svc, nil
		}
	}

	return nil, fmt.Errorf("service %q not found in document %q", id, d.ID)
}

// Deactivated reports whether the document metadata flags the DID as
// deactivated.
func (d *Document) Deactivated() bool {
	v, ok := d.Metadata["deactivated"].(bool)

	return ok && v
}
