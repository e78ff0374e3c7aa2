package status

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/iotaledger/identity.rs-sub007/credential/common/bitstring"
	"github.com/iotaledger/identity.rs-sub007/credential/common/dataintegrity"
	"github.com/iotaledger/identity.rs-sub007/credential/common/jwt"
	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

const (
	// TypeStatusListEntry is the status descriptor type of the external
	// status list mechanism.
	TypeStatusListEntry = "StatusList2021Entry"
	// TypeStatusListCredential is the credential type of a status list.
	TypeStatusListCredential = "StatusList2021Credential"
	// TypeStatusListSubject is the subject type of a status list.
	TypeStatusListSubject = "StatusList2021"

	// ContextCredentials is the base credentials context.
	ContextCredentials = "https://www.w3.org/2018/credentials/v1"
	// ContextStatusList is the status list context.
	ContextStatusList = "https://w3id.org/vc/status-list/2021/v1"

	// MinStatusListLength is the smallest permitted number of entries.
	// Constructing with fewer is rejected, not warned about.
	MinStatusListLength = 16384

	credentialType = "VerifiableCredential"

	statusPurposeProperty        = "statusPurpose"
	statusListIndexProperty      = "statusListIndex"
	statusListCredentialProperty = "statusListCredential"
)

// Purpose is what a set bit on the status list means.
type Purpose string

const (
	// PurposeRevocation marks permanently invalid credentials.
	PurposeRevocation Purpose = "revocation"
	// PurposeSuspension marks temporarily invalid credentials.
	PurposeSuspension Purpose = "suspension"
)

func parsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeRevocation:
		return PurposeRevocation, nil
	case PurposeSuspension:
		return PurposeSuspension, nil
	default:
		return "", verror.Newf(verror.KindStructural, "invalid status purpose %q", s)
	}
}

// StatusListSubject is the credentialSubject of a status list
// credential, carrying the encoded bit string.
type StatusListSubject struct {
	ID            string `json:"id,omitempty"`
	Type          string `json:"type"`
	StatusPurpose string `json:"statusPurpose"`
	EncodedList   string `json:"encodedList"`
}

// StatusListCredential is an externally hosted credential whose subject
// is a large bit string, one bit per issued credential.
type StatusListCredential struct {
	Context           []string             `json:"@context"`
	ID                string               `json:"id"`
	Type              []string             `json:"type"`
	Issuer            string               `json:"issuer"`
	ValidFrom         string               `json:"validFrom,omitempty"`
	ValidUntil        string               `json:"validUntil,omitempty"`
	CredentialSubject StatusListSubject    `json:"credentialSubject"`
	Proof             *dataintegrity.Proof `json:"proof,omitempty"`

	bits *bitstring.BitString
}

// StatusListOption configures status list construction.
type StatusListOption func(*statusListOptions)

type statusListOptions struct {
	subjectID  string
	validUntil time.Time
	contexts   []string
	types      []string
}

// WithSubjectID sets the id of the credential subject.
func WithSubjectID(id string) StatusListOption {
	return func(o *statusListOptions) {
		o.subjectID = id
	}
}

// WithValidUntil sets the expiration of the status list credential.
func WithValidUntil(t time.Time) StatusListOption {
	return func(o *statusListOptions) {
		o.validUntil = t
	}
}

// WithContexts adds extra JSON-LD contexts; duplicates are discarded.
func WithContexts(contexts ...string) StatusListOption {
	return func(o *statusListOptions) {
		o.contexts = append(o.contexts, contexts...)
	}
}

// WithTypes adds extra credential types; duplicates are discarded.
func WithTypes(types ...string) StatusListOption {
	return func(o *statusListOptions) {
		o.types = append(o.types, types...)
	}
}

// NewStatusListCredential constructs an empty status list of the given
// length. It fails immediately on a length below MinStatusListLength,
// an invalid purpose, a missing id or issuer, or an expiration not
// after the issuance time; nothing is partially constructed.
func NewStatusListCredential(id, issuer string, purpose Purpose, length int, opts ...StatusListOption) (*StatusListCredential, error) {
	options := &statusListOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if id == "" {
		return nil, verror.New(verror.KindConfiguration, "status list credential id is empty")
	}

	if issuer == "" {
		return nil, verror.New(verror.KindConfiguration, "status list credential issuer is empty")
	}

	if _, err := parsePurpose(string(purpose)); err != nil {
		return nil, verror.Wrap(verror.KindConfiguration, "invalid status list purpose", err)
	}

	if length < MinStatusListLength {
		return nil, verror.Newf(verror.KindConfiguration,
			"status list length %d is below the minimum of %d entries", length, MinStatusListLength)
	}

	now := time.Now().UTC()
	if !options.validUntil.IsZero() && !options.validUntil.After(now) {
		return nil, verror.New(verror.KindConfiguration, "status list expiration is not in the future")
	}

	bits := bitstring.New(length)
	encoded, err := bits.Encode()
	if err != nil {
		return nil, verror.Wrap(verror.KindConfiguration, "cannot encode status list", err)
	}

	cred := &StatusListCredential{
		Context:   dedup(append([]string{ContextCredentials, ContextStatusList}, options.contexts...)),
		ID:        id,
		Type:      dedup(append([]string{credentialType, TypeStatusListCredential}, options.types...)),
		Issuer:    issuer,
		ValidFrom: now.Format(time.RFC3339),
		CredentialSubject: StatusListSubject{
			ID:            options.subjectID,
			Type:          TypeStatusListSubject,
			StatusPurpose: string(purpose),
			EncodedList:   encoded,
		},
		bits: bits,
	}

	if !options.validUntil.IsZero() {
		cred.ValidUntil = options.validUntil.UTC().Format(time.RFC3339)
	}

	return cred, nil
}

// dedup keeps the first occurrence of each element, preserving order.
func dedup(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}

	return out
}

// Purpose returns the declared status purpose.
func (s *StatusListCredential) Purpose() Purpose {
	return Purpose(s.CredentialSubject.StatusPurpose)
}

// Len returns the number of entries.
func (s *StatusListCredential) Len() (int, error) {
	if err := s.ensureBits(); err != nil {
		return 0, err
	}

	return s.bits.Len(), nil
}

// Get reads the bit at index.
func (s *StatusListCredential) Get(index int) (bool, error) {
	if err := s.ensureBits(); err != nil {
		return false, err
	}

	set, err := s.bits.Get(index)
	if err != nil {
		return false, verror.Wrap(verror.KindStructural, "status list lookup failed", err)
	}

	return set, nil
}

// Set writes the bit at index and refreshes the encoded list.
func (s *StatusListCredential) Set(index int, value bool) error {
	return s.Update(map[int]bool{index: value})
}

// Update applies a batch of (index, value) pairs transactionally: every
// index is validated before any bit is written, so an out-of-range
// index leaves the list unchanged.
func (s *StatusListCredential) Update(entries map[int]bool) error {
	if err := s.ensureBits(); err != nil {
		return err
	}

	for index := range entries {
		if index < 0 || index >= s.bits.Len() {
			return verror.Newf(verror.KindConfiguration,
				"status list index %d is out of range [0, %d), batch not applied", index, s.bits.Len())
		}
	}

	for index, value := range entries {
		if err := s.bits.Set(index, value); err != nil {
			return verror.Wrap(verror.KindConfiguration, "status list update failed", err)
		}
	}

	return s.refreshEncoding()
}

// Entry builds the status descriptor pointing a credential at index on
// this list.
func (s *StatusListCredential) Entry(index int) (Descriptor, error) {
	if err := s.ensureBits(); err != nil {
		return Descriptor{}, err
	}

	if index < 0 || index >= s.bits.Len() {
		return Descriptor{}, verror.Newf(verror.KindConfiguration,
			"status list index %d is out of range [0, %d)", index, s.bits.Len())
	}

	return Descriptor{
		ID:   fmt.Sprintf("%s#%d", s.ID, index),
		Type: TypeStatusListEntry,
		Properties: map[string]interface{}{
			statusPurposeProperty:        s.CredentialSubject.StatusPurpose,
			statusListIndexProperty:      strconv.Itoa(index),
			statusListCredentialProperty: s.ID,
		},
	}, nil
}

// Sign attaches an embedded proof over the credential.
func (s *StatusListCredential) Sign(privKeyHex, verificationMethodURL string) error {
	doc, err := s.asMap()
	if err != nil {
		return err
	}

	proof, err := dataintegrity.CreateProof(doc, privKeyHex, verificationMethodURL)
	if err != nil {
		return verror.Wrap(verror.KindConfiguration, "cannot sign status list credential", err)
	}

	s.Proof = proof

	return nil
}

func (s *StatusListCredential) asMap() (map[string]interface{}, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, verror.Wrap(verror.KindConfiguration, "cannot marshal status list credential", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, verror.Wrap(verror.KindConfiguration, "cannot marshal status list credential", err)
	}

	return doc, nil
}

func (s *StatusListCredential) refreshEncoding() error {
	encoded, err := s.bits.Encode()
	if err != nil {
		return verror.Wrap(verror.KindConfiguration, "cannot encode status list", err)
	}

	s.CredentialSubject.EncodedList = encoded

	return nil
}

// ensureBits decodes the encoded list on first access after parsing.
func (s *StatusListCredential) ensureBits() error {
	if s.bits != nil {
		return nil
	}

	if s.CredentialSubject.EncodedList == "" {
		return verror.New(verror.KindStructural, "status list credential has no encodedList")
	}

	// The addressable length is whatever the encoded data covers.
	decoded, err := bitstring.Decode(s.CredentialSubject.EncodedList, 0)
	if err != nil {
		return verror.Wrap(verror.KindRevocation, "cannot decode status list", err)
	}

	s.bits = decoded

	return nil
}

// ParseStatusListCredential parses a status list credential from either
// its compact token or plain JSON form.
func ParseStatusListCredential(raw []byte) (*StatusListCredential, error) {
	trimmed := strings.TrimSpace(strings.Trim(string(raw), `"`))

	var doc []byte
	if jwt.IsCompact(trimmed) {
		token, err := jwt.Decode(trimmed)
		if err != nil {
			return nil, verror.Wrap(verror.KindStructural, "malformed status list token", err)
		}

		vcClaim, err := token.ClaimObject("vc")
		if err != nil {
			return nil, verror.Wrap(verror.KindStructural, "status list token has no vc claim", err)
		}

		doc, err = json.Marshal(vcClaim)
		if err != nil {
			return nil, verror.Wrap(verror.KindStructural, "malformed status list token", err)
		}
	} else {
		doc = raw
	}

	var cred StatusListCredential
	if err := json.Unmarshal(doc, &cred); err != nil {
		return nil, verror.Wrap(verror.KindStructural, "malformed status list credential JSON", err)
	}

	if !slices.Contains(cred.Type, TypeStatusListCredential) {
		return nil, verror.Newf(verror.KindStructural,
			"credential type %v does not include %s", cred.Type, TypeStatusListCredential)
	}

	if cred.CredentialSubject.Type != TypeStatusListSubject {
		return nil, verror.Newf(verror.KindStructural,
			"status list subject type is %q, expected %q", cred.CredentialSubject.Type, TypeStatusListSubject)
	}

	if _, err := parsePurpose(cred.CredentialSubject.StatusPurpose); err != nil {
		return nil, err
	}

	return &cred, nil
}

// checkStatusList evaluates an external status list entry: it fetches
// the referenced status list credential and tests the entry's bit.
func checkStatusList(ctx context.Context, desc Descriptor, cfg Config) error {
	purposeStr, err := desc.property(statusPurposeProperty)
	if err != nil {
		return err
	}

	purpose, err := parsePurpose(purposeStr)
	if err != nil {
		return err
	}

	indexStr, err := desc.property(statusListIndexProperty)
	if err != nil {
		return err
	}

	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		return verror.Newf(verror.KindStructural, "malformed %s %q", statusListIndexProperty, indexStr)
	}

	listURL, err := desc.property(statusListCredentialProperty)
	if err != nil {
		return err
	}

	raw, err := cfg.fetcher()(ctx, listURL)
	if err != nil {
		return verror.Wrap(verror.KindRevocation,
			fmt.Sprintf("cannot fetch status list credential %q", listURL), err)
	}

	cred, err := ParseStatusListCredential(raw)
	if err != nil {
		return err
	}

	if Purpose(cred.CredentialSubject.StatusPurpose) != purpose {
		return verror.Newf(verror.KindStructural,
			"status list purpose is %q, entry expects %q", cred.CredentialSubject.StatusPurpose, purpose)
	}

	if cred.ValidUntil != "" {
		until, err := time.Parse(time.RFC3339, cred.ValidUntil)
		if err != nil {
			return verror.Wrap(verror.KindStructural, "malformed status list validUntil", err)
		}

		if cfg.now().After(until) {
			return verror.Wrap(verror.KindTemporal, "status list credential has expired", verror.ErrExpired)
		}
	}

	set, err := cred.Get(index)
	if err != nil {
		return err
	}

	if set {
		if purpose == PurposeSuspension {
			return verror.Wrap(verror.KindRevocation,
				fmt.Sprintf("credential index %d is suspended", index), verror.ErrSuspended)
		}

		return verror.Wrap(verror.KindRevocation,
			fmt.Sprintf("credential index %d is revoked", index), verror.ErrRevoked)
	}

	return nil
}
