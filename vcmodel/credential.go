// Package vcmodel is the W3C Verifiable Credential / Verifiable
// Presentation data model of spec.md §3, plus the CredentialSubject
// extension registry of spec.md §9.
package vcmodel

import (
	"encoding/json"
	"fmt"
	"time"
)

// CredentialStatus is spec.md §3's revocation pointer embedded in a VC.
type CredentialStatus struct {
	StatusListIndex         int    `json:"statusListIndex"`
	StatusListCredentialUrl string `json:"statusListCredentialUrl"`
	StatusPurpose           string `json:"statusPurpose"`
}

// VerifiableCredential is the document an issuer asserts about a
// subject (spec.md §3).
type VerifiableCredential struct {
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	ExpirationDate    time.Time         `json:"expirationDate"`
	CredentialStatus  *CredentialStatus `json:"credentialStatus,omitempty"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

// NewVerifiableCredential builds a VC, enforcing the invariants named
// in spec.md §3: type[0] == "VerifiableCredential" and
// expirationDate > issuanceDate.
func NewVerifiableCredential(id string, types []string, issuer string, issuanceDate, expirationDate time.Time, subject CredentialSubject) (*VerifiableCredential, error) {
	if len(types) == 0 || types[0] != "VerifiableCredential" {
		types = append([]string{"VerifiableCredential"}, types...)
	}
	if !expirationDate.After(issuanceDate) {
		return nil, fmt.Errorf("expirationDate %s must be after issuanceDate %s", expirationDate, issuanceDate)
	}
	return &VerifiableCredential{
		ID:                id,
		Type:              types,
		Issuer:            issuer,
		IssuanceDate:      issuanceDate,
		ExpirationDate:    expirationDate,
		CredentialSubject: subject,
	}, nil
}

// credentialWire is the JSON-level shape used only for
// marshal/unmarshal, since CredentialSubject is an interface.
type credentialWire struct {
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	ExpirationDate    time.Time         `json:"expirationDate"`
	CredentialStatus  *CredentialStatus `json:"credentialStatus,omitempty"`
	CredentialSubject json.RawMessage   `json:"credentialSubject"`
}

func (c VerifiableCredential) MarshalJSON() ([]byte, error) {
	subjectJSON, err := json.Marshal(c.CredentialSubject)
	if err != nil {
		return nil, fmt.Errorf("marshal credentialSubject: %w", err)
	}
	return json.Marshal(credentialWire{
		ID:                c.ID,
		Type:              c.Type,
		Issuer:            c.Issuer,
		IssuanceDate:      c.IssuanceDate,
		ExpirationDate:    c.ExpirationDate,
		CredentialStatus:  c.CredentialStatus,
		CredentialSubject: subjectJSON,
	})
}

func (c *VerifiableCredential) UnmarshalJSON(data []byte) error {
	var wire credentialWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("unmarshal credential: %w", err)
	}
	subject, err := decodeCredentialSubject(wire.CredentialSubject)
	if err != nil {
		return fmt.Errorf("unmarshal credentialSubject: %w", err)
	}
	c.ID = wire.ID
	c.Type = wire.Type
	c.Issuer = wire.Issuer
	c.IssuanceDate = wire.IssuanceDate
	c.ExpirationDate = wire.ExpirationDate
	c.CredentialStatus = wire.CredentialStatus
	c.CredentialSubject = subject
	return nil
}

// HasType reports whether t appears anywhere in c.Type.
func (c *VerifiableCredential) HasType(t string) bool {
	for _, ct := range c.Type {
		if ct == t {
			return true
		}
	}
	return false
}
