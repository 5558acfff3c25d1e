package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

type CredentialType string

const (
	CredentialBooking   CredentialType = "booking"
	CredentialShortTrip CredentialType = "short_trip"
	CredentialCard      CredentialType = "card"
)

func (t CredentialType) valid() bool {
	switch t {
	case CredentialBooking, CredentialShortTrip, CredentialCard:
		return true
	}
	return false
}

// Credential is the self-describing QR payload. Signature covers every other field.
type Credential struct {
	Type      CredentialType    `json:"type"`
	SubjectID string            `json:"subjectId"`
	RiderID   string            `json:"riderId"`
	IssuedAt  time.Time         `json:"issuedAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Extra     map[string]string `json:"extra"`
	Signature string            `json:"signature"`
}

// Encode returns the JSON string embedded in the QR code.
func (c *Credential) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode credential: %w", err)
	}
	return string(raw), nil
}

// canonical serializes the signed fields with sorted keys.
func (c *Credential) canonical() ([]byte, error) {
	extra := c.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	return json.Marshal(map[string]any{
		"type":      c.Type,
		"subjectId": c.SubjectID,
		"riderId":   c.RiderID,
		"issuedAt":  c.IssuedAt.UTC().Format(time.RFC3339),
		"expiresAt": c.ExpiresAt.UTC().Format(time.RFC3339),
		"extra":     extra,
	})
}

type CredentialService interface {
	Issue(subjectType CredentialType, subjectID, riderID uuid.UUID, extra map[string]string, ttl time.Duration) (*Credential, error)
	Verify(raw string) (*Credential, error)
}

type credentialService struct {
	key []byte
	now func() time.Time
	log *zap.Logger
}

const credentialKeyInfo = "ticket-credential"

func NewCredentialService(secret string, log *zap.Logger) (CredentialService, error) {
	if secret == "" {
		return nil, fmt.Errorf("credential secret is empty")
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(credentialKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}

	return &credentialService{
		key: key,
		now: time.Now,
		log: log.With(zap.String("service", "credential")),
	}, nil
}

func (s *credentialService) Issue(subjectType CredentialType, subjectID, riderID uuid.UUID, extra map[string]string, ttl time.Duration) (*Credential, error) {
	if !subjectType.valid() {
		return nil, invalid("type", fmt.Sprintf("unknown credential type %q", subjectType))
	}
	if ttl <= 0 {
		return nil, invalid("ttl", "must be positive")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	cred := &Credential{
		Type:      subjectType,
		SubjectID: subjectID.String(),
		RiderID:   riderID.String(),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
		Extra:     extra,
	}

	sig, err := s.sign(cred)
	if err != nil {
		return nil, err
	}
	cred.Signature = hex.EncodeToString(sig)

	return cred, nil
}

// credentialKeys is the exact key set Encode writes.
var credentialKeys = map[string]bool{
	"type": true, "subjectId": true, "riderId": true, "issuedAt": true,
	"expiresAt": true, "extra": true, "signature": true,
}

// scanKeys walks the top-level object and reports whether its keys are exactly
// a subset of credentialKeys with no repeats. encoding/json alone would fold
// key case and drop unknown keys.
func scanKeys(raw string) (exact bool, err error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return false, errors.New("credential is not a JSON object")
	}

	exact = true
	seen := make(map[string]bool, len(credentialKeys))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return false, err
		}
		key, _ := tok.(string)
		if !credentialKeys[key] || seen[key] {
			exact = false
		}
		seen[key] = true

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return false, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return false, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return false, errors.New("trailing data after credential")
	}
	return exact, nil
}

// Verify checks structure, then signature, then expiry, in that order, so an
// expired verdict is only given to authentic credentials. Only the exact bytes
// Encode produces verify; any other rendering of a signed payload is treated
// as tampered.
func (s *credentialService) Verify(raw string) (*Credential, error) {
	exact, err := scanKeys(raw)
	if err != nil {
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}
	if !exact {
		s.log.Warn("Credential carries unexpected keys")
		return nil, &CredentialInvalidError{Reason: ReasonBadSignature}
	}

	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}
	if cred.Signature == "" || cred.ExpiresAt.IsZero() {
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}

	provided, err := hex.DecodeString(cred.Signature)
	if err != nil {
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}

	expected, err := s.sign(&cred)
	if err != nil {
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}
	if !hmac.Equal(provided, expected) {
		s.log.Warn("Credential signature mismatch",
			zap.String("type", string(cred.Type)),
			zap.String("subject_id", cred.SubjectID),
		)
		return nil, &CredentialInvalidError{Reason: ReasonBadSignature}
	}

	if encoded, err := cred.Encode(); err != nil || encoded != raw {
		s.log.Warn("Credential is not in canonical form",
			zap.String("type", string(cred.Type)),
			zap.String("subject_id", cred.SubjectID),
		)
		return nil, &CredentialInvalidError{Reason: ReasonBadSignature}
	}

	if !cred.Type.valid() {
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}
	if !s.now().Before(cred.ExpiresAt) {
		return nil, &CredentialInvalidError{Reason: ReasonExpired}
	}

	return &cred, nil
}

func (s *credentialService) sign(cred *Credential) ([]byte, error) {
	payload, err := cred.canonical()
	if err != nil {
		return nil, fmt.Errorf("canonicalize credential: %w", err)
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil), nil
}
