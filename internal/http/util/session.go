package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"time"
)

const (
	sessionPayloadSize = 16 // 8 bytes expiry + 8 random bytes
	sessionSigSize     = 16
)

var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrMissingSecret  = errors.New("session secret is not configured")
)

// SessionSigner issues and verifies HMAC-signed session tokens bound to a
// subject such as "admin".
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionSigner returns a signer whose tokens live for ttl.
func NewSessionSigner(secret []byte, ttl time.Duration) *SessionSigner {
	return &SessionSigner{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL reports how long issued tokens stay valid.
func (s *SessionSigner) TTL() time.Duration { return s.ttl }

// Issue mints a token for subject.
func (s *SessionSigner) Issue(subject string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payload := make([]byte, sessionPayloadSize)
	binary.BigEndian.PutUint64(payload[:8], uint64(s.now().Add(s.ttl).Unix()))
	if _, err := rand.Read(payload[8:]); err != nil {
		return "", err
	}

	sig := s.sign(subject, payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(sig[:sessionSigSize]), nil
}

// Verify checks the signature and expiry of token for subject.
func (s *SessionSigner) Verify(subject, token string) error {
	if len(s.secret) == 0 {
		return ErrMissingSecret
	}

	payloadEnc, sigEnc, ok := strings.Cut(token, ".")
	if !ok {
		return ErrInvalidSession
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadEnc)
	if err != nil || len(payload) != sessionPayloadSize {
		return ErrInvalidSession
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigEnc)
	if err != nil || len(sig) != sessionSigSize {
		return ErrInvalidSession
	}

	expected := s.sign(subject, payload)
	if !hmac.Equal(sig, expected[:sessionSigSize]) {
		return ErrInvalidSession
	}

	expires := int64(binary.BigEndian.Uint64(payload[:8]))
	if s.now().Unix() > expires {
		return ErrInvalidSession
	}

	return nil
}

func (s *SessionSigner) sign(subject string, payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(subject))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}
