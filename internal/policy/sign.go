package policy

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// #region signer
// Signer signs and verifies manifests with a keyed hash (HMAC-SHA256 over
// the canonical digest). This is an explicit development placeholder:
// production deployments substitute an asymmetric scheme behind the same
// interface without altering manifest shape or validation order.
type Signer struct {
	key []byte
}

// NewSigner creates a signer from raw key bytes.
func NewSigner(key []byte) *Signer {
	return &Signer{key: append([]byte(nil), key...)}
}

// LoadSigner reads a signing key from a file, generating and persisting a
// fresh 32-byte key when the file does not exist.
func LoadSigner(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) >= 32 {
		return NewSigner(data[:32]), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return NewSigner(key), nil
}

// Sign computes the signature for a manifest's canonical content and
// returns a copy with the signature set.
func (s *Signer) Sign(m Manifest) (Manifest, error) {
	sig, err := s.signature(m)
	if err != nil {
		return Manifest{}, err
	}
	m.Signature = sig
	return m, nil
}

// Verify reports whether the manifest's signature matches its canonical
// content under this signer's key.
func (s *Signer) Verify(m Manifest) bool {
	want, err := s.signature(m)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(want), []byte(m.Signature))
}

func (s *Signer) signature(m Manifest) (string, error) {
	data, err := CanonicalBytes(m)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// #endregion signer
