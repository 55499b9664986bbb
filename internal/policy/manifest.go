package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// #region manifest
// Params are the governance parameters a manifest carries.
type Params struct {
	MinSeparation   float64  `json:"min_separation"`
	EnergyFloor     float64  `json:"energy_floor"`
	MinTrust        float64  `json:"min_trust"`
	MaxDrift        float64  `json:"max_drift"`
	AllowedRoles    []string `json:"allowed_roles"`
	SuppressedModes []string `json:"suppressed_modes"`
}

// Manifest is a signed, versioned safety policy. Immutable once issued;
// superseded only by a strictly-greater-epoch, signature-valid manifest.
type Manifest struct {
	Epoch     uint64    `json:"epoch"`
	Version   string    `json:"version"` // semantic version
	Params    Params    `json:"params"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Signature string    `json:"signature"` // hex, over the canonical digest
}

// #endregion manifest

// #region canonical

// canonicalForm is the byte-stable serialization layout: fixed field
// order, role/mode sets sorted, timestamps in RFC3339Nano UTC, signature
// excluded.
type canonicalForm struct {
	Epoch           uint64   `json:"epoch"`
	Version         string   `json:"version"`
	MinSeparation   float64  `json:"min_separation"`
	EnergyFloor     float64  `json:"energy_floor"`
	MinTrust        float64  `json:"min_trust"`
	MaxDrift        float64  `json:"max_drift"`
	AllowedRoles    []string `json:"allowed_roles"`
	SuppressedModes []string `json:"suppressed_modes"`
	IssuedAt        string   `json:"issued_at"`
	ExpiresAt       string   `json:"expires_at"`
}

// CanonicalBytes serializes the manifest content (signature excluded) to
// its byte-stable canonical form. This is the exact payload ground
// control signs and field units verify.
func CanonicalBytes(m Manifest) ([]byte, error) {
	roles := append([]string(nil), m.Params.AllowedRoles...)
	modes := append([]string(nil), m.Params.SuppressedModes...)
	sort.Strings(roles)
	sort.Strings(modes)

	data, err := json.Marshal(canonicalForm{
		Epoch:           m.Epoch,
		Version:         m.Version,
		MinSeparation:   m.Params.MinSeparation,
		EnergyFloor:     m.Params.EnergyFloor,
		MinTrust:        m.Params.MinTrust,
		MaxDrift:        m.Params.MaxDrift,
		AllowedRoles:    roles,
		SuppressedModes: modes,
		IssuedAt:        m.IssuedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt:       m.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("canonicalize manifest: %w", err)
	}
	return data, nil
}

// CanonicalDigest returns the hex SHA-256 digest of the canonical form.
func CanonicalDigest(m Manifest) (string, error) {
	data, err := CanonicalBytes(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// #endregion canonical

// #region io

// Encode serializes a manifest to indented JSON for transfer.
func Encode(m Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// Decode parses a manifest from JSON.
func Decode(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// #endregion io
