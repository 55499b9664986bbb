package policy

import (
	"fmt"
	"time"
)

// #region reasons
// RejectReason tags why a manifest was not accepted. Failures are
// ordinary return values, never panics; a node keeps operating under its
// last-good policy.
type RejectReason string

const (
	RejectInvalidSignature  RejectReason = "invalid_signature"
	RejectEpochNotMonotonic RejectReason = "epoch_not_monotonic"
	RejectExpired           RejectReason = "policy_expired"
)

// ValidationError carries the tagged reason with detail.
type ValidationError struct {
	Reason RejectReason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// #endregion reasons

// #region validate

// Validate checks a candidate manifest for acceptance, in fixed order:
// signature, epoch monotonicity, expiry. currentEpoch is the epoch of the
// active policy (0 when unset). Returns nil on acceptance.
func Validate(m Manifest, verifier interface{ Verify(Manifest) bool }, currentEpoch uint64, now time.Time) *ValidationError {
	if !verifier.Verify(m) {
		return &ValidationError{
			Reason: RejectInvalidSignature,
			Detail: "signature does not match canonical content",
		}
	}
	if m.Epoch <= currentEpoch {
		return &ValidationError{
			Reason: RejectEpochNotMonotonic,
			Detail: fmt.Sprintf("epoch %d does not exceed current epoch %d", m.Epoch, currentEpoch),
		}
	}
	if !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt) {
		return &ValidationError{
			Reason: RejectExpired,
			Detail: fmt.Sprintf("expired at %s", m.ExpiresAt.UTC().Format(time.RFC3339)),
		}
	}
	return nil
}

// CurrentlyValid reports whether an active manifest still governs at the
// given instant. A manifest remains valid for a grace period past expiry,
// tolerating comms gaps before invariant checks begin failing.
func CurrentlyValid(m Manifest, now time.Time, grace time.Duration) bool {
	if m.ExpiresAt.IsZero() {
		return true
	}
	return !now.After(m.ExpiresAt.Add(grace))
}

// #endregion validate
