// Package gate evaluates whether a capsule's release conditions are met.
//
// Two interchangeable strategies exist, selected per deployment: a time-only
// gate (elapsed inactivity against a trusted clock) and a proof gate that
// additionally verifies an externally supplied inactivity proof against
// public inputs bound to the capsule's on-record state.
//
// The bundled proof check is STRUCTURAL ONLY (minimum length, not all-zero).
// It is the integration seam for a real zero-knowledge verifier and must not
// be mistaken for a cryptographic guarantee; production deployments plug a
// genuine verifier in behind the ProofVerifier interface.
package gate

import (
	"fmt"
	"time"

	"github.com/heresorg/libheres-go/identity"
)

// Mode selects the gating strategy for a deployment.
type Mode string

const (
	// ModeTime releases on elapsed inactivity alone.
	ModeTime Mode = "time"

	// ModeProof additionally requires a verified inactivity proof.
	ModeProof Mode = "proof"
)

const (
	// ClockSkewTolerance bounds how far the proof's claimed current time may
	// drift from the oracle's own clock, in seconds.
	ClockSkewTolerance = 300

	// MinProofSize is the minimum structural size of a proof blob in bytes.
	MinProofSize = 64
)

// Clock is the trusted time source consumed from the host.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// CheckInactivity reports whether the required inactivity window has
// elapsed. Evaluation is pure: the same (lastActivity, inactivityPeriod,
// now) always yields the same result.
func CheckInactivity(lastActivity, inactivityPeriod, now int64) error {
	elapsed := now - lastActivity
	if elapsed < inactivityPeriod {
		return fmt.Errorf("%w: %ds elapsed of required %ds",
			ErrInactivityPeriodNotMet, elapsed, inactivityPeriod)
	}
	return nil
}

// Gate evaluates release conditions for capsules.
type Gate struct {
	Mode     Mode
	Verifier ProofVerifier // proof-mode only; nil selects StructuralVerifier
}

// NewTimeGate returns a gate that releases on elapsed inactivity alone.
func NewTimeGate() *Gate {
	return &Gate{Mode: ModeTime}
}

// NewProofGate returns a gate that requires a verified inactivity proof.
// A nil verifier selects the structural placeholder.
func NewProofGate(verifier ProofVerifier) *Gate {
	if verifier == nil {
		verifier = StructuralVerifier{}
	}
	return &Gate{Mode: ModeProof, Verifier: verifier}
}

// Check evaluates the gate for a capsule's on-record state at time now
// (unix seconds). In proof mode, proof and publicInputs are required; in
// time mode they are ignored.
func (g *Gate) Check(owner identity.Identity, lastActivity, inactivityPeriod, now int64, proof, publicInputs []byte) error {
	if err := CheckInactivity(lastActivity, inactivityPeriod, now); err != nil {
		return err
	}
	if g.Mode != ModeProof {
		return nil
	}

	verifier := g.Verifier
	if verifier == nil {
		verifier = StructuralVerifier{}
	}
	return VerifyInactivityProof(proof, publicInputs, owner, lastActivity, inactivityPeriod, now, verifier)
}
