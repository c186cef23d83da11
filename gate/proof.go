package gate

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/heresorg/libheres-go/identity"
)

const publicInputsSize = 44 // owner(20) + last_activity(8) + inactivity_period(8) + current_time(8)

// PublicInputs is the fixed-layout public parameter block an inactivity
// proof is verified against. All integers are big-endian two's complement.
type PublicInputs struct {
	Owner            identity.Identity
	LastActivity     int64 // unix seconds, must match the capsule record
	InactivityPeriod int64 // seconds, must match the capsule record
	CurrentTime      int64 // prover's claimed current time, unix seconds
}

// EncodePublicInputs serializes public inputs to their fixed byte layout.
func EncodePublicInputs(in *PublicInputs) []byte {
	buf := make([]byte, publicInputsSize)
	copy(buf[0:20], in.Owner[:])
	binary.BigEndian.PutUint64(buf[20:28], uint64(in.LastActivity))
	binary.BigEndian.PutUint64(buf[28:36], uint64(in.InactivityPeriod))
	binary.BigEndian.PutUint64(buf[36:44], uint64(in.CurrentTime))
	return buf
}

// DecodePublicInputs parses a public input block.
func DecodePublicInputs(data []byte) (*PublicInputs, error) {
	if len(data) != publicInputsSize {
		return nil, fmt.Errorf("%w: public inputs must be %d bytes, got %d",
			ErrInvalidProof, publicInputsSize, len(data))
	}
	in := &PublicInputs{}
	copy(in.Owner[:], data[0:20])
	in.LastActivity = int64(binary.BigEndian.Uint64(data[20:28]))
	in.InactivityPeriod = int64(binary.BigEndian.Uint64(data[28:36]))
	in.CurrentTime = int64(binary.BigEndian.Uint64(data[36:44]))
	return in, nil
}

// ProofVerifier attests that a proof blob is valid for the given public
// inputs. This is the seam where a production deployment installs a real
// zero-knowledge verifier.
type ProofVerifier interface {
	Verify(proof, publicInputs []byte) error
}

// StructuralVerifier is the placeholder verifier: it accepts any proof of at
// least MinProofSize bytes that is not all zeros. It provides NO
// cryptographic assurance.
type StructuralVerifier struct{}

// Verify applies the structural checks.
func (StructuralVerifier) Verify(proof, publicInputs []byte) error {
	if len(proof) == 0 {
		return fmt.Errorf("%w: empty proof", ErrInvalidProof)
	}
	if len(publicInputs) == 0 {
		return fmt.Errorf("%w: empty public inputs", ErrInvalidProof)
	}
	if len(proof) < MinProofSize {
		return fmt.Errorf("%w: proof is %d bytes, minimum %d", ErrInvalidProof, len(proof), MinProofSize)
	}
	allZero := true
	for _, b := range proof {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return fmt.Errorf("%w: proof is all zeros", ErrInvalidProof)
	}
	return nil
}

// VerifyInactivityProof checks an inactivity proof against the capsule's
// on-record values and the oracle clock:
//
//  1. public inputs decode to the fixed layout,
//  2. owner, lastActivity and inactivityPeriod match the record exactly,
//  3. the claimed current time satisfies the elapsed-inactivity condition,
//  4. the claimed current time is within ClockSkewTolerance of now,
//  5. the proof blob passes the installed verifier.
//
// Binding mismatches (step 2) fail with ErrProofRejected; every other
// failure fails with ErrInvalidProof. There is no partial credit.
func VerifyInactivityProof(proof, publicInputs []byte, owner identity.Identity, lastActivity, inactivityPeriod, now int64, verifier ProofVerifier) error {
	if len(proof) == 0 {
		return fmt.Errorf("%w: empty proof", ErrInvalidProof)
	}

	in, err := DecodePublicInputs(publicInputs)
	if err != nil {
		return err
	}

	if !bytes.Equal(in.Owner[:], owner[:]) {
		return fmt.Errorf("%w: owner mismatch", ErrProofRejected)
	}
	if in.LastActivity != lastActivity {
		return fmt.Errorf("%w: last activity %d != %d", ErrProofRejected, in.LastActivity, lastActivity)
	}
	if in.InactivityPeriod != inactivityPeriod {
		return fmt.Errorf("%w: inactivity period %d != %d", ErrProofRejected, in.InactivityPeriod, inactivityPeriod)
	}

	if in.CurrentTime-in.LastActivity < in.InactivityPeriod {
		return fmt.Errorf("%w: claimed time %d does not satisfy the inactivity window", ErrInvalidProof, in.CurrentTime)
	}

	skew := in.CurrentTime - now
	if skew < 0 {
		skew = -skew
	}
	if skew > ClockSkewTolerance {
		return fmt.Errorf("%w: claimed time drifts %ds from the oracle clock (tolerance %ds)",
			ErrInvalidProof, skew, ClockSkewTolerance)
	}

	if err := verifier.Verify(proof, publicInputs); err != nil {
		return err
	}
	return nil
}
