package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heresorg/libheres-go/identity"
)

func makeIdentity(seed byte) identity.Identity {
	var id identity.Identity
	for i := range id {
		id[i] = seed
	}
	return id
}

func validProof() []byte {
	proof := make([]byte, MinProofSize)
	for i := range proof {
		proof[i] = byte(i + 1)
	}
	return proof
}

func TestCheckInactivity(t *testing.T) {
	tests := []struct {
		name         string
		lastActivity int64
		period       int64
		now          int64
		wantErr      bool
	}{
		{"exactly met", 1000, 100, 1100, false},
		{"well past", 1000, 100, 5000, false},
		{"one second short", 1000, 100, 1099, true},
		{"no time passed", 1000, 100, 1000, true},
		{"zero period", 1000, 0, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInactivity(tt.lastActivity, tt.period, tt.now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInactivityPeriodNotMet)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckInactivity_Idempotent(t *testing.T) {
	first := CheckInactivity(1000, 100, 1050)
	second := CheckInactivity(1000, 100, 1050)
	assert.Equal(t, first == nil, second == nil)
	assert.ErrorIs(t, first, ErrInactivityPeriodNotMet)
}

func TestPublicInputs_RoundTrip(t *testing.T) {
	in := &PublicInputs{
		Owner:            makeIdentity(0xAA),
		LastActivity:     1_700_000_000,
		InactivityPeriod: 86_400,
		CurrentTime:      1_700_086_400,
	}

	data := EncodePublicInputs(in)
	assert.Len(t, data, 44)

	decoded, err := DecodePublicInputs(data)
	require.NoError(t, err)
	assert.Equal(t, in, decoded)
}

func TestDecodePublicInputs_WrongSize(t *testing.T) {
	_, err := DecodePublicInputs([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidProof)
}

func TestStructuralVerifier(t *testing.T) {
	inputs := []byte{0x01}

	t.Run("accepts structurally valid proof", func(t *testing.T) {
		assert.NoError(t, StructuralVerifier{}.Verify(validProof(), inputs))
	})

	t.Run("rejects short proof", func(t *testing.T) {
		err := StructuralVerifier{}.Verify(make([]byte, MinProofSize-1), inputs)
		assert.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("rejects all-zero proof", func(t *testing.T) {
		err := StructuralVerifier{}.Verify(make([]byte, MinProofSize), inputs)
		assert.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("rejects empty proof", func(t *testing.T) {
		err := StructuralVerifier{}.Verify(nil, inputs)
		assert.ErrorIs(t, err, ErrInvalidProof)
	})
}

func TestVerifyInactivityProof(t *testing.T) {
	owner := makeIdentity(0x01)
	const (
		lastActivity = int64(1_700_000_000)
		period       = int64(86_400)
		now          = lastActivity + period + 10
	)

	goodInputs := func() *PublicInputs {
		return &PublicInputs{
			Owner:            owner,
			LastActivity:     lastActivity,
			InactivityPeriod: period,
			CurrentTime:      now,
		}
	}

	verify := func(in *PublicInputs) error {
		return VerifyInactivityProof(validProof(), EncodePublicInputs(in),
			owner, lastActivity, period, now, StructuralVerifier{})
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, verify(goodInputs()))
	})

	t.Run("owner mismatch", func(t *testing.T) {
		in := goodInputs()
		in.Owner = makeIdentity(0x02)
		assert.ErrorIs(t, verify(in), ErrProofRejected)
	})

	t.Run("last activity mismatch", func(t *testing.T) {
		in := goodInputs()
		in.LastActivity = lastActivity + 1
		assert.ErrorIs(t, verify(in), ErrProofRejected)
	})

	t.Run("period mismatch", func(t *testing.T) {
		in := goodInputs()
		in.InactivityPeriod = period - 1
		assert.ErrorIs(t, verify(in), ErrProofRejected)
	})

	t.Run("claimed time within window", func(t *testing.T) {
		in := goodInputs()
		in.CurrentTime = lastActivity + period - 1
		// Also drifts from now, but the window check fires first.
		assert.ErrorIs(t, verify(in), ErrInvalidProof)
	})

	t.Run("claimed time drifts past tolerance", func(t *testing.T) {
		in := goodInputs()
		in.CurrentTime = now + ClockSkewTolerance + 1
		assert.ErrorIs(t, verify(in), ErrInvalidProof)
	})

	t.Run("claimed time at tolerance edge", func(t *testing.T) {
		in := goodInputs()
		in.CurrentTime = now + ClockSkewTolerance
		assert.NoError(t, verify(in))
	})

	t.Run("empty proof", func(t *testing.T) {
		err := VerifyInactivityProof(nil, EncodePublicInputs(goodInputs()),
			owner, lastActivity, period, now, StructuralVerifier{})
		assert.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("truncated public inputs", func(t *testing.T) {
		err := VerifyInactivityProof(validProof(), []byte{0x01, 0x02},
			owner, lastActivity, period, now, StructuralVerifier{})
		assert.ErrorIs(t, err, ErrInvalidProof)
	})
}

func TestGateCheck(t *testing.T) {
	owner := makeIdentity(0x01)
	const (
		lastActivity = int64(1_000_000)
		period       = int64(3600)
	)

	t.Run("time gate met", func(t *testing.T) {
		g := NewTimeGate()
		assert.NoError(t, g.Check(owner, lastActivity, period, lastActivity+period, nil, nil))
	})

	t.Run("time gate not met", func(t *testing.T) {
		g := NewTimeGate()
		err := g.Check(owner, lastActivity, period, lastActivity+period-1, nil, nil)
		assert.ErrorIs(t, err, ErrInactivityPeriodNotMet)
	})

	t.Run("proof gate requires proof", func(t *testing.T) {
		g := NewProofGate(nil)
		err := g.Check(owner, lastActivity, period, lastActivity+period, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("proof gate accepts bound proof", func(t *testing.T) {
		now := lastActivity + period
		inputs := EncodePublicInputs(&PublicInputs{
			Owner:            owner,
			LastActivity:     lastActivity,
			InactivityPeriod: period,
			CurrentTime:      now,
		})
		g := NewProofGate(nil)
		assert.NoError(t, g.Check(owner, lastActivity, period, now, validProof(), inputs))
	})
}
