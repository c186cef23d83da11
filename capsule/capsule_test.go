package capsule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heresorg/libheres-go/identity"
	"github.com/heresorg/libheres-go/intent"
)

func makeIdentity(seed byte) identity.Identity {
	var id identity.Identity
	for i := range id {
		id[i] = seed
	}
	return id
}

func TestCapsuleCodec(t *testing.T) {
	executedAt := int64(1_700_000_500)

	cases := []struct {
		name    string
		capsule Capsule
	}{
		{
			name: "active",
			capsule: Capsule{
				Owner:            makeIdentity(0x01),
				InactivityPeriod: 86400,
				LastActivity:     1_700_000_000,
				IntentData:       []byte(`{"beneficiaries":[],"totalAmount":"10"}`),
				IsActive:         true,
			},
		},
		{
			name: "executed",
			capsule: Capsule{
				Owner:            makeIdentity(0x02),
				InactivityPeriod: 3600,
				LastActivity:     1_699_000_000,
				IntentData:       []byte(`{}`),
				IsActive:         false,
				ExecutedAt:       &executedAt,
			},
		},
		{
			name: "deactivated",
			capsule: Capsule{
				Owner:            makeIdentity(0x03),
				InactivityPeriod: 1,
				LastActivity:     0,
				IntentData:       []byte("x"),
				IsActive:         false,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := SerializeCapsule(&tc.capsule)
			require.NoError(t, err)

			decoded, err := DeserializeCapsule(data)
			require.NoError(t, err)
			assert.Equal(t, &tc.capsule, decoded)
		})
	}
}

func TestCapsuleState(t *testing.T) {
	executedAt := int64(100)

	assert.Equal(t, StateActive, (&Capsule{IsActive: true}).State())
	assert.Equal(t, StateExecuted, (&Capsule{ExecutedAt: &executedAt}).State())
	assert.Equal(t, StateDeactivated, (&Capsule{}).State())
}

func TestSerializeCapsuleRejectsOversizedIntent(t *testing.T) {
	c := &Capsule{
		Owner:      makeIdentity(0x01),
		IntentData: make([]byte, intent.MaxIntentDataSize+1),
		IsActive:   true,
	}
	_, err := SerializeCapsule(c)
	assert.ErrorIs(t, err, intent.ErrIntentTooLarge)
}

func TestSerializeCapsuleRejectsActiveExecuted(t *testing.T) {
	executedAt := int64(100)
	c := &Capsule{
		Owner:      makeIdentity(0x01),
		IsActive:   true,
		ExecutedAt: &executedAt,
	}
	_, err := SerializeCapsule(c)
	assert.ErrorIs(t, err, ErrInvalidCapsuleData)
}

func TestDeserializeCapsuleRejectsMalformed(t *testing.T) {
	valid, err := SerializeCapsule(&Capsule{
		Owner:            makeIdentity(0x01),
		InactivityPeriod: 60,
		LastActivity:     1000,
		IntentData:       []byte("plan"),
		IsActive:         true,
	})
	require.NoError(t, err)

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", valid[:10]},
		{"truncated intent", valid[:len(valid)-3]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DeserializeCapsule(tc.data)
			assert.ErrorIs(t, err, ErrInvalidCapsuleData)
		})
	}
}

func TestCapsuleKeys(t *testing.T) {
	c := &Capsule{Owner: makeIdentity(0x07)}

	assert.Equal(t, identity.CapsuleKey(c.Owner), c.Key())
	assert.Equal(t, identity.VaultKey(c.Owner), c.VaultKey())
	assert.NotEqual(t, c.Key(), c.VaultKey())
}
