package fee

import (
	"math"
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

func testConfig(bps uint16) *Config {
	return &Config{
		Authority:       makeIdentity(0x01),
		FeeRecipient:    makeIdentity(0x02),
		CreationFee:     1_000_000,
		ExecutionFeeBps: bps,
	}
}

func TestExecutionFee(t *testing.T) {
	tests := []struct {
		name  string
		total uint64
		bps   uint16
		want  uint64
	}{
		{"zero rate", 1_000_000, 0, 0},
		{"10 percent", 10, 1000, 1},
		{"3 percent", 1_000_000_000, 300, 30_000_000},
		{"full rate", 12345, 10000, 12345},
		{"floors", 9999, 1, 0},
		{"max total full rate", math.MaxUint64, 10000, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExecutionFee(tt.total, testConfig(tt.bps))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The fee never exceeds the total for any rate in [0, 10000] bps.
func TestExecutionFee_Bounded(t *testing.T) {
	totals := []uint64{0, 1, 9999, 10000, 1 << 40, math.MaxUint64}
	for _, total := range totals {
		for _, bps := range []uint16{0, 1, 300, 9999, 10000} {
			got, err := ExecutionFee(total, testConfig(bps))
			require.NoError(t, err)
			assert.LessOrEqual(t, got, total, "total=%d bps=%d", total, bps)
		}
	}
}

func TestExecutionFee_RateOutOfRange(t *testing.T) {
	_, err := ExecutionFee(100, testConfig(10001))
	assert.ErrorIs(t, err, ErrInvalidFeeConfig)
}

func TestCreationFee(t *testing.T) {
	cfg := testConfig(0)
	assert.Equal(t, uint64(1_000_000), CreationFee(cfg))

	cfg.CreationFee = 0
	assert.Equal(t, uint64(0), CreationFee(cfg))
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(testConfig(300)))

	t.Run("bps too high", func(t *testing.T) {
		assert.ErrorIs(t, ValidateConfig(testConfig(10001)), ErrInvalidFeeConfig)
	})

	t.Run("zero authority", func(t *testing.T) {
		cfg := testConfig(300)
		cfg.Authority = identity.Identity{}
		assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidFeeConfig)
	})

	t.Run("zero recipient", func(t *testing.T) {
		cfg := testConfig(300)
		cfg.FeeRecipient = identity.Identity{}
		assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidFeeConfig)
	})

	t.Run("nil", func(t *testing.T) {
		assert.ErrorIs(t, ValidateConfig(nil), ErrInvalidFeeConfig)
	})
}

func TestConfigCodec_RoundTrip(t *testing.T) {
	cfg := testConfig(300)

	data := SerializeConfig(cfg)
	assert.Len(t, data, 50)

	decoded, err := DeserializeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestDeserializeConfig_WrongSize(t *testing.T) {
	_, err := DeserializeConfig([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidFeeConfigData)
}
