// Package fee implements the platform fee policy: a flat creation fee and a
// basis-point execution fee, both governed by an authority-controlled
// configuration record stored at a fixed ledger key.
package fee

import (
	"fmt"
	"math/bits"

	"github.com/heresorg/libheres-go/identity"
)

// MaxBps is the maximum execution fee in basis points (100%).
const MaxBps = 10_000

// Config is the process-wide fee configuration. It is created once via an
// init-only operation and mutated only by its authority.
type Config struct {
	Authority       identity.Identity // only identity permitted to mutate the config
	FeeRecipient    identity.Identity // receives creation and execution fees
	CreationFee     uint64            // flat fee in base units; zero disables the transfer
	ExecutionFeeBps uint16            // 0..10000
}

// ValidateConfig checks that the fee parameters are within range.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidFeeConfig)
	}
	if cfg.ExecutionFeeBps > MaxBps {
		return fmt.Errorf("%w: execution fee %d bps exceeds maximum %d", ErrInvalidFeeConfig, cfg.ExecutionFeeBps, MaxBps)
	}
	var zero identity.Identity
	if cfg.Authority == zero {
		return fmt.Errorf("%w: zero authority", ErrInvalidFeeConfig)
	}
	if cfg.FeeRecipient == zero {
		return fmt.Errorf("%w: zero fee recipient", ErrInvalidFeeConfig)
	}
	return nil
}

// CreationFee returns the flat capsule creation fee. Callers skip the fee
// transfer entirely when it is zero.
func CreationFee(cfg *Config) uint64 {
	return cfg.CreationFee
}

// ExecutionFee computes floor(total * bps / 10000) with a 128-bit
// intermediate product. Returns zero when the configured rate is zero.
func ExecutionFee(total uint64, cfg *Config) (uint64, error) {
	if cfg.ExecutionFeeBps == 0 {
		return 0, nil
	}
	if cfg.ExecutionFeeBps > MaxBps {
		return 0, fmt.Errorf("%w: execution fee %d bps exceeds maximum %d", ErrInvalidFeeConfig, cfg.ExecutionFeeBps, MaxBps)
	}

	hi, lo := bits.Mul64(total, uint64(cfg.ExecutionFeeBps))
	if hi >= MaxBps {
		// Quotient would not fit in 64 bits. Unreachable for bps <= 10000,
		// kept as a guard against future divisor changes.
		return 0, fmt.Errorf("%w: %d * %d bps", ErrArithmeticOverflow, total, cfg.ExecutionFeeBps)
	}
	q, _ := bits.Div64(hi, lo, MaxBps)
	return q, nil
}
