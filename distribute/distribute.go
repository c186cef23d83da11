// Package distribute computes per-beneficiary payouts from a validated
// distribution plan and a net payable amount.
//
// Payout math is integer-only with 128-bit intermediates. The last
// beneficiary in declaration order absorbs the floor-division remainder so
// that the distributed total equals the net amount exactly, with no dust
// lost to truncation. Beneficiary order is therefore significant and is
// preserved exactly as declared.
package distribute

import (
	"fmt"
	"math/bits"

	"github.com/heresorg/libheres-go/identity"
	"github.com/heresorg/libheres-go/intent"
)

// Payout is a single computed transfer.
type Payout struct {
	Recipient identity.Identity
	Amount    uint64 // base units
}

// ComputePayouts computes the payout for each plan beneficiary against
// netAmount (the vault balance after fee deduction).
//
// Each beneficiary except the last gets floor(rawTarget * netAmount /
// plan.TotalAmount), where rawTarget is the declared fixed amount or
// floor(TotalAmount * percentage / 100). The last beneficiary gets the
// remainder. Entries with a computed payout of zero are omitted from the
// result; no transfer is attempted for them.
//
// For any valid plan and netAmount <= plan.TotalAmount the returned amounts
// sum to netAmount exactly, and identical inputs always yield the identical
// payout sequence.
func ComputePayouts(netAmount uint64, plan *intent.DistributionPlan) ([]Payout, error) {
	if plan == nil || len(plan.Beneficiaries) == 0 {
		return nil, ErrNoBeneficiaries
	}

	payouts := make([]Payout, 0, len(plan.Beneficiaries))
	var distributed uint64

	last := len(plan.Beneficiaries) - 1
	for i, b := range plan.Beneficiaries {
		var amt uint64
		if i == last {
			// Remainder assignment keeps sum(payouts) == netAmount exact.
			amt = netAmount - distributed
		} else {
			raw, err := rawTarget(&b, plan.TotalAmount)
			if err != nil {
				return nil, err
			}
			amt, err = scaleToNet(raw, netAmount, plan.TotalAmount)
			if err != nil {
				return nil, err
			}
			if amt > netAmount-distributed {
				return nil, fmt.Errorf("%w: %d base units already assigned of %d",
					ErrOvercommitted, distributed+amt, netAmount)
			}
			distributed += amt
		}

		if amt == 0 {
			continue
		}
		payouts = append(payouts, Payout{Recipient: b.Recipient, Amount: amt})
	}

	return payouts, nil
}

// rawTarget returns a beneficiary's declared share in base units before
// proportional scaling.
func rawTarget(b *intent.Beneficiary, totalAmount uint64) (uint64, error) {
	switch b.Type {
	case intent.AmountFixed:
		return b.Fixed, nil
	case intent.AmountPercentage:
		// Percentages are fractional, so this target goes through float64;
		// truncation toward zero.
		return uint64(float64(totalAmount) * b.Percentage / 100.0), nil
	default:
		return 0, fmt.Errorf("%w: unknown amount type %q", ErrInvalidShare, b.Type)
	}
}

// scaleToNet computes floor(raw * net / total) using a 128-bit intermediate
// product. Returns zero when total is zero.
func scaleToNet(raw, net, total uint64) (uint64, error) {
	if total == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(raw, net)
	if hi >= total {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrArithmeticOverflow, raw, net, total)
	}
	q, _ := bits.Div64(hi, lo, total)
	return q, nil
}
