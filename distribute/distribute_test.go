package distribute

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

func fixed(seed byte, amount uint64) intent.Beneficiary {
	return intent.Beneficiary{Recipient: makeIdentity(seed), Type: intent.AmountFixed, Fixed: amount}
}

func percentage(seed byte, pct float64) intent.Beneficiary {
	return intent.Beneficiary{Recipient: makeIdentity(seed), Type: intent.AmountPercentage, Percentage: pct}
}

func sum(payouts []Payout) uint64 {
	var s uint64
	for _, p := range payouts {
		s += p.Amount
	}
	return s
}

func TestComputePayouts_FixedNoFee(t *testing.T) {
	plan := &intent.DistributionPlan{
		TotalAmount:   10,
		Beneficiaries: []intent.Beneficiary{fixed(0x01, 3), fixed(0x02, 7)},
	}

	payouts, err := ComputePayouts(10, plan)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, Payout{makeIdentity(0x01), 3}, payouts[0])
	assert.Equal(t, Payout{makeIdentity(0x02), 7}, payouts[1])
}

func TestComputePayouts_FixedAfterFee(t *testing.T) {
	// 10% execution fee leaves net=9: first gets floor(3*9/10)=2,
	// the last absorbs the remainder 9-2=7.
	plan := &intent.DistributionPlan{
		TotalAmount:   10,
		Beneficiaries: []intent.Beneficiary{fixed(0x01, 3), fixed(0x02, 7)},
	}

	payouts, err := ComputePayouts(9, plan)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, uint64(2), payouts[0].Amount)
	assert.Equal(t, uint64(7), payouts[1].Amount)
}

func TestComputePayouts_Percentage(t *testing.T) {
	plan := &intent.DistributionPlan{
		TotalAmount:   100,
		Beneficiaries: []intent.Beneficiary{percentage(0x01, 60), percentage(0x02, 40)},
	}

	payouts, err := ComputePayouts(100, plan)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, uint64(60), payouts[0].Amount)
	assert.Equal(t, uint64(40), payouts[1].Amount)
}

func TestComputePayouts_SkipsZeroEntries(t *testing.T) {
	plan := &intent.DistributionPlan{
		TotalAmount:   1000,
		Beneficiaries: []intent.Beneficiary{fixed(0x01, 1), fixed(0x02, 999)},
	}

	// net=500: first gets floor(1*500/1000)=0 and is skipped entirely.
	payouts, err := ComputePayouts(500, plan)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, makeIdentity(0x02), payouts[0].Recipient)
	assert.Equal(t, uint64(500), payouts[0].Amount)
}

func TestComputePayouts_ZeroNet(t *testing.T) {
	plan := &intent.DistributionPlan{
		TotalAmount:   10,
		Beneficiaries: []intent.Beneficiary{fixed(0x01, 3), fixed(0x02, 7)},
	}

	payouts, err := ComputePayouts(0, plan)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}

func TestComputePayouts_ZeroTotal(t *testing.T) {
	plan := &intent.DistributionPlan{
		TotalAmount:   0,
		Beneficiaries: []intent.Beneficiary{fixed(0x01, 3), fixed(0x02, 7)},
	}

	// Scaling against a zero total yields zero for every non-last entry;
	// the last absorbs everything.
	payouts, err := ComputePayouts(5, plan)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, makeIdentity(0x02), payouts[0].Recipient)
	assert.Equal(t, uint64(5), payouts[0].Amount)
}

func TestComputePayouts_NoBeneficiaries(t *testing.T) {
	_, err := ComputePayouts(10, &intent.DistributionPlan{TotalAmount: 10})
	assert.ErrorIs(t, err, ErrNoBeneficiaries)

	_, err = ComputePayouts(10, nil)
	assert.ErrorIs(t, err, ErrNoBeneficiaries)
}

// sum(payouts) == netAmount for every netAmount in [0, totalAmount].
func TestComputePayouts_SumExact(t *testing.T) {
	plans := []*intent.DistributionPlan{
		{TotalAmount: 100, Beneficiaries: []intent.Beneficiary{fixed(0x01, 33), fixed(0x02, 33), fixed(0x03, 34)}},
		{TotalAmount: 100, Beneficiaries: []intent.Beneficiary{percentage(0x01, 12.5), percentage(0x02, 37.5), percentage(0x03, 50)}},
		{TotalAmount: 97, Beneficiaries: []intent.Beneficiary{fixed(0x01, 1), percentage(0x02, 50), fixed(0x03, 46)}},
	}

	for _, plan := range plans {
		for net := uint64(0); net <= plan.TotalAmount; net++ {
			payouts, err := ComputePayouts(net, plan)
			require.NoError(t, err)
			assert.Equal(t, net, sum(payouts), "net=%d", net)
		}
	}
}

func TestComputePayouts_Deterministic(t *testing.T) {
	plan := &intent.DistributionPlan{
		TotalAmount: 1_000_000_007,
		Beneficiaries: []intent.Beneficiary{
			fixed(0x01, 123_456_789),
			percentage(0x02, 33.33),
			fixed(0x03, 500_000_000),
		},
	}

	first, err := ComputePayouts(999_999_999, plan)
	require.NoError(t, err)
	second, err := ComputePayouts(999_999_999, plan)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputePayouts_Overcommitted(t *testing.T) {
	// Fixed shares exceeding the declared total scale past the net amount.
	plan := &intent.DistributionPlan{
		TotalAmount:   10,
		Beneficiaries: []intent.Beneficiary{fixed(0x01, 100), fixed(0x02, 1)},
	}

	_, err := ComputePayouts(10, plan)
	assert.ErrorIs(t, err, ErrOvercommitted)
}
