// Package intent decodes and validates the distribution plan payload stored
// inside a capsule.
//
// The wire contract is a UTF-8 JSON object:
//
//	{
//	  "beneficiaries": [
//	    {"address": "<base58check>", "amount": "3", "amountType": "fixed"},
//	    {"address": "<base58check>", "amount": "60", "amountType": "percentage"}
//	  ],
//	  "totalAmount": "10"
//	}
//
// Unknown top-level fields (e.g. a free-text "intent" memo) are ignored.
// Everything else is validated strictly: a malformed payload blocks execution
// entirely rather than distributing a best-effort amount.
package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/heresorg/libheres-go/amount"
	"github.com/heresorg/libheres-go/identity"
)

// MaxIntentDataSize is the maximum size of the stored intent payload in bytes.
const MaxIntentDataSize = 1024

// percentageSumTolerance is the allowed deviation of the percentage total
// from 100 when percentage beneficiaries are present.
const percentageSumTolerance = 0.01

// AmountType tags how a beneficiary's share is expressed.
type AmountType string

const (
	// AmountFixed denotes a fixed amount in whole-coin decimal notation.
	AmountFixed AmountType = "fixed"

	// AmountPercentage denotes a percentage (0-100, fractional allowed) of
	// the plan total.
	AmountPercentage AmountType = "percentage"
)

// Beneficiary is one recipient entry of a distribution plan. Order is
// significant: the last beneficiary in declaration order absorbs the
// rounding remainder during distribution.
type Beneficiary struct {
	Recipient  identity.Identity
	Address    string // original base58check form
	Type       AmountType
	Fixed      uint64  // base units; set when Type == AmountFixed
	Percentage float64 // 0-100; set when Type == AmountPercentage
}

// DistributionPlan is the decoded view of a capsule's intent payload.
type DistributionPlan struct {
	TotalAmount   uint64 // base units
	Beneficiaries []Beneficiary
}

type planWire struct {
	Beneficiaries *[]beneficiaryWire `json:"beneficiaries"`
	TotalAmount   *string            `json:"totalAmount"`
}

type beneficiaryWire struct {
	Address    *string `json:"address"`
	Amount     *string `json:"amount"`
	AmountType string  `json:"amountType"`
}

// ParsePlan decodes intent payload bytes into a DistributionPlan.
// All failure modes wrap ErrInvalidIntentData, except oversized payloads
// which wrap ErrIntentTooLarge.
func ParsePlan(data []byte) (*DistributionPlan, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidIntentData)
	}
	if len(data) > MaxIntentDataSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrIntentTooLarge, len(data), MaxIntentDataSize)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrInvalidIntentData)
	}

	var wire planWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntentData, err)
	}
	if wire.TotalAmount == nil {
		return nil, fmt.Errorf("%w: missing totalAmount", ErrInvalidIntentData)
	}
	if wire.Beneficiaries == nil {
		return nil, fmt.Errorf("%w: missing beneficiaries", ErrInvalidIntentData)
	}

	total, err := amount.ToBaseUnits(*wire.TotalAmount, amount.BaseUnitScale)
	if err != nil {
		return nil, fmt.Errorf("%w: totalAmount: %w", ErrInvalidIntentData, err)
	}

	plan := &DistributionPlan{
		TotalAmount:   total,
		Beneficiaries: make([]Beneficiary, 0, len(*wire.Beneficiaries)),
	}

	for i, bw := range *wire.Beneficiaries {
		b, err := parseBeneficiary(bw)
		if err != nil {
			return nil, fmt.Errorf("beneficiary %d: %w", i, err)
		}
		plan.Beneficiaries = append(plan.Beneficiaries, b)
	}

	return plan, nil
}

func parseBeneficiary(bw beneficiaryWire) (Beneficiary, error) {
	var b Beneficiary

	if bw.Address == nil || *bw.Address == "" {
		return b, fmt.Errorf("%w: missing address", ErrInvalidIntentData)
	}
	if bw.Amount == nil {
		return b, fmt.Errorf("%w: missing amount", ErrInvalidIntentData)
	}

	recipient, err := identity.ParseAddress(*bw.Address)
	if err != nil {
		return b, fmt.Errorf("%w: %w", ErrInvalidIntentData, err)
	}

	b.Recipient = recipient
	b.Address = *bw.Address

	// amountType defaults to "fixed" when omitted.
	switch AmountType(bw.AmountType) {
	case AmountFixed, "":
		b.Type = AmountFixed
		fixed, err := amount.ToBaseUnits(*bw.Amount, amount.BaseUnitScale)
		if err != nil {
			return b, fmt.Errorf("%w: amount: %w", ErrInvalidIntentData, err)
		}
		b.Fixed = fixed
	case AmountPercentage:
		b.Type = AmountPercentage
		pct, err := strconv.ParseFloat(*bw.Amount, 64)
		if err != nil || math.IsNaN(pct) || math.IsInf(pct, 0) {
			return b, fmt.Errorf("%w: percentage %q is not a number", ErrInvalidIntentData, *bw.Amount)
		}
		if pct < 0 || pct > 100 {
			return b, fmt.Errorf("%w: percentage %v out of range [0, 100]", ErrInvalidIntentData, pct)
		}
		b.Percentage = pct
	default:
		return b, fmt.Errorf("%w: unknown amountType %q", ErrInvalidIntentData, bw.AmountType)
	}

	return b, nil
}

// ValidatePlan applies the creation-time plan checks beyond the decoder:
// at least one beneficiary, every share positive, fixed shares summing to at
// most the plan total, and, when percentage beneficiaries are present, their
// percentages summing to 100 within a 0.01 tolerance.
func ValidatePlan(plan *DistributionPlan) error {
	if len(plan.Beneficiaries) == 0 {
		return fmt.Errorf("%w: no beneficiaries", ErrInvalidIntentData)
	}

	var fixedSum uint64
	var pctSum float64
	var pctCount int
	for i, b := range plan.Beneficiaries {
		switch b.Type {
		case AmountFixed:
			if b.Fixed == 0 {
				return fmt.Errorf("%w: beneficiary %d: zero amount", ErrInvalidIntentData, i)
			}
			if b.Fixed > plan.TotalAmount-fixedSum {
				return fmt.Errorf("%w: beneficiary %d pushes fixed shares past total %d",
					ErrPlanOvercommitted, i, plan.TotalAmount)
			}
			fixedSum += b.Fixed
		case AmountPercentage:
			if b.Percentage <= 0 {
				return fmt.Errorf("%w: beneficiary %d: zero percentage", ErrInvalidIntentData, i)
			}
			pctSum += b.Percentage
			pctCount++
		}
	}

	if pctCount > 0 && math.Abs(pctSum-100) >= percentageSumTolerance {
		return fmt.Errorf("%w: percentages sum to %v, want 100", ErrPercentageSum, pctSum)
	}

	return nil
}

// EncodePlan serializes a DistributionPlan back to the wire format.
// ParsePlan(EncodePlan(p)) recovers an equivalent plan: same total, same
// beneficiary order, same amounts.
func EncodePlan(plan *DistributionPlan) ([]byte, error) {
	type outBeneficiary struct {
		Address    string `json:"address"`
		Amount     string `json:"amount"`
		AmountType string `json:"amountType"`
	}
	type outPlan struct {
		Beneficiaries []outBeneficiary `json:"beneficiaries"`
		TotalAmount   string           `json:"totalAmount"`
	}

	out := outPlan{
		Beneficiaries: make([]outBeneficiary, 0, len(plan.Beneficiaries)),
		TotalAmount:   amount.FromBaseUnits(plan.TotalAmount, amount.BaseUnitScale),
	}

	for i, b := range plan.Beneficiaries {
		addr := b.Address
		if addr == "" {
			var err error
			addr, err = b.Recipient.Address()
			if err != nil {
				return nil, fmt.Errorf("intent: beneficiary %d: %w", i, err)
			}
		}

		var amt string
		switch b.Type {
		case AmountFixed:
			amt = amount.FromBaseUnits(b.Fixed, amount.BaseUnitScale)
		case AmountPercentage:
			amt = strconv.FormatFloat(b.Percentage, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("%w: beneficiary %d: unknown amountType %q", ErrInvalidIntentData, i, b.Type)
		}

		out.Beneficiaries = append(out.Beneficiaries, outBeneficiary{
			Address:    addr,
			Amount:     amt,
			AmountType: string(b.Type),
		})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("intent: encode plan: %w", err)
	}
	if len(data) > MaxIntentDataSize {
		return nil, fmt.Errorf("%w: encoded plan is %d bytes", ErrIntentTooLarge, len(data))
	}
	return data, nil
}
