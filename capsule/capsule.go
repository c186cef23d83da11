// Package capsule implements the Intent Capsule state machine: a principal
// locks funds and a declarative distribution plan; if the principal fails to
// signal activity for a configured inactivity window, any party may trigger
// release of the locked funds to the plan's beneficiaries once the gating
// checks pass.
//
// A capsule moves Active -> Executed (via Execute) or Active -> Deactivated
// (via Deactivate, terminal for the cycle). Only an Executed capsule can be
// reset to Active via Recreate. The invariant IsActive => ExecutedAt unset
// holds after every operation.
package capsule

import (
	"encoding/binary"
	"fmt"

	"github.com/heresorg/libheres-go/identity"
	"github.com/heresorg/libheres-go/intent"
)

// State is the conceptual lifecycle state of a capsule.
type State string

const (
	// StateActive accepts owner mutations and gated execution.
	StateActive State = "active"

	// StateExecuted has distributed its vault; only Recreate applies.
	StateExecuted State = "executed"

	// StateDeactivated was cancelled by its owner; terminal for the cycle.
	StateDeactivated State = "deactivated"
)

// Capsule is the persistent record of a principal's locked intent.
type Capsule struct {
	Owner            identity.Identity
	InactivityPeriod int64  // seconds of required inactivity before release
	LastActivity     int64  // unix seconds of the last activity signal
	IntentData       []byte // distribution plan payload, <= intent.MaxIntentDataSize
	IsActive         bool
	ExecutedAt       *int64 // unix seconds; set exactly once per execution cycle
}

// State derives the conceptual state from the stored fields.
func (c *Capsule) State() State {
	switch {
	case c.IsActive:
		return StateActive
	case c.ExecutedAt != nil:
		return StateExecuted
	default:
		return StateDeactivated
	}
}

// Key returns the capsule's deterministic record key.
func (c *Capsule) Key() identity.RecordKey {
	return identity.CapsuleKey(c.Owner)
}

// VaultKey returns the record key of the capsule's custody vault.
func (c *Capsule) VaultKey() identity.RecordKey {
	return identity.VaultKey(c.Owner)
}

const (
	capsuleHeaderSize  = 40 // owner(20) + inactivity_period(8) + last_activity(8) + intent_len(4)
	capsuleTrailerSize = 2  // is_active(1) + has_executed_at(1)
)

// SerializeCapsule encodes a capsule to its binary ledger format.
func SerializeCapsule(c *Capsule) ([]byte, error) {
	if len(c.IntentData) > intent.MaxIntentDataSize {
		return nil, fmt.Errorf("%w: intent data is %d bytes", intent.ErrIntentTooLarge, len(c.IntentData))
	}
	if c.IsActive && c.ExecutedAt != nil {
		return nil, fmt.Errorf("%w: active capsule with executedAt set", ErrInvalidCapsuleData)
	}

	size := capsuleHeaderSize + len(c.IntentData) + capsuleTrailerSize
	if c.ExecutedAt != nil {
		size += 8
	}
	buf := make([]byte, size)
	offset := 0

	copy(buf[offset:offset+20], c.Owner[:])
	offset += 20

	binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(c.InactivityPeriod))
	offset += 8

	binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(c.LastActivity))
	offset += 8

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(c.IntentData)))
	offset += 4

	copy(buf[offset:], c.IntentData)
	offset += len(c.IntentData)

	if c.IsActive {
		buf[offset] = 1
	}
	offset++

	if c.ExecutedAt != nil {
		buf[offset] = 1
		offset++
		binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(*c.ExecutedAt))
	}

	return buf, nil
}

// DeserializeCapsule decodes binary data into a Capsule.
func DeserializeCapsule(data []byte) (*Capsule, error) {
	if len(data) < capsuleHeaderSize+capsuleTrailerSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidCapsuleData, len(data))
	}
	offset := 0

	c := &Capsule{}
	copy(c.Owner[:], data[offset:offset+20])
	offset += 20

	c.InactivityPeriod = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8

	c.LastActivity = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8

	intentLen := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if intentLen > intent.MaxIntentDataSize {
		return nil, fmt.Errorf("%w: intent data length %d", ErrInvalidCapsuleData, intentLen)
	}
	if len(data) < offset+intentLen+capsuleTrailerSize {
		return nil, fmt.Errorf("%w: truncated intent data", ErrInvalidCapsuleData)
	}

	c.IntentData = make([]byte, intentLen)
	copy(c.IntentData, data[offset:offset+intentLen])
	offset += intentLen

	c.IsActive = data[offset] == 1
	offset++

	hasExecutedAt := data[offset] == 1
	offset++

	if hasExecutedAt {
		if len(data) < offset+8 {
			return nil, fmt.Errorf("%w: truncated executedAt", ErrInvalidCapsuleData)
		}
		at := int64(binary.BigEndian.Uint64(data[offset : offset+8]))
		c.ExecutedAt = &at
	}

	if c.IsActive && c.ExecutedAt != nil {
		return nil, fmt.Errorf("%w: active capsule with executedAt set", ErrInvalidCapsuleData)
	}

	return c, nil
}
