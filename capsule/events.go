package capsule

import (
	"github.com/oklog/ulid/v2"

	"github.com/heresorg/libheres-go/distribute"
	"github.com/heresorg/libheres-go/identity"
)

// EventType names a capsule lifecycle transition.
type EventType string

const (
	EventCapsuleCreated     EventType = "capsule_created"
	EventIntentUpdated      EventType = "intent_updated"
	EventActivityUpdated    EventType = "activity_updated"
	EventIntentExecuted     EventType = "intent_executed"
	EventCapsuleDeactivated EventType = "capsule_deactivated"
	EventCapsuleRecreated   EventType = "capsule_recreated"
	EventFeeConfigUpdated   EventType = "fee_config_updated"
)

// Event records a committed capsule state transition. Events are emitted
// only after the backing ledger transaction has committed.
type Event struct {
	ID        string // ULID, lexically ordered by emission time
	Type      EventType
	CapsuleID identity.RecordKey
	Owner     identity.Identity
	At        int64 // unix seconds of the transition
}

// EventSink receives committed lifecycle events.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(ev Event) { f(ev) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

func newEvent(typ EventType, capsuleID identity.RecordKey, owner identity.Identity, at int64) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      typ,
		CapsuleID: capsuleID,
		Owner:     owner,
		At:        at,
	}
}

// ExecutionResult reports the outcome of a successful Execute.
type ExecutionResult struct {
	Event      Event
	ExecutedAt int64
	Fee        uint64
	Net        uint64
	Payouts    []distribute.Payout
}
