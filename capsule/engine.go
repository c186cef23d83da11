package capsule

import (
	"errors"
	"fmt"

	"github.com/heresorg/libheres-go/distribute"
	"github.com/heresorg/libheres-go/fee"
	"github.com/heresorg/libheres-go/gate"
	"github.com/heresorg/libheres-go/identity"
	"github.com/heresorg/libheres-go/intent"
	"github.com/heresorg/libheres-go/ledger"
)

// Engine drives the capsule lifecycle over a ledger store. Every operation
// runs inside a single atomic ledger transaction; a failure at any point
// leaves no partial state behind. Lifecycle events are emitted only after
// the transaction has committed.
type Engine struct {
	store ledger.Store
	clock gate.Clock
	gate  *gate.Gate
	sink  EventSink
}

// EngineConfig configures a capsule engine. Store is required; the zero
// value of every other field selects a sensible default.
type EngineConfig struct {
	Store  ledger.Store
	Clock  gate.Clock  // nil selects gate.SystemClock
	Gate   *gate.Gate  // nil selects a time-only gate
	Events EventSink   // nil discards events
}

// NewEngine returns an engine over the given ledger store.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("capsule: nil ledger store")
	}
	e := &Engine{
		store: cfg.Store,
		clock: cfg.Clock,
		gate:  cfg.Gate,
		sink:  cfg.Events,
	}
	if e.clock == nil {
		e.clock = gate.SystemClock{}
	}
	if e.gate == nil {
		e.gate = gate.NewTimeGate()
	}
	if e.sink == nil {
		e.sink = discardSink{}
	}
	return e, nil
}

// InitFeeConfig stores the initial fee configuration. It can be called at
// most once per ledger; the caller becomes the config authority.
func (e *Engine) InitFeeConfig(caller identity.Identity, feeRecipient identity.Identity, creationFee uint64, executionFeeBps uint16) error {
	cfg := &fee.Config{
		Authority:       caller,
		FeeRecipient:    feeRecipient,
		CreationFee:     creationFee,
		ExecutionFeeBps: executionFeeBps,
	}
	if err := fee.ValidateConfig(cfg); err != nil {
		return err
	}

	err := e.store.Update(func(tx ledger.Tx) error {
		if tx.HasRecord(ledger.FeeConfigKey) {
			return ErrFeeConfigExists
		}
		return tx.PutRecord(ledger.FeeConfigKey, fee.SerializeConfig(cfg))
	})
	if err != nil {
		return err
	}

	e.sink.Emit(newEvent(EventFeeConfigUpdated, ledger.FeeConfigKey, caller, e.now()))
	return nil
}

// UpdateFeeConfig replaces the creation fee and execution fee rate. Only the
// stored authority may call it.
func (e *Engine) UpdateFeeConfig(caller identity.Identity, creationFee uint64, executionFeeBps uint16) error {
	err := e.store.Update(func(tx ledger.Tx) error {
		cfg, err := loadFeeConfig(tx)
		if err != nil {
			return err
		}
		if cfg.Authority != caller {
			return fmt.Errorf("%w: caller is not the fee config authority", ErrUnauthorized)
		}
		cfg.CreationFee = creationFee
		cfg.ExecutionFeeBps = executionFeeBps
		if err := fee.ValidateConfig(cfg); err != nil {
			return err
		}
		return tx.PutRecord(ledger.FeeConfigKey, fee.SerializeConfig(cfg))
	})
	if err != nil {
		return err
	}

	e.sink.Emit(newEvent(EventFeeConfigUpdated, ledger.FeeConfigKey, caller, e.now()))
	return nil
}

// FeeConfig returns the stored fee configuration.
func (e *Engine) FeeConfig() (*fee.Config, error) {
	var cfg *fee.Config
	err := e.store.View(func(tx ledger.Tx) error {
		var err error
		cfg, err = loadFeeConfig(tx)
		return err
	})
	return cfg, err
}

// Create locks a new capsule for owner: validates the plan, collects the
// flat creation fee, funds the custody vault with the plan total, and stores
// the capsule record as active.
func (e *Engine) Create(owner identity.Identity, inactivityPeriod int64, intentData []byte) (*Capsule, error) {
	if inactivityPeriod <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeriod, inactivityPeriod)
	}
	plan, err := parseAndValidate(intentData)
	if err != nil {
		return nil, err
	}

	now := e.now()
	c := &Capsule{
		Owner:            owner,
		InactivityPeriod: inactivityPeriod,
		LastActivity:     now,
		IntentData:       append([]byte(nil), intentData...),
		IsActive:         true,
	}
	encoded, err := SerializeCapsule(c)
	if err != nil {
		return nil, err
	}

	err = e.store.Update(func(tx ledger.Tx) error {
		if tx.HasRecord(c.Key()) {
			return fmt.Errorf("%w: owner %x", ErrCapsuleExists, owner)
		}
		cfg, err := loadFeeConfig(tx)
		if err != nil {
			return err
		}
		if creation := fee.CreationFee(cfg); creation > 0 {
			if err := tx.Transfer(owner, cfg.FeeRecipient, creation); err != nil {
				return fmt.Errorf("creation fee: %w", err)
			}
		}
		if err := tx.FundVault(owner, c.VaultKey(), owner, plan.TotalAmount); err != nil {
			return fmt.Errorf("fund vault: %w", err)
		}
		return tx.PutRecord(c.Key(), encoded)
	})
	if err != nil {
		return nil, err
	}

	e.sink.Emit(newEvent(EventCapsuleCreated, c.Key(), owner, now))
	return c, nil
}

// UpdateIntent replaces the distribution plan of an active capsule and
// rebalances the vault to the new plan total: the owner tops up a larger
// plan and is refunded the difference for a smaller one. Counts as an
// activity signal.
func (e *Engine) UpdateIntent(caller identity.Identity, intentData []byte) (*Capsule, error) {
	plan, err := parseAndValidate(intentData)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var updated *Capsule
	err = e.store.Update(func(tx ledger.Tx) error {
		c, err := loadOwnedCapsule(tx, caller)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return ErrCapsuleInactive
		}

		balance, err := tx.VaultBalance(c.VaultKey())
		if err != nil {
			return err
		}
		switch {
		case plan.TotalAmount > balance:
			if err := tx.FundVault(caller, c.VaultKey(), caller, plan.TotalAmount-balance); err != nil {
				return fmt.Errorf("fund vault: %w", err)
			}
		case plan.TotalAmount < balance:
			auth, err := ledger.DeriveVaultAuthority(c.Owner, c.VaultKey())
			if err != nil {
				return err
			}
			if err := tx.DrainVault(c.VaultKey(), auth, caller, balance-plan.TotalAmount); err != nil {
				return fmt.Errorf("refund vault: %w", err)
			}
		}

		c.IntentData = append([]byte(nil), intentData...)
		c.LastActivity = now
		encoded, err := SerializeCapsule(c)
		if err != nil {
			return err
		}
		if err := tx.PutRecord(c.Key(), encoded); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.sink.Emit(newEvent(EventIntentUpdated, updated.Key(), caller, now))
	return updated, nil
}

// UpdateActivity refreshes the owner's activity timestamp, restarting the
// inactivity window. It applies regardless of active state, matching the
// recorded lastActivity semantics rather than gating on lifecycle.
func (e *Engine) UpdateActivity(caller identity.Identity) (*Capsule, error) {
	now := e.now()
	var updated *Capsule
	err := e.store.Update(func(tx ledger.Tx) error {
		c, err := loadOwnedCapsule(tx, caller)
		if err != nil {
			return err
		}
		c.LastActivity = now
		encoded, err := SerializeCapsule(c)
		if err != nil {
			return err
		}
		if err := tx.PutRecord(c.Key(), encoded); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.sink.Emit(newEvent(EventActivityUpdated, updated.Key(), caller, now))
	return updated, nil
}

// Deactivate cancels an active capsule: the full vault balance is refunded
// to the owner and the capsule becomes terminally inactive for this cycle.
// ExecutedAt stays unset, which is what blocks a later Recreate.
func (e *Engine) Deactivate(caller identity.Identity) (*Capsule, error) {
	now := e.now()
	var updated *Capsule
	err := e.store.Update(func(tx ledger.Tx) error {
		c, err := loadOwnedCapsule(tx, caller)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return ErrCapsuleInactive
		}

		balance, err := tx.VaultBalance(c.VaultKey())
		if err != nil {
			return err
		}
		if balance > 0 {
			auth, err := ledger.DeriveVaultAuthority(c.Owner, c.VaultKey())
			if err != nil {
				return err
			}
			if err := tx.DrainVault(c.VaultKey(), auth, caller, balance); err != nil {
				return fmt.Errorf("refund vault: %w", err)
			}
		}

		c.IsActive = false
		encoded, err := SerializeCapsule(c)
		if err != nil {
			return err
		}
		if err := tx.PutRecord(c.Key(), encoded); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.sink.Emit(newEvent(EventCapsuleDeactivated, updated.Key(), caller, now))
	return updated, nil
}

// Execute releases an active capsule whose gate conditions hold. Execution
// is permissionless: any party may trigger it once the inactivity window has
// elapsed (and, in proof mode, a valid proof is presented).
//
// The vault balance at execution time is the distributable total: the
// execution fee is carved off first and the remainder is paid out per the
// stored plan, with the full sum leaving the vault exactly. On success the
// capsule is marked executed and stays inactive until recreated.
func (e *Engine) Execute(owner identity.Identity, proof, publicInputs []byte) (*ExecutionResult, error) {
	now := e.now()
	var result *ExecutionResult
	err := e.store.Update(func(tx ledger.Tx) error {
		c, err := loadCapsule(tx, owner)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return ErrCapsuleInactive
		}

		if err := e.gate.Check(c.Owner, c.LastActivity, c.InactivityPeriod, now, proof, publicInputs); err != nil {
			return err
		}

		plan, err := intent.ParsePlan(c.IntentData)
		if err != nil {
			return err
		}

		balance, err := tx.VaultBalance(c.VaultKey())
		if err != nil {
			return err
		}
		cfg, err := loadFeeConfig(tx)
		if err != nil {
			return err
		}
		feeAmount, err := fee.ExecutionFee(balance, cfg)
		if err != nil {
			return err
		}
		net := balance - feeAmount

		payouts, err := distribute.ComputePayouts(net, plan)
		if err != nil {
			return err
		}
		for _, p := range payouts {
			if err := tx.Resolve(p.Recipient); err != nil {
				return fmt.Errorf("%w: %w", ErrUnknownBeneficiary, err)
			}
		}

		auth, err := ledger.DeriveVaultAuthority(c.Owner, c.VaultKey())
		if err != nil {
			return err
		}
		if feeAmount > 0 {
			if err := tx.DrainVault(c.VaultKey(), auth, cfg.FeeRecipient, feeAmount); err != nil {
				return fmt.Errorf("execution fee: %w", err)
			}
		}
		for _, p := range payouts {
			if err := tx.DrainVault(c.VaultKey(), auth, p.Recipient, p.Amount); err != nil {
				return fmt.Errorf("payout: %w", err)
			}
		}

		executedAt := now
		c.IsActive = false
		c.ExecutedAt = &executedAt
		encoded, err := SerializeCapsule(c)
		if err != nil {
			return err
		}
		if err := tx.PutRecord(c.Key(), encoded); err != nil {
			return err
		}

		result = &ExecutionResult{
			ExecutedAt: executedAt,
			Fee:        feeAmount,
			Net:        net,
			Payouts:    payouts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Event = newEvent(EventIntentExecuted, identity.CapsuleKey(owner), owner, result.ExecutedAt)
	e.sink.Emit(result.Event)
	return result, nil
}

// Recreate re-arms an executed capsule with a fresh period and plan: the
// vault is funded with the new plan total and the capsule returns to the
// active state. A deactivated capsule cannot be recreated.
func (e *Engine) Recreate(caller identity.Identity, inactivityPeriod int64, intentData []byte) (*Capsule, error) {
	if inactivityPeriod <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeriod, inactivityPeriod)
	}
	plan, err := parseAndValidate(intentData)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var updated *Capsule
	err = e.store.Update(func(tx ledger.Tx) error {
		c, err := loadOwnedCapsule(tx, caller)
		if err != nil {
			return err
		}
		if c.IsActive {
			return ErrCapsuleActive
		}
		if c.ExecutedAt == nil {
			return ErrCapsuleNotExecuted
		}

		if err := tx.FundVault(caller, c.VaultKey(), caller, plan.TotalAmount); err != nil {
			return fmt.Errorf("fund vault: %w", err)
		}

		c.InactivityPeriod = inactivityPeriod
		c.LastActivity = now
		c.IntentData = append([]byte(nil), intentData...)
		c.IsActive = true
		c.ExecutedAt = nil
		encoded, err := SerializeCapsule(c)
		if err != nil {
			return err
		}
		if err := tx.PutRecord(c.Key(), encoded); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.sink.Emit(newEvent(EventCapsuleRecreated, updated.Key(), caller, now))
	return updated, nil
}

// Get returns the stored capsule for owner.
func (e *Engine) Get(owner identity.Identity) (*Capsule, error) {
	var c *Capsule
	err := e.store.View(func(tx ledger.Tx) error {
		var err error
		c, err = loadCapsule(tx, owner)
		return err
	})
	return c, err
}

// VaultBalance returns the locked balance of owner's capsule vault.
func (e *Engine) VaultBalance(owner identity.Identity) (uint64, error) {
	var balance uint64
	err := e.store.View(func(tx ledger.Tx) error {
		var err error
		balance, err = tx.VaultBalance(identity.VaultKey(owner))
		return err
	})
	return balance, err
}

// ForEachCapsule visits every stored capsule. Records that are not capsules
// (the fee config, vault records live in their own bucket) are skipped.
func (e *Engine) ForEachCapsule(fn func(c *Capsule) error) error {
	return e.store.View(func(tx ledger.Tx) error {
		return tx.ForEachRecord(func(key identity.RecordKey, value []byte) error {
			if key == ledger.FeeConfigKey {
				return nil
			}
			c, err := DeserializeCapsule(value)
			if err != nil {
				return nil // not a capsule record
			}
			if identity.CapsuleKey(c.Owner) != key {
				return nil
			}
			return fn(c)
		})
	})
}

func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}

func parseAndValidate(intentData []byte) (*intent.DistributionPlan, error) {
	plan, err := intent.ParsePlan(intentData)
	if err != nil {
		return nil, err
	}
	if err := intent.ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func loadCapsule(tx ledger.Tx, owner identity.Identity) (*Capsule, error) {
	data, err := tx.Record(identity.CapsuleKey(owner))
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: owner %x", ErrCapsuleNotFound, owner)
		}
		return nil, err
	}
	return DeserializeCapsule(data)
}

// loadOwnedCapsule loads caller's capsule and confirms ownership. The key
// derivation already binds the record to the owner, so the stored owner
// field disagreeing with the key means a corrupt record, not a permission
// failure; it is still rejected.
func loadOwnedCapsule(tx ledger.Tx, caller identity.Identity) (*Capsule, error) {
	c, err := loadCapsule(tx, caller)
	if err != nil {
		return nil, err
	}
	if c.Owner != caller {
		return nil, fmt.Errorf("%w: record owner mismatch", ErrUnauthorized)
	}
	return c, nil
}

func loadFeeConfig(tx ledger.Tx) (*fee.Config, error) {
	data, err := tx.Record(ledger.FeeConfigKey)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return nil, ErrFeeConfigNotFound
		}
		return nil, err
	}
	return fee.DeserializeConfig(data)
}
