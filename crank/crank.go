// Package crank automates capsule execution: it periodically scans the
// ledger for active capsules whose inactivity window has elapsed and
// triggers their execution, so funds are distributed without any action from
// the owner or the beneficiaries. It is the host-side counterpart of the
// permissionless Execute operation and is safe to run from multiple
// processes; a capsule that loses the race simply fails its second execution
// and is skipped.
package crank

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/heresorg/libheres-go/capsule"
	"github.com/heresorg/libheres-go/gate"
)

// DefaultInterval is the scan interval used when none is configured.
const DefaultInterval = time.Minute

// ProofSource supplies an inactivity proof for a capsule about to be
// executed. Only needed when the engine gates on proofs; a time-gated
// deployment leaves it nil.
type ProofSource interface {
	InactivityProof(c *capsule.Capsule, now int64) (proof, publicInputs []byte, err error)
}

// Result summarizes one crank pass.
type Result struct {
	Eligible int
	Executed int
	Errors   []error
}

// OK reports whether the pass completed without per-capsule failures.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Runner scans for eligible capsules and executes them.
type Runner struct {
	engine   *capsule.Engine
	clock    gate.Clock
	proofs   ProofSource
	interval time.Duration
	log      logrus.FieldLogger
}

// Config configures a crank runner. Engine is required.
type Config struct {
	Engine   *capsule.Engine
	Clock    gate.Clock    // nil selects gate.SystemClock
	Proofs   ProofSource   // nil for time-gated deployments
	Interval time.Duration // zero selects DefaultInterval
	Logger   logrus.FieldLogger
}

// New returns a crank runner over the given engine.
func New(cfg Config) (*Runner, error) {
	if cfg.Engine == nil {
		return nil, errors.New("crank: nil engine")
	}
	r := &Runner{
		engine:   cfg.Engine,
		clock:    cfg.Clock,
		proofs:   cfg.Proofs,
		interval: cfg.Interval,
		log:      cfg.Logger,
	}
	if r.clock == nil {
		r.clock = gate.SystemClock{}
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	if r.log == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.InfoLevel)
		r.log = logger
	}
	return r, nil
}

// RunOnce performs a single scan-and-execute pass. Per-capsule execution
// failures are collected in the result, not returned: one broken capsule
// must not block the rest of the pass.
func (r *Runner) RunOnce(ctx context.Context) (*Result, error) {
	now := r.clock.Now().Unix()

	var eligible []*capsule.Capsule
	err := r.engine.ForEachCapsule(func(c *capsule.Capsule) error {
		if !c.IsActive || c.ExecutedAt != nil {
			return nil
		}
		if gate.CheckInactivity(c.LastActivity, c.InactivityPeriod, now) != nil {
			return nil
		}
		eligible = append(eligible, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Eligible: len(eligible)}
	for _, c := range eligible {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log := r.log.WithFields(logrus.Fields{
			"owner":   c.Owner,
			"elapsed": now - c.LastActivity,
			"period":  c.InactivityPeriod,
		})

		var proof, inputs []byte
		if r.proofs != nil {
			proof, inputs, err = r.proofs.InactivityProof(c, now)
			if err != nil {
				log.WithError(err).Warn("inactivity proof unavailable")
				result.Errors = append(result.Errors, err)
				continue
			}
		}

		res, err := r.engine.Execute(c.Owner, proof, inputs)
		if err != nil {
			// Lost races show up here as an inactive capsule; everything is
			// worth surfacing to the operator.
			log.WithError(err).Warn("capsule execution failed")
			result.Errors = append(result.Errors, err)
			continue
		}

		log.WithFields(logrus.Fields{
			"event":   res.Event.ID,
			"fee":     res.Fee,
			"net":     res.Net,
			"payouts": len(res.Payouts),
		}).Info("capsule executed")
		result.Executed++
	}

	return result, nil
}

// Run executes passes at the configured interval until ctx is cancelled.
// Pass-level failures are logged and the loop keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.log.WithField("interval", r.interval).Info("crank started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		res, err := r.RunOnce(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.log.WithError(err).Error("crank pass failed")
		case res.Eligible > 0:
			r.log.WithFields(logrus.Fields{
				"eligible": res.Eligible,
				"executed": res.Executed,
				"failed":   len(res.Errors),
			}).Info("crank pass complete")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
