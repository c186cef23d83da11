package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/heresorg/libheres-go/amount"
	"github.com/heresorg/libheres-go/capsule"
	"github.com/heresorg/libheres-go/crank"
	"github.com/heresorg/libheres-go/fee"
	"github.com/heresorg/libheres-go/gate"
	"github.com/heresorg/libheres-go/identity"
	"github.com/heresorg/libheres-go/keyring"
	"github.com/heresorg/libheres-go/ledger"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(store *ledger.BoltStore) *cli.App {
	app := &cli.App{
		Name:    "heres",
		Usage:   "Intent capsule escrow: lock funds behind an inactivity window",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "gate", Value: "time", Usage: "Release gate mode: time|proof"},
		},
		Commands: []*cli.Command{
			capsuleCmd(store),
			feesCmd(store),
			accountCmd(store),
			keyCmd(),
			crankCmd(store),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func newEngine(store *ledger.BoltStore, c *cli.Context) (*capsule.Engine, error) {
	var g *gate.Gate
	switch c.String("gate") {
	case "time", "":
		g = gate.NewTimeGate()
	case "proof":
		g = gate.NewProofGate(nil)
	default:
		return nil, fmt.Errorf("unknown gate mode %q", c.String("gate"))
	}
	return capsule.NewEngine(capsule.EngineConfig{Store: store, Gate: g})
}

func capsuleCmd(store *ledger.BoltStore) *cli.Command {
	return &cli.Command{
		Name:  "capsule",
		Usage: "Manage intent capsules",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a capsule (reads intent JSON from stdin or --intent)",
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.Int64Flag{Name: "period", Aliases: []string{"p"}, Required: true, Usage: "Inactivity period in seconds"},
					intentFlag(),
				},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					owner, err := parseOwner(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					intentData, err := readIntent(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					record, err := engine.Create(owner, c.Int64("period"), intentData)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputCapsule(record)
				},
			},
			{
				Name:  "status",
				Usage: "Show a capsule and its vault balance",
				Flags: []cli.Flag{ownerFlag()},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					owner, err := parseOwner(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					record, err := engine.Get(owner)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					vault, err := engine.VaultBalance(owner)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					view, err := capsuleView(record)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					view["vaultBalance"] = amount.FromBaseUnits(vault, amount.BaseUnitScale)
					return outputJSON(view)
				},
			},
			{
				Name:  "ping",
				Usage: "Signal activity, restarting the inactivity window",
				Flags: []cli.Flag{ownerFlag()},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					owner, err := parseOwner(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					record, err := engine.UpdateActivity(owner)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputCapsule(record)
				},
			},
			{
				Name:  "update",
				Usage: "Replace the intent plan (reads intent JSON from stdin or --intent)",
				Flags: []cli.Flag{ownerFlag(), intentFlag()},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					owner, err := parseOwner(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					intentData, err := readIntent(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					record, err := engine.UpdateIntent(owner, intentData)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputCapsule(record)
				},
			},
			{
				Name:  "execute",
				Usage: "Execute an eligible capsule, distributing its vault",
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{Name: "proof", Usage: "Path to inactivity proof (proof gate only)"},
					&cli.StringFlag{Name: "inputs", Usage: "Path to proof public inputs (proof gate only)"},
				},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					owner, err := parseOwner(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					var proof, inputs []byte
					if path := c.String("proof"); path != "" {
						if proof, err = os.ReadFile(path); err != nil {
							return cli.Exit(err.Error(), 1)
						}
					}
					if path := c.String("inputs"); path != "" {
						if inputs, err = os.ReadFile(path); err != nil {
							return cli.Exit(err.Error(), 1)
						}
					}
					result, err := engine.Execute(owner, proof, inputs)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputResult(result)
				},
			},
			{
				Name:  "deactivate",
				Usage: "Cancel an active capsule and refund its vault to the owner",
				Flags: []cli.Flag{ownerFlag()},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					owner, err := parseOwner(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					record, err := engine.Deactivate(owner)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputCapsule(record)
				},
			},
			{
				Name:  "recreate",
				Usage: "Re-arm an executed capsule with a fresh period and plan",
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.Int64Flag{Name: "period", Aliases: []string{"p"}, Required: true, Usage: "Inactivity period in seconds"},
					intentFlag(),
				},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					owner, err := parseOwner(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					intentData, err := readIntent(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					record, err := engine.Recreate(owner, c.Int64("period"), intentData)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputCapsule(record)
				},
			},
			{
				Name:  "list",
				Usage: "List all capsules",
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					views := make([]map[string]any, 0)
					err = engine.ForEachCapsule(func(record *capsule.Capsule) error {
						view, err := capsuleView(record)
						if err != nil {
							return err
						}
						views = append(views, view)
						return nil
					})
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(views)
				},
			},
		},
	}
}

func feesCmd(store *ledger.BoltStore) *cli.Command {
	return &cli.Command{
		Name:  "fees",
		Usage: "Manage the platform fee configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the fee configuration",
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					cfg, err := engine.FeeConfig()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					authority, err := cfg.Authority.Address()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					recipient, err := cfg.FeeRecipient.Address()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(map[string]any{
						"authority":       authority,
						"feeRecipient":    recipient,
						"creationFee":     cfg.CreationFee,
						"executionFeeBps": cfg.ExecutionFeeBps,
					})
				},
			},
			{
				Name:  "init",
				Usage: "Initialize the fee configuration (once per ledger)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "authority", Required: true, Usage: "Authority address"},
					&cli.StringFlag{Name: "recipient", Required: true, Usage: "Fee recipient address"},
					&cli.Uint64Flag{Name: "creation-fee", Usage: "Flat creation fee in base units"},
					&cli.UintFlag{Name: "bps", Usage: "Execution fee in basis points (0-10000)"},
				},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					authority, err := identity.ParseAddress(c.String("authority"))
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					recipient, err := identity.ParseAddress(c.String("recipient"))
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					bps, err := parseBps(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					err = engine.InitFeeConfig(authority, recipient, c.Uint64("creation-fee"), bps)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(map[string]any{"initialized": true})
				},
			},
			{
				Name:  "update",
				Usage: "Update fee parameters (authority only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "authority", Required: true, Usage: "Authority address"},
					&cli.Uint64Flag{Name: "creation-fee", Usage: "Flat creation fee in base units"},
					&cli.UintFlag{Name: "bps", Usage: "Execution fee in basis points (0-10000)"},
				},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					authority, err := identity.ParseAddress(c.String("authority"))
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					bps, err := parseBps(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					err = engine.UpdateFeeConfig(authority, c.Uint64("creation-fee"), bps)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(map[string]any{"updated": true})
				},
			},
		},
	}
}

func accountCmd(store *ledger.BoltStore) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Inspect and fund ledger accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "balance",
				Usage: "Show an account balance",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Required: true, Usage: "Account address"},
				},
				Action: func(c *cli.Context) error {
					id, err := identity.ParseAddress(c.String("address"))
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					var balance uint64
					err = store.View(func(tx ledger.Tx) error {
						var err error
						balance, err = tx.Balance(id)
						return err
					})
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(map[string]any{
						"address": c.String("address"),
						"balance": amount.FromBaseUnits(balance, amount.BaseUnitScale),
					})
				},
			},
			{
				Name:  "credit",
				Usage: "Credit an account (local ledger only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Required: true, Usage: "Account address"},
					&cli.StringFlag{Name: "amount", Required: true, Usage: "Amount in whole coins, e.g. 10.5"},
				},
				Action: func(c *cli.Context) error {
					id, err := identity.ParseAddress(c.String("address"))
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					units, err := amount.ToBaseUnits(c.String("amount"), amount.BaseUnitScale)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					err = store.Update(func(tx ledger.Tx) error {
						return tx.Credit(id, units)
					})
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(map[string]any{"credited": c.String("amount")})
				},
			},
		},
	}
}

func keyCmd() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Manage operator keys",
		Subcommands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Generate a keypair and write it encrypted to --out",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output key file"},
				},
				Action: func(c *cli.Context) error {
					password, err := keyPassword()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					k, err := keyring.Generate()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					if err := keyring.Save(c.String("out"), k, password); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					addr, err := k.Address()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(map[string]any{"address": addr, "file": c.String("out")})
				},
			},
			{
				Name:  "show",
				Usage: "Show the address of an encrypted key file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "Key file"},
				},
				Action: func(c *cli.Context) error {
					password, err := keyPassword()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					k, err := keyring.Load(c.String("file"), password)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					addr, err := k.Address()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return outputJSON(map[string]any{"address": addr})
				},
			},
		},
	}
}

func crankCmd(store *ledger.BoltStore) *cli.Command {
	return &cli.Command{
		Name:  "crank",
		Usage: "Run the automatic execution loop",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Scan and execute eligible capsules until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "interval", Value: crank.DefaultInterval, Usage: "Scan interval"},
					&cli.BoolFlag{Name: "once", Usage: "Run a single pass and exit"},
				},
				Action: func(c *cli.Context) error {
					engine, err := newEngine(store, c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					logger := logrus.New()
					runner, err := crank.New(crank.Config{
						Engine:   engine,
						Interval: c.Duration("interval"),
						Logger:   logger,
					})
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					if c.Bool("once") {
						res, err := runner.RunOnce(c.Context)
						if err != nil {
							return cli.Exit(err.Error(), 1)
						}
						return outputJSON(map[string]any{
							"eligible": res.Eligible,
							"executed": res.Executed,
							"failed":   len(res.Errors),
						})
					}
					return runner.Run(c.Context)
				},
			},
		},
	}
}

// Helper functions

func ownerFlag() cli.Flag {
	return &cli.StringFlag{Name: "owner", Aliases: []string{"o"}, Required: true, Usage: "Capsule owner address"}
}

func intentFlag() cli.Flag {
	return &cli.StringFlag{Name: "intent", Aliases: []string{"i"}, Usage: "Path to intent JSON (defaults to stdin)"}
}

func parseOwner(c *cli.Context) (identity.Identity, error) {
	return identity.ParseAddress(c.String("owner"))
}

// parseBps range-checks the basis-point flag before it narrows to uint16.
func parseBps(c *cli.Context) (uint16, error) {
	bps := c.Uint("bps")
	if bps > fee.MaxBps {
		return 0, fmt.Errorf("bps %d exceeds maximum %d", bps, fee.MaxBps)
	}
	return uint16(bps), nil
}

// readIntent reads the intent payload from --intent or piped stdin.
func readIntent(c *cli.Context) ([]byte, error) {
	if path := c.String("intent"); path != "" {
		return os.ReadFile(path)
	}
	if !stdinHasData() {
		return nil, fmt.Errorf("intent JSON must be piped via stdin or passed with --intent")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimSpace(string(data))), nil
}

func keyPassword() (string, error) {
	password := os.Getenv("HERES_KEY_PASSWORD")
	if password == "" {
		return "", fmt.Errorf("HERES_KEY_PASSWORD must be set")
	}
	return password, nil
}

func capsuleView(record *capsule.Capsule) (map[string]any, error) {
	addr, err := record.Owner.Address()
	if err != nil {
		return nil, err
	}
	view := map[string]any{
		"owner":            addr,
		"state":            record.State(),
		"inactivityPeriod": record.InactivityPeriod,
		"lastActivity":     time.Unix(record.LastActivity, 0).UTC().Format(time.RFC3339),
		"intent":           json.RawMessage(record.IntentData),
	}
	if record.ExecutedAt != nil {
		view["executedAt"] = time.Unix(*record.ExecutedAt, 0).UTC().Format(time.RFC3339)
	}
	return view, nil
}

func outputCapsule(record *capsule.Capsule) error {
	view, err := capsuleView(record)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return outputJSON(view)
}

func outputResult(result *capsule.ExecutionResult) error {
	payouts := make([]map[string]any, 0, len(result.Payouts))
	for _, p := range result.Payouts {
		addr, err := p.Recipient.Address()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		payouts = append(payouts, map[string]any{
			"recipient": addr,
			"amount":    amount.FromBaseUnits(p.Amount, amount.BaseUnitScale),
		})
	}
	return outputJSON(map[string]any{
		"event":      result.Event.ID,
		"executedAt": time.Unix(result.ExecutedAt, 0).UTC().Format(time.RFC3339),
		"fee":        amount.FromBaseUnits(result.Fee, amount.BaseUnitScale),
		"net":        amount.FromBaseUnits(result.Net, amount.BaseUnitScale),
		"payouts":    payouts,
	})
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
