package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shielded-utxo/walletcore/internal/cli"
	"github.com/shielded-utxo/walletcore/internal/indexer"
)

// newIndexerConsumer wires an internal/indexer.Consumer against wsEndpoint,
// the one construction path cmdSubmit and cmdListen share. It passes a
// no-op logger explicitly; NewConsumer would substitute one for nil too.
func newIndexerConsumer(ctx context.Context, wsEndpoint string) (*indexer.Consumer, error) {
	return indexer.NewConsumer(ctx, indexer.Config{
		WebSocketURL:   wsEndpoint,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		MaxRetries:     5,
	}, zap.NewNop())
}

// runDashboard is the non-interactive entry point: CLI_COMMAND plus a
// command-specific set of environment variables in, single-line
// CliResponse JSON out. Grounded on the teacher's handleDashboardMode,
// generalized from ArcSign's two dashboard commands (create,
// derive_address) to this harness's env-var-driven re-dispatch of the same
// handlers the interactive subcommands use, reusing cmd* by translating
// each relevant env var into the "--flag=value" form parseFlags expects.
func runDashboard() {
	start := time.Now()
	cli.WriteLog(fmt.Sprintf("walletcore-demo v%s - dashboard mode", version))

	command := os.Getenv("CLI_COMMAND")
	if command == "" {
		writeDashboardError(cli.ErrInvalidSchema, "CLI_COMMAND environment variable not set", start)
		os.Exit(1)
	}
	cli.WriteLog(fmt.Sprintf("executing command: %s", command))

	switch command {
	case "mnemonic-new":
		args := envFlags(map[string]string{"WORDS": "words"})
		runCapturingStdout(func() error { return cmdMnemonicNew(args) }, start)
	case "derive":
		args := envFlags(map[string]string{
			"MNEMONIC": "mnemonic", "PASSPHRASE": "passphrase", "NETWORK": "network",
			"ROLE": "role", "ACCOUNT": "account", "INDEX": "index",
		})
		runCapturingStdout(func() error { return cmdDerive(args) }, start)
	case "balance":
		args := envFlags(map[string]string{"DB": "db", "ADDRESS": "address"})
		runCapturingStdout(func() error { return cmdBalance(args) }, start)
	case "transfer-build":
		args := envFlags(map[string]string{
			"DB": "db", "MNEMONIC": "mnemonic", "PASSPHRASE": "passphrase",
			"NETWORK": "network", "TO": "to", "AMOUNT": "amount",
			"ACCOUNT": "account", "INDEX": "index",
		})
		runCapturingStdout(func() error { return cmdTransferBuild(args) }, start)
	case "dust-snapshot-new":
		args := envFlags(map[string]string{
			"OUT": "out", "PASSPHRASE": "passphrase",
			"DUST_RATE": "dust-rate", "DUST_CAPACITY": "dust-capacity",
		})
		runCapturingStdout(func() error { return cmdDustSnapshotNew(args) }, start)
	case "dust-snapshot-inspect":
		args := envFlags(map[string]string{"IN": "in", "PASSPHRASE": "passphrase"})
		runCapturingStdout(func() error { return cmdDustSnapshotInspect(args) }, start)
	default:
		writeDashboardError(cli.ErrInvalidSchema, fmt.Sprintf("unknown command: %s", command), start)
		os.Exit(1)
	}
}

// envFlags reads each named environment variable and renders it as a
// "--flag=value" argument, skipping unset ones so downstream requireFlag
// reports a consistent "missing required" error.
func envFlags(envToFlag map[string]string) []string {
	var out []string
	for env, flag := range envToFlag {
		if v := os.Getenv(env); v != "" {
			out = append(out, fmt.Sprintf("--%s=%s", flag, v))
		}
	}
	return out
}

// runCapturingStdout runs fn, captures anything it printed to stdout as
// CliResponse.Data, and writes the single-line JSON envelope dashboard mode
// requires — fn's normal human-readable output is not dashboard-safe on its
// own.
func runCapturingStdout(fn func() error, start time.Time) {
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		writeDashboardError(cli.ErrInternal, pipeErr.Error(), start)
		os.Exit(1)
	}
	origStdout := os.Stdout
	os.Stdout = w

	err := fn()

	os.Stdout = origStdout
	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)

	if err != nil {
		writeDashboardError(cli.ErrInternal, err.Error(), start)
		os.Exit(1)
	}

	cli.WriteJSON(cli.CliResponse{
		Success:    true,
		Data:       buf.String(),
		RequestID:  generateRequestID(),
		CliVersion: version,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

func writeDashboardError(code, message string, start time.Time) {
	cli.WriteJSON(cli.CliResponse{
		Success:    false,
		Error:      cli.NewCliError(code, message),
		RequestID:  generateRequestID(),
		CliVersion: version,
		DurationMs: time.Since(start).Milliseconds(),
	})
}
