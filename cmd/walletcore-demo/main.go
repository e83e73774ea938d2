// Command walletcore-demo is a thin CLI harness over this module's core
// packages: key derivation, address encoding, local UTXO storage, transfer
// construction/signing, and submission. Grounded on the teacher's
// cmd/arcsign dispatcher (cli.DetectMode branching to a dashboard-mode
// handler, otherwise a switch over os.Args[1] subcommands), generalized
// from ArcSign's wallet-file lifecycle (create/restore/derive/generate-all)
// to this core's operations (mnemonic/derive/address/balance/transfer/
// submit/listen).
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/shielded-utxo/walletcore/internal/cli"
)

const version = "0.1.0"

func main() {
	if cli.DetectMode() == cli.ModeDashboard {
		runDashboard()
		return
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "mnemonic-new":
		err = cmdMnemonicNew(args)
	case "derive":
		err = cmdDerive(args)
	case "address":
		err = cmdAddress(args)
	case "shielded-keys":
		err = cmdShieldedKeys(args)
	case "store-init":
		err = cmdStoreInit(args)
	case "balance":
		err = cmdBalance(args)
	case "transfer-build":
		err = cmdTransferBuild(args)
	case "submit":
		err = cmdSubmit(args)
	case "listen":
		err = cmdListen(args)
	case "dust-snapshot-new":
		err = cmdDustSnapshotNew(args)
	case "dust-snapshot-inspect":
		err = cmdDustSnapshotInspect(args)
	case "version":
		fmt.Printf("walletcore-demo v%s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("walletcore-demo - non-custodial UTXO wallet core harness")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  walletcore-demo mnemonic-new [word-count]             Generate a BIP39 mnemonic")
	fmt.Println("  walletcore-demo derive --mnemonic=... [flags]         Derive an unshielded key/address")
	fmt.Println("  walletcore-demo address --pubkey=<hex> [--network=]   Encode an address from a public key")
	fmt.Println("  walletcore-demo shielded-keys --mnemonic=... [flags]  Derive the shielded key pair")
	fmt.Println("  walletcore-demo store-init --db=<path>                Create/migrate the local UTXO store")
	fmt.Println("  walletcore-demo balance --db=<path> --address=<addr>  Read one address's balance snapshot")
	fmt.Println("  walletcore-demo transfer-build --db=... [flags]       Build and sign a transfer locally")
	fmt.Println("  walletcore-demo submit --db=... [flags]               Submit a transfer and wait for confirmation")
	fmt.Println("  walletcore-demo listen --indexer=<ws-url> --address=  Stream confirmations for an address")
	fmt.Println("  walletcore-demo dust-snapshot-new --out=... --passphrase=...     Write an empty, encrypted dust snapshot")
	fmt.Println("  walletcore-demo dust-snapshot-inspect --in=... --passphrase=...  Decrypt and summarize a dust snapshot")
	fmt.Println("  walletcore-demo version                               Show version information")
	fmt.Println("  walletcore-demo help                                  Show this help message")
	fmt.Println()
	fmt.Println("Dashboard mode: set WALLETCORE_MODE=dashboard and CLI_COMMAND, reading the")
	fmt.Println("rest of a command's flags from matching environment variables; responses are")
	fmt.Println("single-line JSON on stdout, logs on stderr.")
}

// generateRequestID mints a per-invocation identifier for dashboard-mode
// responses: a UUID v4, the format the teacher's archived CliResponse
// documented for RequestID.
func generateRequestID() string {
	return uuid.NewString()
}
