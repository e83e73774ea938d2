package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	gobip39 "github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"

	"github.com/shielded-utxo/walletcore/internal/address"
	"github.com/shielded-utxo/walletcore/internal/assembler"
	"github.com/shielded-utxo/walletcore/internal/config"
	"github.com/shielded-utxo/walletcore/internal/dust"
	"github.com/shielded-utxo/walletcore/internal/dustsnapshot"
	"github.com/shielded-utxo/walletcore/internal/encoder"
	"github.com/shielded-utxo/walletcore/internal/keys"
	"github.com/shielded-utxo/walletcore/internal/mnemonic"
	"github.com/shielded-utxo/walletcore/internal/nodeclient"
	"github.com/shielded-utxo/walletcore/internal/shielded"
	"github.com/shielded-utxo/walletcore/internal/signer"
	"github.com/shielded-utxo/walletcore/internal/submitter"
	"github.com/shielded-utxo/walletcore/internal/utxo"
)

// roleFromString maps the harness's --role flag to keys.Role, the way
// spec.md §4.2 names them (night-external/night-internal/dust/zswap/metadata).
func roleFromString(s string) (keys.Role, error) {
	switch s {
	case "", "night-external":
		return keys.RoleNightExternal, nil
	case "night-internal":
		return keys.RoleNightInternal, nil
	case "dust":
		return keys.RoleDust, nil
	case "zswap":
		return keys.RoleZswap, nil
	case "metadata":
		return keys.RoleMetadata, nil
	default:
		return 0, fmt.Errorf("unknown --role %q", s)
	}
}

// cmdMnemonicNew generates a fresh BIP39 mnemonic. Entropy-bits-per-word-count
// follows the standard BIP39 table (12 words = 128 bits ... 24 words = 256
// bits), the same table the teacher's bip39service.GenerateMnemonic used,
// extended here to the full 12/15/18/21/24 range mnemonic.ValidateWordCount
// accepts rather than just 12/24.
func cmdMnemonicNew(args []string) error {
	flags := parseFlags(args)
	wordCountStr := flagOr(flags, "words", "24")
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		wordCountStr = args[0]
	}
	wordCount, err := strconv.Atoi(wordCountStr)
	if err != nil {
		return fmt.Errorf("word count must be an integer: %w", err)
	}
	if !mnemonic.ValidateWordCount(wordCount) {
		return fmt.Errorf("word count must be one of 12/15/18/21/24, got %d", wordCount)
	}

	// BIP39's checksum-bit formula (one checksum bit per 32 entropy bits,
	// word_count = (entropy_bits + checksum_bits) / 11) resolves to a whole
	// byte count for every word count in mnemonic.ValidateWordCount's range.
	entropyBits := wordCount * 32 / 3
	entropy := make([]byte, entropyBits/8)
	if _, err := rand.Read(entropy); err != nil {
		return fmt.Errorf("generating entropy: %w", err)
	}
	phrase, err := gobip39.NewMnemonic(entropy)
	if err != nil {
		return fmt.Errorf("generating mnemonic: %w", err)
	}

	fmt.Println(phrase)
	return nil
}

// cmdDerive derives one unshielded key/address from a mnemonic.
func cmdDerive(args []string) error {
	flags := parseFlags(args)
	phrase, err := requireFlag(flags, "mnemonic")
	if err != nil {
		return err
	}
	passphrase := flagOr(flags, "passphrase", "")
	network := flagOr(flags, "network", "testnet")
	role, err := roleFromString(flagOr(flags, "role", "night-external"))
	if err != nil {
		return err
	}
	account, err := flagUint32Or(flags, "account", 0)
	if err != nil {
		return err
	}
	index, err := flagUint32Or(flags, "index", 0)
	if err != nil {
		return err
	}

	seed, err := mnemonic.PhraseToSeed(phrase, passphrase)
	if err != nil {
		return fmt.Errorf("deriving seed: %w", err)
	}

	tree, err := keys.NewTree(seed)
	if err != nil {
		return fmt.Errorf("building derivation tree: %w", err)
	}
	defer tree.Clear()

	derived, err := tree.Derive(account, role, index)
	if err != nil {
		return fmt.Errorf("deriving key: %w", err)
	}
	defer derived.Clear()

	addr, err := address.EncodeForNetwork(network, address.FromPublicKey(derived.PublicXOnly))
	if err != nil {
		return fmt.Errorf("encoding address: %w", err)
	}

	fmt.Printf("public_key: %s\n", hex.EncodeToString(derived.PublicXOnly[:]))
	fmt.Printf("address:    %s\n", addr)
	return nil
}

// cmdAddress encodes an address string for an already-known public key,
// without touching any mnemonic or key material.
func cmdAddress(args []string) error {
	flags := parseFlags(args)
	pubkeyHex, err := requireFlag(flags, "pubkey")
	if err != nil {
		return err
	}
	network := flagOr(flags, "network", "testnet")

	pubkeyBytes, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return fmt.Errorf("decoding --pubkey: %w", err)
	}
	if len(pubkeyBytes) != 32 {
		return fmt.Errorf("--pubkey must be 32 bytes, got %d", len(pubkeyBytes))
	}
	var pk [32]byte
	copy(pk[:], pubkeyBytes)

	addr, err := address.EncodeForNetwork(network, address.FromPublicKey(pk))
	if err != nil {
		return fmt.Errorf("encoding address: %w", err)
	}
	fmt.Println(addr)
	return nil
}

// cmdShieldedKeys derives the shielded coin/encryption key pair at the
// fixed path spec.md §4.4 pins (44'/2400'/account'/3/0).
func cmdShieldedKeys(args []string) error {
	flags := parseFlags(args)
	phrase, err := requireFlag(flags, "mnemonic")
	if err != nil {
		return err
	}
	passphrase := flagOr(flags, "passphrase", "")
	pinnedVersion := flagOr(flags, "pinned-version", "")
	account, err := flagUint32Or(flags, "account", shielded.PathAccount)
	if err != nil {
		return err
	}

	seed, err := mnemonic.PhraseToSeed(phrase, passphrase)
	if err != nil {
		return fmt.Errorf("deriving seed: %w", err)
	}

	tree, err := keys.NewTree(seed)
	if err != nil {
		return fmt.Errorf("building derivation tree: %w", err)
	}
	defer tree.Clear()

	shieldedSeed, err := tree.Derive(account, shielded.PathRole, shielded.PathIndex)
	if err != nil {
		return fmt.Errorf("deriving shielded seed: %w", err)
	}
	defer shieldedSeed.Clear()

	deriver := shielded.NewNativeDeriver()
	if err := shielded.CheckPinnedVersion(deriver, pinnedVersion); err != nil {
		return err
	}

	sk, err := deriver.DeriveShieldedKeys(&shieldedSeed.Private)
	if err != nil {
		return fmt.Errorf("deriving shielded keys: %w", err)
	}

	fmt.Printf("coin_public_key:       %s\n", hex.EncodeToString(sk.CoinPublicKey[:]))
	fmt.Printf("encryption_public_key: %s\n", hex.EncodeToString(sk.EncryptionPublicKey[:]))
	return nil
}

// cmdStoreInit opens (creating and migrating if needed) the local SQLite
// UTXO store at --db.
func cmdStoreInit(args []string) error {
	flags := parseFlags(args)
	dbPath, err := requireFlag(flags, "db")
	if err != nil {
		return err
	}
	store, err := utxo.OpenSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()
	fmt.Printf("store ready at %s\n", dbPath)
	return nil
}

// cmdBalance reads one address's current TokenBalance snapshot via
// ObserveBalances, taking only the first emission (spec.md §4.6's
// balance-query contract, used here as a one-shot read rather than a
// live subscription).
func cmdBalance(args []string) error {
	flags := parseFlags(args)
	dbPath, err := requireFlag(flags, "db")
	if err != nil {
		return err
	}
	addr, err := requireFlag(flags, "address")
	if err != nil {
		return err
	}

	store, err := utxo.OpenSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, stop, err := store.ObserveBalances(ctx, addr)
	if err != nil {
		return fmt.Errorf("observing balances: %w", err)
	}
	defer stop()

	select {
	case snapshot := <-updates:
		if len(snapshot) == 0 {
			fmt.Println("no balances for this address")
			return nil
		}
		for _, b := range snapshot {
			fmt.Printf("token %x: available=%s pending=%s count=%d\n",
				b.TokenType, b.Available.String(), b.Pending.String(), b.Count)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for balance snapshot")
	}
}

// buildAndSignTransfer derives the sender key, reserves inputs in store,
// builds the transfer and signs it; transfer-build and submit both call it,
// so the two commands share one construction path instead of duplicating it
// (spec.md §4.7/§4.8's build-then-sign pair).
func buildAndSignTransfer(ctx context.Context, store utxo.Store, flags map[string]string) (*assembler.SignedIntent, *keys.DerivedKey, error) {
	phrase, err := requireFlag(flags, "mnemonic")
	if err != nil {
		return nil, nil, err
	}
	passphrase := flagOr(flags, "passphrase", "")
	network := flagOr(flags, "network", "testnet")
	toAddr, err := requireFlag(flags, "to")
	if err != nil {
		return nil, nil, err
	}
	amountStr, err := requireFlag(flags, "amount")
	if err != nil {
		return nil, nil, err
	}
	account, err := flagUint32Or(flags, "account", 0)
	if err != nil {
		return nil, nil, err
	}
	index, err := flagUint32Or(flags, "index", 0)
	if err != nil {
		return nil, nil, err
	}

	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, nil, fmt.Errorf("--amount must be a positive decimal integer")
	}

	recipientRaw, err := address.DecodeForNetwork(network, toAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding --to: %w", err)
	}

	seed, err := mnemonic.PhraseToSeed(phrase, passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving seed: %w", err)
	}

	tree, err := keys.NewTree(seed)
	if err != nil {
		return nil, nil, fmt.Errorf("building derivation tree: %w", err)
	}
	defer tree.Clear()

	derived, err := tree.Derive(account, keys.RoleNightExternal, index)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving sender key: %w", err)
	}

	senderAddr, err := address.EncodeForNetwork(network, address.FromPublicKey(derived.PublicXOnly))
	if err != nil {
		derived.Clear()
		return nil, nil, fmt.Errorf("encoding sender address: %w", err)
	}

	intent, err := assembler.BuildTransfer(ctx, store, assembler.BuildTransferParams{
		Sender:       assembler.Sender{Address: senderAddr, PublicKey: derived.PublicXOnly},
		RecipientRaw: recipientRaw,
		Amount:       amount,
	})
	if err != nil {
		derived.Clear()
		return nil, nil, fmt.Errorf("building transfer: %w", err)
	}

	enc := encoder.Default()
	sk := signer.New()
	signed, err := assembler.Sign(intent, enc, sk, func(ownerPublicKey [32]byte) (*[32]byte, error) {
		if ownerPublicKey != derived.PublicXOnly {
			return nil, fmt.Errorf("no signing key available for owner %x", ownerPublicKey)
		}
		skCopy := derived.Private
		return &skCopy, nil
	})
	if err != nil {
		derived.Clear()
		return nil, nil, fmt.Errorf("signing transfer: %w", err)
	}

	return signed, &derived, nil
}

// cmdTransferBuild builds and signs a transfer against the local store,
// printing the encoded transaction bytes (without the node's extrinsic
// envelope) without submitting them anywhere.
func cmdTransferBuild(args []string) error {
	flags := parseFlags(args)
	dbPath, err := requireFlag(flags, "db")
	if err != nil {
		return err
	}

	store, err := utxo.OpenSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	signed, derived, err := buildAndSignTransfer(context.Background(), store, flags)
	if err != nil {
		return err
	}
	defer derived.Clear()

	enc := encoder.Default()
	txBytes, err := enc.Encode(signed.Intent)
	if err != nil {
		return fmt.Errorf("encoding signed transfer: %w", err)
	}

	fmt.Printf("reserved_inputs: %d\n", len(signed.Intent.ReservedIDs()))
	fmt.Printf("encoded_tx:      %s\n", hex.EncodeToString(txBytes))
	return nil
}

// cmdSubmit builds, signs, submits and waits for confirmation of a
// transfer end to end (spec.md §4.11's submit_and_wait).
func cmdSubmit(args []string) error {
	flags := parseFlags(args)
	dbPath, err := requireFlag(flags, "db")
	if err != nil {
		return err
	}
	nodeEndpoint, err := requireFlag(flags, "node")
	if err != nil {
		return err
	}
	indexerEndpoint, err := requireFlag(flags, "indexer")
	if err != nil {
		return err
	}
	timeoutStr := flagOr(flags, "timeout", "60s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return fmt.Errorf("--timeout must be a duration like 60s: %w", err)
	}

	store, err := utxo.OpenSQLiteStore(dbPath, zap.NewNop())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	signed, derived, err := buildAndSignTransfer(ctx, store, flags)
	if err != nil {
		return err
	}
	defer derived.Clear()

	senderAddr, err := address.EncodeForNetwork(flagOr(flags, "network", "testnet"), address.FromPublicKey(derived.PublicXOnly))
	if err != nil {
		return fmt.Errorf("re-deriving sender address: %w", err)
	}

	node := nodeclient.New(nodeEndpoint, nodeclient.DefaultTimeout)
	consumer, err := newIndexerConsumer(ctx, indexerEndpoint)
	if err != nil {
		return fmt.Errorf("connecting to indexer: %w", err)
	}
	defer consumer.Close()

	sub := submitter.New(submitter.Deps{
		Encoder: encoder.Default(),
		Node:    node,
		Indexer: consumer,
		Store:   store,
	})

	result, err := sub.SubmitAndWait(ctx, signed, senderAddr, timeout)
	if err != nil {
		return fmt.Errorf("submit_and_wait: %w", err)
	}

	fmt.Printf("result:       %s\n", result.Kind)
	fmt.Printf("tx_hash:      %s\n", result.TxHash)
	if result.BlockHeight != nil {
		fmt.Printf("block_height: %d\n", *result.BlockHeight)
	}
	if result.Reason != "" {
		fmt.Printf("reason:       %s\n", result.Reason)
	}
	return nil
}

// cmdListen subscribes to an address's unshielded-transaction stream and
// prints every update until interrupted, demonstrating internal/indexer's
// reconnecting subscription outside of submit_and_wait's bounded wait.
func cmdListen(args []string) error {
	flags := parseFlags(args)
	indexerEndpoint, err := requireFlag(flags, "indexer")
	if err != nil {
		return err
	}
	addr, err := requireFlag(flags, "address")
	if err != nil {
		return err
	}

	ctx := context.Background()
	consumer, err := newIndexerConsumer(ctx, indexerEndpoint)
	if err != nil {
		return fmt.Errorf("connecting to indexer: %w", err)
	}
	defer consumer.Close()

	updates, stop, err := consumer.SubscribeUnshielded(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	defer stop()

	fmt.Printf("listening for %s ... (ctrl-c to stop)\n", addr)
	for update := range updates {
		switch {
		case update.Err != nil:
			fmt.Printf("stream error: %v\n", update.Err)
		case update.Transaction != nil:
			fmt.Printf("tx %s: %s\n", update.Transaction.TxHash, update.Transaction.Status)
		case update.Progress != nil:
			fmt.Printf("progress: highest_tx_id=%d\n", update.Progress.HighestTxID)
		}
	}
	return nil
}

// dustParamsFromFlags reads the dust generation rate and capacity out of
// --dust-rate/--dust-capacity (1 and 1,000,000 when unset), carries them
// through a config.Config, and returns the matching dust.Params. The grace
// window is taken from that Config's DustTimeGraceWindow, which is left at
// zero here.
func dustParamsFromFlags(flags map[string]string) (dust.Params, error) {
	rate, err := flagUint32Or(flags, "dust-rate", 1)
	if err != nil {
		return dust.Params{}, err
	}
	capacity, err := flagUint32Or(flags, "dust-capacity", 1_000_000)
	if err != nil {
		return dust.Params{}, err
	}
	cfg := config.Config{
		DustGenerationRate: uint64(rate),
		DustCapacity:       uint64(capacity),
	}
	return dust.Params{
		DefaultRate:     new(big.Int).SetUint64(cfg.DustGenerationRate),
		DefaultCapacity: new(big.Int).SetUint64(cfg.DustCapacity),
		GraceWindow:     cfg.DustTimeGraceWindow,
	}, nil
}

// cmdDustSnapshotNew creates an empty dust.DustLocalState at the network's
// canonical parameters, encrypts it under --passphrase the way the teacher
// encrypts a mnemonic at rest, and writes it to --out (spec.md §4.9's
// serialize/deserialize pair, protected at rest per SPEC_FULL.md §C).
func cmdDustSnapshotNew(args []string) error {
	flags := parseFlags(args)
	outPath, err := requireFlag(flags, "out")
	if err != nil {
		return err
	}
	passphrase, err := requireFlag(flags, "passphrase")
	if err != nil {
		return err
	}

	params, err := dustParamsFromFlags(flags)
	if err != nil {
		return err
	}

	state := dust.Create(params, zap.NewNop())
	defer state.Close()

	plaintext, err := state.Serialize()
	if err != nil {
		return fmt.Errorf("serializing dust state: %w", err)
	}

	blob, err := dustsnapshot.New(dustsnapshot.DefaultKDFParams()).Encrypt(plaintext, passphrase)
	if err != nil {
		return fmt.Errorf("encrypting dust snapshot: %w", err)
	}

	if err := os.WriteFile(outPath, blob, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("dust snapshot written to %s (%d bytes)\n", outPath, len(blob))
	return nil
}

// cmdDustSnapshotInspect decrypts and deserializes a snapshot produced by
// cmdDustSnapshotNew (or by the fee subsystem's own periodic snapshotting),
// printing the owned UTXO count and current balance.
func cmdDustSnapshotInspect(args []string) error {
	flags := parseFlags(args)
	inPath, err := requireFlag(flags, "in")
	if err != nil {
		return err
	}
	passphrase, err := requireFlag(flags, "passphrase")
	if err != nil {
		return err
	}

	blob, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}

	plaintext, err := dustsnapshot.New(dustsnapshot.DefaultKDFParams()).Decrypt(blob, passphrase)
	if err != nil {
		return fmt.Errorf("decrypting dust snapshot: %w", err)
	}

	state, err := dust.Deserialize(plaintext, zap.NewNop())
	if err != nil {
		return fmt.Errorf("deserializing dust state: %w", err)
	}
	defer state.Close()

	fmt.Printf("utxo_count: %d\n", state.UtxoCount())
	fmt.Printf("balance:    %s\n", state.Balance(time.Now()).String())
	return nil
}
