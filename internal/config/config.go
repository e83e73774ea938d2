// Package config holds the explicit configuration values every core
// component takes as a constructor parameter. There is no process-wide
// mutable configuration state; callers own one Config value and thread it
// through, generalizing the teacher's internal/app.AppConfig pattern of a
// single explicit, JSON-capable settings value with no ambient globals.
package config

import "time"

// Config carries the network parameters the core requires, per spec.md §6.
type Config struct {
	// NetworkID selects the HRP family and coin-type row in netparams
	// ("testnet", "mainnet").
	NetworkID string

	// SpecksPerByte is the dust fee rate (Specks charged per encoded byte).
	// Fetched from the node at startup in production; a zero value here is
	// invalid and must be set by the caller before use.
	SpecksPerByte uint64

	// DustGenerationRate is Specks generated per backing-unit per second.
	DustGenerationRate uint64

	// DustCapacity caps the amount a single dust UTXO can generate before
	// entering decay phase.
	DustCapacity uint64

	// DustTimeGraceWindow bounds how far current_time_ms may drift from the
	// block time used in a dust spend before InvalidTime is raised.
	DustTimeGraceWindow time.Duration

	// PinnedShieldedFFIVersion and PinnedEncoderFFIVersion identify the
	// exact native library build the shielded-key and encoder FFI bridges
	// were linked against. shielded.CheckPinnedVersion reports a shielded
	// library mismatch as CryptoDerivationMismatch; no function in this
	// module compares an Encoder's Version with PinnedEncoderFFIVersion.
	PinnedShieldedFFIVersion string
	PinnedEncoderFFIVersion  string

	// NodeRPCEndpoint and IndexerEndpoint are the transport endpoints for
	// submission and confirmation, respectively (spec.md §6).
	NodeRPCEndpoint string
	IndexerEndpoint string

	// NodeRPCTimeout is the per-request timeout for node JSON-RPC calls.
	NodeRPCTimeout time.Duration

	// SubmissionTimeout bounds submit_and_wait's total wait for
	// confirmation.
	SubmissionTimeout time.Duration

	// DefaultIntentTTL is the TTL window build_transfer applies when the
	// caller does not override it.
	DefaultIntentTTL time.Duration
}

// DefaultIntentTTLOrFallback returns cfg's configured TTL, or the spec's
// 30-minute default when unset.
func (c Config) DefaultIntentTTLOrFallback() time.Duration {
	if c.DefaultIntentTTL > 0 {
		return c.DefaultIntentTTL
	}
	return 30 * time.Minute
}

// SubmissionTimeoutOrFallback returns cfg's configured submission timeout,
// or the spec's 60s default when unset.
func (c Config) SubmissionTimeoutOrFallback() time.Duration {
	if c.SubmissionTimeout > 0 {
		return c.SubmissionTimeout
	}
	return 60 * time.Second
}

// NodeRPCTimeoutOrFallback returns cfg's configured RPC timeout, or the
// spec's 30s default when unset.
func (c Config) NodeRPCTimeoutOrFallback() time.Duration {
	if c.NodeRPCTimeout > 0 {
		return c.NodeRPCTimeout
	}
	return 30 * time.Second
}
