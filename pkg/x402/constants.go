package x402

// Version is the x402 protocol version this package implements.
const Version = 2

// SchemeExact is the only payment scheme this gateway accepts.
const SchemeExact = "exact"

// CAIP-2 network identifiers for the two Base networks the facilitator
// settles against.
const (
	NetworkBaseMainnet = "eip155:8453"
	NetworkBaseSepolia = "eip155:84532"
)

// Default USDC contract addresses, selected by the endpoint's testnet flag.
// Overridable via config for deployments that settle a different stablecoin.
const (
	DefaultMainnetAssetAddress = "0x833589fCD6eDb6e08f4c7C32D4f71b54bdA02913"
	DefaultTestnetAssetAddress = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
)

// DefaultMaxTimeoutSeconds is the validity window offered to the payer when
// none is specified (spec §4.4.3).
const DefaultMaxTimeoutSeconds = 300

// AssetExtra is the "extra" object accompanying every PaymentRequirement for
// the EIP-3009 "exact" scheme (spec §4.4.6).
var AssetExtra = map[string]any{"name": "USDC", "version": "2"}
