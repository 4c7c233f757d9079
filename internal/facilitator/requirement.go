package facilitator

import (
	"github.com/x402gateway/gateway/pkg/x402"
)

// AssetAddresses selects which stablecoin contract address backs mainnet vs
// testnet requirements, sourced from process config (spec §6.5, §4.4.2).
type AssetAddresses struct {
	Mainnet string
	Testnet string
}

// BuildRequirement constructs the ephemeral PaymentRequirement an endpoint
// quotes for a request (spec §4.4.3). maxTimeoutSeconds of 0 falls back to
// x402.DefaultMaxTimeoutSeconds.
func BuildRequirement(priceUSD string, payTo string, testnet bool, maxTimeoutSeconds int, assets AssetAddresses) (x402.PaymentRequirement, error) {
	if maxTimeoutSeconds <= 0 {
		maxTimeoutSeconds = x402.DefaultMaxTimeoutSeconds
	}

	amount, err := x402.UsdToStable(priceUSD, testnet, assets.Mainnet, assets.Testnet)
	if err != nil {
		return x402.PaymentRequirement{}, err
	}

	return x402.PaymentRequirement{
		Scheme:            x402.SchemeExact,
		Network:           x402.Network(testnet),
		Amount:            amount.Amount,
		Asset:             amount.Asset,
		PayTo:             payTo,
		MaxTimeoutSeconds: maxTimeoutSeconds,
		Extra:             amount.Extra,
	}, nil
}

// GeneratePaymentRequired produces the 402 JSON body a programmatic client
// sees when no payment was supplied (spec §4.4.6).
func GeneratePaymentRequired(resourceURL, description, priceUSD, payTo string, testnet bool, maxTimeoutSeconds int, assets AssetAddresses) (x402.PaymentRequiredResponse, error) {
	requirement, err := BuildRequirement(priceUSD, payTo, testnet, maxTimeoutSeconds, assets)
	if err != nil {
		return x402.PaymentRequiredResponse{}, err
	}

	return x402.PaymentRequiredResponse{
		X402Version: x402.Version,
		Resource: x402.ResourceDescriptor{
			URL:         resourceURL,
			Description: description,
			MimeType:    "application/json",
		},
		Accepts: []x402.PaymentRequirement{requirement},
	}, nil
}
