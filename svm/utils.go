package svm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedNetwork = errors.New("unsupported Solana network")
	ErrInvalidAmount      = errors.New("invalid amount")
)

// NormalizeNetwork converts a cluster name, legacy network name or CAIP-2
// identifier to its CAIP-2 form
func NormalizeNetwork(network string) (string, error) {
	caip2, ok := aliases[strings.ToLower(strings.TrimSpace(network))]
	if !ok {
		// CAIP-2 ids are case sensitive
		caip2, ok = aliases[network]
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
	return caip2, nil
}

// IsValidNetwork reports whether the network is a known Solana cluster
func IsValidNetwork(network string) bool {
	_, err := NormalizeNetwork(network)
	return err == nil
}

// GetNetworkConfig returns the configuration for a network
func GetNetworkConfig(network string) (NetworkConfig, error) {
	caip2, err := NormalizeNetwork(network)
	if err != nil {
		return NetworkConfig{}, err
	}
	return NetworkConfigs[caip2], nil
}

// GetAssetInfo returns the asset for a network, looked up by symbol or mint
// address. Unknown assets resolve to the network's default asset.
func GetAssetInfo(network string, asset string) (AssetInfo, error) {
	config, err := GetNetworkConfig(network)
	if err != nil {
		return AssetInfo{}, err
	}

	if ValidateSolanaAddress(asset) {
		if asset == config.DefaultAsset.Address {
			return config.DefaultAsset, nil
		}
		// A mint we do not know the decimals of; assume USDC-like precision
		return AssetInfo{Address: asset, Decimals: USDCDecimals}, nil
	}

	return config.DefaultAsset, nil
}

// IsKnownMint reports whether mint is the well-known USDC mint for network
func IsKnownMint(network, mint string) bool {
	config, err := GetNetworkConfig(network)
	if err != nil {
		return false
	}
	return config.DefaultAsset.Address == mint
}

// ValidateSolanaAddress reports whether address is a base58 encoded 32-byte public key
func ValidateSolanaAddress(address string) bool {
	if address == "" {
		return false
	}
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// ParseAmount converts a decimal string (e.g. "0.20") to base units.
// Amounts with more fractional digits than the mint supports are rejected.
func ParseAmount(amount string, decimals int) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return ToBaseUnits(d, decimals)
}

// ToBaseUnits converts a decimal amount to base units
func ToBaseUnits(amount decimal.Decimal, decimals int) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, amount)
	}

	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}

	value := scaled.BigInt()
	if !value.IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows", ErrInvalidAmount, amount)
	}
	return value.Uint64(), nil
}

// FormatAmount converts base units back to a decimal string
func FormatAmount(amount uint64, decimals int) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}
