// Package svm describes the Solana clusters the shop can settle on and the
// USDC mint, RPC endpoint and CAIP-2 identifier that belong to each of them.
package svm

import (
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// Cluster names as they appear in configuration
	ClusterMainnet = "mainnet-beta"
	ClusterDevnet  = "devnet"
	ClusterTestnet = "testnet"

	// Legacy network names
	SolanaMainnetV1 = "solana"
	SolanaDevnetV1  = "solana-devnet"
	SolanaTestnetV1 = "solana-testnet"

	// CAIP-2 network identifiers (genesis hash prefixes)
	SolanaMainnetCAIP2 = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
	SolanaDevnetCAIP2  = "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1"
	SolanaTestnetCAIP2 = "solana:4uhcVJyU9pJkvQyS88uRDiswHXSCkY3z"

	// USDC mint addresses
	USDCMainnetAddress = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDCDevnetAddress  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"

	// USDCDecimals is the number of decimals used by the USDC mint
	USDCDecimals = 6

	// MemoProgramAddress is the SPL Memo program (v2)
	MemoProgramAddress = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
)

// AssetInfo contains information about a token mint
type AssetInfo struct {
	Address  string
	Symbol   string
	Decimals int
}

// NetworkConfig contains cluster-specific configuration
type NetworkConfig struct {
	Cluster      string
	CAIP2        string
	RPCURL       string
	DefaultAsset AssetInfo
}

// NetworkConfigs maps CAIP-2 identifiers to their configuration
var NetworkConfigs = map[string]NetworkConfig{
	SolanaMainnetCAIP2: {
		Cluster: ClusterMainnet,
		CAIP2:   SolanaMainnetCAIP2,
		RPCURL:  rpc.MainNetBeta_RPC,
		DefaultAsset: AssetInfo{
			Address:  USDCMainnetAddress,
			Symbol:   "USDC",
			Decimals: USDCDecimals,
		},
	},
	SolanaDevnetCAIP2: {
		Cluster: ClusterDevnet,
		CAIP2:   SolanaDevnetCAIP2,
		RPCURL:  rpc.DevNet_RPC,
		DefaultAsset: AssetInfo{
			Address:  USDCDevnetAddress,
			Symbol:   "USDC",
			Decimals: USDCDecimals,
		},
	},
	SolanaTestnetCAIP2: {
		Cluster: ClusterTestnet,
		CAIP2:   SolanaTestnetCAIP2,
		RPCURL:  rpc.TestNet_RPC,
		DefaultAsset: AssetInfo{
			Address:  USDCDevnetAddress,
			Symbol:   "USDC",
			Decimals: USDCDecimals,
		},
	},
}

// aliases maps every accepted spelling of a cluster to its CAIP-2 identifier
var aliases = map[string]string{
	ClusterMainnet:     SolanaMainnetCAIP2,
	"mainnet":          SolanaMainnetCAIP2,
	SolanaMainnetV1:    SolanaMainnetCAIP2,
	SolanaMainnetCAIP2: SolanaMainnetCAIP2,
	ClusterDevnet:      SolanaDevnetCAIP2,
	SolanaDevnetV1:     SolanaDevnetCAIP2,
	SolanaDevnetCAIP2:  SolanaDevnetCAIP2,
	ClusterTestnet:     SolanaTestnetCAIP2,
	SolanaTestnetV1:    SolanaTestnetCAIP2,
	SolanaTestnetCAIP2: SolanaTestnetCAIP2,
}
