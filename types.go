package solanashop

import (
	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Transfer describes the token transfer a checkout expects to find on-chain
type Transfer struct {
	// Recipient is the merchant wallet; funds land in its associated token account
	Recipient solana.PublicKey
	// Amount is the expected amount in whole tokens (e.g. 0.20 USDC)
	Amount decimal.Decimal
	// SPLToken is the mint of the token being paid
	SPLToken solana.PublicKey
	// Decimals is the mint's precision
	Decimals int
	// Reference is the unique key included in the transaction's account list
	Reference solana.PublicKey
	// Memo, when set, must appear in a memo program instruction
	Memo string
}

// VerifyQuery is the input of a single verification attempt
type VerifyQuery struct {
	Reference string `json:"reference" form:"reference"`
	Amount    string `json:"amount" form:"amount"`
}

// VerifyResult is the outcome of a verification attempt
type VerifyResult struct {
	OK        bool   `json:"ok"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}
