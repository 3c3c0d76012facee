package solanashop

import (
	"context"

	solana "github.com/gagliardetto/solana-go"
)

// Ledger is the read side of the chain that payments are checked against.
// Implementations must be safe for concurrent use.
type Ledger interface {
	// FindReference returns the oldest confirmed transaction signature that
	// includes reference among its accounts. found is false when none exists yet.
	FindReference(ctx context.Context, reference solana.PublicKey) (sig solana.Signature, found bool, err error)

	// ValidateTransfer checks that the transaction identified by sig pays the
	// expected transfer. Validation failures carry ErrCodeTransferInvalid.
	ValidateTransfer(ctx context.Context, sig solana.Signature, transfer Transfer) error
}

// ResultStore persists successful verifications so they survive restarts and
// can be shared between verifier instances (e.g. a Redis backed store).
type ResultStore interface {
	// Get returns the signature stored for key
	Get(ctx context.Context, key string) (sig string, found bool, err error)

	// Set stores the signature for key
	Set(ctx context.Context, key string, sig string) error
}
