// Package ledger implements reference lookup and transfer validation against
// a Solana JSON-RPC node.
package ledger

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	solanashop "github.com/DroHadTo/Solanashop"
)

// DefaultPageLimit is the page size used when listing signatures for a reference
const DefaultPageLimit = 1000

// RPCClient is the subset of *rpc.Client used by the ledger
type RPCClient interface {
	GetSignaturesForAddressWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// RPCLedger implements solanashop.Ledger on top of a Solana RPC node
type RPCLedger struct {
	client     RPCClient
	commitment rpc.CommitmentType
	pageLimit  int
	logger     *zap.Logger
}

// Option configures an RPCLedger
type Option func(*RPCLedger)

// WithCommitment sets the commitment used for lookups (default confirmed)
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(l *RPCLedger) {
		l.commitment = commitment
	}
}

// WithPageLimit sets the signature page size
func WithPageLimit(limit int) Option {
	return func(l *RPCLedger) {
		if limit > 0 {
			l.pageLimit = limit
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *RPCLedger) {
		l.logger = logger
	}
}

// New creates a ledger over client
func New(client RPCClient, opts ...Option) *RPCLedger {
	l := &RPCLedger{
		client:     client,
		commitment: rpc.CommitmentConfirmed,
		pageLimit:  DefaultPageLimit,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewFromURL creates a ledger talking to the RPC endpoint at url
func NewFromURL(url string, opts ...Option) *RPCLedger {
	return New(rpc.New(url), opts...)
}

var _ solanashop.Ledger = (*RPCLedger)(nil)

// FindReference returns the oldest signature that includes reference. Results
// come newest first, so pages are walked backwards until a short page is seen.
func (l *RPCLedger) FindReference(ctx context.Context, reference solana.PublicKey) (solana.Signature, bool, error) {
	var (
		oldest solana.Signature
		found  bool
		before solana.Signature
	)

	for {
		limit := l.pageLimit
		page, err := l.client.GetSignaturesForAddressWithOpts(ctx, reference, &rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Before:     before,
			Commitment: l.commitment,
		})
		if err != nil {
			return solana.Signature{}, false, solanashop.WrapPaymentError(solanashop.ErrCodeLedgerUnavailable,
				fmt.Errorf("failed to list signatures: %w", err), map[string]interface{}{
					"reference": reference.String(),
				})
		}
		if len(page) == 0 {
			break
		}

		oldest = page[len(page)-1].Signature
		found = true

		if len(page) < limit {
			break
		}
		before = oldest
	}

	if found {
		l.logger.Debug("reference found", zap.String("reference", reference.String()), zap.String("signature", oldest.String()))
	}
	return oldest, found, nil
}

// ValidateTransfer fetches the transaction and checks it against transfer
func (l *RPCLedger) ValidateTransfer(ctx context.Context, sig solana.Signature, transfer solanashop.Transfer) error {
	maxVersion := uint64(0)
	result, err := l.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     l.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		// Found at the same commitment a moment ago; not yet served by this node
		if errors.Is(err, rpc.ErrNotFound) {
			return solanashop.WrapPaymentError(solanashop.ErrCodeLedgerUnavailable,
				fmt.Errorf("transaction %s not available yet: %w", sig, err), nil)
		}
		return solanashop.WrapPaymentError(solanashop.ErrCodeLedgerUnavailable,
			fmt.Errorf("failed to get transaction: %w", err), nil)
	}
	if result == nil || result.Transaction == nil {
		return solanashop.NewPaymentError(solanashop.ErrCodeLedgerUnavailable,
			fmt.Sprintf("transaction %s not available yet", sig), nil)
	}

	tx, err := decodeTransaction(result.Transaction)
	if err != nil {
		return invalid(err.Error(), sig)
	}

	return ValidateTransaction(tx, result.Meta, transfer)
}

func decodeTransaction(envelope *rpc.TransactionResultEnvelope) (*solana.Transaction, error) {
	data := envelope.GetBinary()
	if len(data) == 0 {
		return nil, errors.New("transaction is not binary encoded")
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}
