package ledger

import (
	"bytes"
	"fmt"
	"math/big"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	solanashop "github.com/DroHadTo/Solanashop"
	"github.com/DroHadTo/Solanashop/svm"
)

var memoProgramID = solana.MustPublicKeyFromBase58(svm.MemoProgramAddress)

// ValidateTransaction checks that a confirmed transaction pays transfer:
// it succeeded, it includes the reference, it credited the recipient's
// associated token account with at least the amount, and it carries the memo
// when one is expected.
func ValidateTransaction(tx *solana.Transaction, meta *rpc.TransactionMeta, transfer solanashop.Transfer) error {
	if tx == nil {
		return invalid("transaction not found", solana.Signature{})
	}
	sig := firstSignature(tx)

	if meta == nil {
		return invalid("missing meta", sig)
	}
	if meta.Err != nil {
		return invalid(fmt.Sprintf("transaction failed: %v", meta.Err), sig)
	}

	keys := AccountKeys(tx, meta)

	if !transfer.Reference.IsZero() && indexOf(keys, transfer.Reference) < 0 {
		return invalid("reference not found", sig)
	}

	expected, err := svm.ToBaseUnits(transfer.Amount, transfer.Decimals)
	if err != nil {
		return invalid(err.Error(), sig)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(transfer.Recipient, transfer.SPLToken)
	if err != nil {
		return invalid(fmt.Sprintf("failed to derive recipient token account: %v", err), sig)
	}
	index := indexOf(keys, ata)
	if index < 0 {
		return invalid("recipient not found", sig)
	}

	pre, err := tokenBalance(meta.PreTokenBalances, index, transfer.SPLToken)
	if err != nil {
		return invalid(err.Error(), sig)
	}
	post, err := tokenBalance(meta.PostTokenBalances, index, transfer.SPLToken)
	if err != nil {
		return invalid(err.Error(), sig)
	}

	delta := new(big.Int).Sub(post, pre)
	if delta.Cmp(new(big.Int).SetUint64(expected)) < 0 {
		return solanashop.NewPaymentError(solanashop.ErrCodeTransferInvalid, "amount not transferred", map[string]interface{}{
			"signature": sig.String(),
			"expected":  svm.FormatAmount(expected, transfer.Decimals),
			"received":  delta.String(),
		})
	}

	if transfer.Memo != "" && !hasMemo(tx, keys, transfer.Memo) {
		return invalid("memo not found", sig)
	}

	return nil
}

// AccountKeys returns the static account keys followed by the addresses loaded
// from lookup tables, writable first, matching the indexes used in meta.
func AccountKeys(tx *solana.Transaction, meta *rpc.TransactionMeta) solana.PublicKeySlice {
	keys := make(solana.PublicKeySlice, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)
	if meta != nil {
		keys = append(keys, meta.LoadedAddresses.Writable...)
		keys = append(keys, meta.LoadedAddresses.ReadOnly...)
	}
	return keys
}

func indexOf(keys solana.PublicKeySlice, key solana.PublicKey) int {
	for i, k := range keys {
		if k.Equals(key) {
			return i
		}
	}
	return -1
}

// tokenBalance returns the raw balance at account index, zero when absent
func tokenBalance(balances []rpc.TokenBalance, index int, mint solana.PublicKey) (*big.Int, error) {
	for _, b := range balances {
		if int(b.AccountIndex) != index {
			continue
		}
		if !b.Mint.Equals(mint) {
			return nil, fmt.Errorf("recipient token account holds mint %s", b.Mint)
		}
		if b.UiTokenAmount == nil || b.UiTokenAmount.Amount == "" {
			return new(big.Int), nil
		}
		amount, ok := new(big.Int).SetString(b.UiTokenAmount.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token amount %q", b.UiTokenAmount.Amount)
		}
		return amount, nil
	}
	return new(big.Int), nil
}

func hasMemo(tx *solana.Transaction, keys solana.PublicKeySlice, memo string) bool {
	for _, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(keys) {
			continue
		}
		if keys[inst.ProgramIDIndex].Equals(memoProgramID) && bytes.Equal(inst.Data, []byte(memo)) {
			return true
		}
	}
	return false
}

func firstSignature(tx *solana.Transaction) solana.Signature {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}
	}
	return tx.Signatures[0]
}

func invalid(reason string, sig solana.Signature) error {
	details := map[string]interface{}{}
	if !sig.IsZero() {
		details["signature"] = sig.String()
	}
	return solanashop.NewPaymentError(solanashop.ErrCodeTransferInvalid, reason, details)
}
