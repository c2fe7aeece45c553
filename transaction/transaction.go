package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/wallet"
	"github.com/shopspring/decimal"
)

// SystemSender marks ledger-issued (reward) transactions. '0' is outside the
// base58 alphabet, so no wallet address can ever equal it.
const SystemSender = "0"

type Transaction struct {
	ID        string          `json:"id"`
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Signature string          `json:"signature,omitempty"`
	Timestamp uint64          `json:"timestamp"`
}

// NewTransaction builds a transfer from the wallet's address and signs it with
// the same wallet.
func NewTransaction(from *wallet.Wallet, to string, amount decimal.Decimal) (*Transaction, error) {
	if from == nil {
		return nil, lerrors.NewSignatureError(lerrors.ErrMsgSigningFailed)
	}
	tx, err := newUnsigned(from.Address, to, amount)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(from); err != nil {
		return nil, err
	}
	logx.Debug("TX", fmt.Sprintf("created %s amount=%s", tx.ID, tx.Amount))
	return tx, nil
}

// NewReward builds a system-issued transaction paying amount to recipient.
// The content hash is signed by a throwaway wallet; validity never depends on
// that signature.
func NewReward(to string, amount decimal.Decimal) (*Transaction, error) {
	tx, err := newUnsigned(SystemSender, to, amount)
	if err != nil {
		return nil, err
	}
	ephemeral, err := wallet.NewWallet()
	if err != nil {
		return nil, lerrors.Wrap(lerrors.KindSignature, err, lerrors.ErrMsgSigningFailed)
	}
	sig, err := ephemeral.Sign([]byte(tx.ContentHash()))
	if err != nil {
		return nil, err
	}
	tx.Signature = sig
	return tx, nil
}

func newUnsigned(from, to string, amount decimal.Decimal) (*Transaction, error) {
	if amount.IsNegative() {
		return nil, lerrors.NewTransactionError(lerrors.ErrMsgNegativeAmount)
	}
	if to == "" {
		return nil, lerrors.NewTransactionError(lerrors.ErrMsgEmptyRecipient)
	}
	return &Transaction{
		ID:        uuid.NewString(),
		Sender:    from,
		Recipient: to,
		Amount:    amount,
		Timestamp: uint64(time.Now().Unix()),
	}, nil
}

// ContentHash is the hex sha256 of id, sender, recipient, amount and timestamp,
// concatenated in that order. It is what gets signed.
func (tx *Transaction) ContentHash() string {
	record := fmt.Sprintf("%s%s%s%s%d", tx.ID, tx.Sender, tx.Recipient, tx.Amount.String(), tx.Timestamp)
	h := sha256.Sum256([]byte(record))
	return hex.EncodeToString(h[:])
}

// Sign signs the content hash. A wallet may only sign its own transactions.
func (tx *Transaction) Sign(w *wallet.Wallet) error {
	if w == nil || w.Address != tx.Sender {
		return lerrors.NewSignatureError(lerrors.ErrMsgForeignWallet)
	}
	sig, err := w.Sign([]byte(tx.ContentHash()))
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

func (tx *Transaction) IsSystem() bool {
	return tx.Sender == SystemSender
}

// IsValid reports whether the signature verifies against the sender. System
// transactions are valid unconditionally; an unsigned one is an error, as is a
// malformed sender or signature encoding.
func (tx *Transaction) IsValid() (bool, error) {
	if tx.IsSystem() {
		return true, nil
	}
	if tx.Signature == "" {
		return false, lerrors.NewValidationError(lerrors.ErrMsgNoSignature)
	}
	return wallet.Verify(tx.Sender, []byte(tx.ContentHash()), tx.Signature)
}

// Clone returns a copy that shares no state with tx.
func (tx *Transaction) Clone() *Transaction {
	cp := *tx
	return &cp
}
