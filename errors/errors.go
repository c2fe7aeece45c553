package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies every failure the ledger can report. The set is closed.
type Kind string

const (
	KindMining      Kind = "mining_error"
	KindValidation  Kind = "validation_error"
	KindSignature   Kind = "signature_error"
	KindWallet      Kind = "wallet_error"
	KindTransaction Kind = "transaction_error"
)

var kindLabels = map[Kind]string{
	KindMining:      "Mining error",
	KindValidation:  "Validation error",
	KindSignature:   "Signature error",
	KindWallet:      "Wallet error",
	KindTransaction: "Transaction error",
}

// Sentinels for errors.Is; they match any LedgerError of the same kind.
var (
	ErrMining      = &LedgerError{Kind: KindMining}
	ErrValidation  = &LedgerError{Kind: KindValidation}
	ErrSignature   = &LedgerError{Kind: KindSignature}
	ErrWallet      = &LedgerError{Kind: KindWallet}
	ErrTransaction = &LedgerError{Kind: KindTransaction}
)

// Error message constants
const (
	ErrMsgNonceOverflow        = "Nonce overflow"
	ErrMsgMiningAborted        = "Mining aborted before a valid nonce was found"
	ErrMsgInvalidTransaction   = "Invalid transaction"
	ErrMsgNoSignature          = "No signature"
	ErrMsgSystemTransaction    = "System-issued transactions cannot be submitted"
	ErrMsgMempoolFull          = "Pending pool is full"
	ErrMsgForeignWallet        = "Cannot sign transaction for other wallets"
	ErrMsgSigningFailed        = "Signing failed"
	ErrMsgInvalidPublicKey     = "Invalid public key"
	ErrMsgInvalidSignature     = "Invalid signature"
	ErrMsgKeyGeneration        = "Key generation failed"
	ErrMsgNegativeAmount       = "Amount must not be negative"
	ErrMsgEmptyRecipient       = "Recipient must not be empty"
	ErrMsgEmptyChain           = "Empty blockchain"
	ErrMsgBrokenLink           = "Block %d does not link to block %d"
	ErrMsgHashMismatch         = "Block %d hash does not match its contents"
	ErrMsgMerkleMismatch       = "Block %d merkle root does not match its transactions"
	ErrMsgInvalidBlockTx       = "Block %d contains invalid transaction %s"
	ErrMsgInvalidMiningReward  = "Mining reward must be a non-negative decimal"
	ErrMsgInvalidRewardAddress = "Reward address must not be empty"
)

// LedgerError is the single error type returned by the ledger packages.
type LedgerError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *LedgerError) Error() string {
	label, ok := kindLabels[e.Kind]
	if !ok {
		label = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", label, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", label, e.Message)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is matches kind sentinels (no message) or an identical kind+message.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func newError(kind Kind, err error, format string, args ...interface{}) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &LedgerError{Kind: kind, Message: msg, Err: err}
}

func NewMiningError(format string, args ...interface{}) error {
	return newError(KindMining, nil, format, args...)
}

func NewValidationError(format string, args ...interface{}) error {
	return newError(KindValidation, nil, format, args...)
}

func NewSignatureError(format string, args ...interface{}) error {
	return newError(KindSignature, nil, format, args...)
}

func NewWalletError(format string, args ...interface{}) error {
	return newError(KindWallet, nil, format, args...)
}

func NewTransactionError(format string, args ...interface{}) error {
	return newError(KindTransaction, nil, format, args...)
}

// Wrap classifies err under kind, keeping it reachable through errors.Unwrap.
func Wrap(kind Kind, err error, message string) error {
	return newError(kind, err, message)
}

// KindOf returns the kind of the first LedgerError in err's chain.
func KindOf(err error) (Kind, bool) {
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}
