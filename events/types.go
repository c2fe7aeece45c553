package events

import (
	"time"

	"github.com/mezonai/powledger/transaction"
)

// EventType is an enum-like string type for ledger events
type EventType string

const (
	EventTransactionAddedToPool     EventType = "TransactionAddedToPool"
	EventTransactionIncludedInBlock EventType = "TransactionIncludedInBlock"
	EventBlockMined                 EventType = "BlockMined"
	EventChainInvalid               EventType = "ChainInvalid"
)

// LedgerEvent represents any event that occurs in the ledger. TxID is empty
// for block- and chain-level events.
type LedgerEvent interface {
	Type() EventType
	Timestamp() time.Time
	TxID() string
}

// TransactionAddedToPool event when a transaction is accepted into the pending pool
type TransactionAddedToPool struct {
	tx        *transaction.Transaction
	timestamp time.Time
}

func NewTransactionAddedToPool(tx *transaction.Transaction) *TransactionAddedToPool {
	return &TransactionAddedToPool{
		tx:        tx,
		timestamp: time.Now(),
	}
}

func (e *TransactionAddedToPool) Type() EventType {
	return EventTransactionAddedToPool
}

func (e *TransactionAddedToPool) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionAddedToPool) TxID() string {
	return e.tx.ID
}

func (e *TransactionAddedToPool) Transaction() *transaction.Transaction {
	return e.tx
}

// TransactionIncludedInBlock event when a transaction is included in a mined block
type TransactionIncludedInBlock struct {
	txID       string
	blockIndex uint64
	blockHash  string
	timestamp  time.Time
}

func NewTransactionIncludedInBlock(txID string, blockIndex uint64, blockHash string) *TransactionIncludedInBlock {
	return &TransactionIncludedInBlock{
		txID:       txID,
		blockIndex: blockIndex,
		blockHash:  blockHash,
		timestamp:  time.Now(),
	}
}

func (e *TransactionIncludedInBlock) Type() EventType {
	return EventTransactionIncludedInBlock
}

func (e *TransactionIncludedInBlock) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionIncludedInBlock) TxID() string {
	return e.txID
}

func (e *TransactionIncludedInBlock) BlockIndex() uint64 {
	return e.blockIndex
}

func (e *TransactionIncludedInBlock) BlockHash() string {
	return e.blockHash
}

// BlockMined event when a block is appended to the chain
type BlockMined struct {
	blockIndex uint64
	blockHash  string
	nonce      uint64
	txCount    int
	timestamp  time.Time
}

func NewBlockMined(blockIndex uint64, blockHash string, nonce uint64, txCount int) *BlockMined {
	return &BlockMined{
		blockIndex: blockIndex,
		blockHash:  blockHash,
		nonce:      nonce,
		txCount:    txCount,
		timestamp:  time.Now(),
	}
}

func (e *BlockMined) Type() EventType {
	return EventBlockMined
}

func (e *BlockMined) Timestamp() time.Time {
	return e.timestamp
}

func (e *BlockMined) TxID() string {
	return ""
}

func (e *BlockMined) BlockIndex() uint64 {
	return e.blockIndex
}

func (e *BlockMined) BlockHash() string {
	return e.blockHash
}

func (e *BlockMined) Nonce() uint64 {
	return e.nonce
}

func (e *BlockMined) TxCount() int {
	return e.txCount
}

// ChainInvalid event when a full-chain validation fails
type ChainInvalid struct {
	reason    string
	timestamp time.Time
}

func NewChainInvalid(reason string) *ChainInvalid {
	return &ChainInvalid{
		reason:    reason,
		timestamp: time.Now(),
	}
}

func (e *ChainInvalid) Type() EventType {
	return EventChainInvalid
}

func (e *ChainInvalid) Timestamp() time.Time {
	return e.timestamp
}

func (e *ChainInvalid) TxID() string {
	return ""
}

func (e *ChainInvalid) Reason() string {
	return e.reason
}
