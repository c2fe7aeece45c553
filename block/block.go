package block

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mezonai/powledger/jsonx"
	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/transaction"
)

// GenesisPreviousHash links the genesis block to nothing.
const GenesisPreviousHash = "0"

type Block struct {
	Index        uint64                     `json:"index"`
	Timestamp    uint64                     `json:"timestamp"`
	Transactions []*transaction.Transaction `json:"transactions"`
	PreviousHash string                     `json:"previous_hash"`
	Hash         string                     `json:"hash"`
	Nonce        uint64                     `json:"nonce"`
	MerkleRoot   string                     `json:"merkle_root"`
}

// NewBlock computes the merkle root over txs and mines the block at difficulty.
func NewBlock(index uint64, txs []*transaction.Transaction, previousHash string, difficulty uint32) (*Block, error) {
	return NewBlockWithContext(context.Background(), index, txs, previousHash, difficulty)
}

// NewBlockWithContext is NewBlock with a cancellable mining loop. A block whose
// mining was cancelled is never returned.
func NewBlockWithContext(ctx context.Context, index uint64, txs []*transaction.Transaction, previousHash string, difficulty uint32) (*Block, error) {
	b := &Block{
		Index:        index,
		Timestamp:    uint64(time.Now().Unix()),
		Transactions: txs,
		PreviousHash: previousHash,
	}
	b.MerkleRoot = CalculateMerkleRoot(b.Transactions)

	start := time.Now()
	if err := b.mine(ctx, difficulty); err != nil {
		logx.Warn("MINER", fmt.Sprintf("block %d not mined: %v", index, err))
		return nil, err
	}
	logx.Info("MINER", fmt.Sprintf("Mined block %d | nonce=%d | hash=%s | txs=%d | took=%s",
		b.Index, b.Nonce, b.Hash, len(b.Transactions), time.Since(start)))
	return b, nil
}

// CalculateHash is the hex sha256 of index, timestamp, merkle root, previous
// hash, nonce and every transaction id, concatenated in that order.
func (b *Block) CalculateHash() string {
	return b.hashWithNonce(b.headerPrefix(), b.txIDs(), b.Nonce)
}

func (b *Block) headerPrefix() string {
	return fmt.Sprintf("%d%d%s%s", b.Index, b.Timestamp, b.MerkleRoot, b.PreviousHash)
}

func (b *Block) txIDs() string {
	var sb strings.Builder
	for _, tx := range b.Transactions {
		sb.WriteString(tx.ID)
	}
	return sb.String()
}

func (b *Block) hashWithNonce(prefix, ids string, nonce uint64) string {
	h := sha256.New()
	h.Write([]byte(prefix))
	h.Write([]byte(strconv.FormatUint(nonce, 10)))
	h.Write([]byte(ids))
	return hex.EncodeToString(h.Sum(nil))
}

// IsGenesis reports whether b sits at the root of a chain.
func (b *Block) IsGenesis() bool {
	return b.Index == 0 && b.PreviousHash == GenesisPreviousHash
}

func (b *Block) Bytes() []byte {
	data, _ := jsonx.Marshal(b)
	return data
}
