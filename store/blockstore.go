package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mezonai/powledger/block"
	"github.com/mezonai/powledger/db"
	"github.com/mezonai/powledger/jsonx"
	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/transaction"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by lookups for blocks or transactions never stored.
var ErrNotFound = errors.New("not found")

// BlockStore indexes mined blocks by position, by hash and by transaction id.
// Returned values are decoded copies; mutating them never touches the chain.
type BlockStore interface {
	Store(b *block.Block) error
	GetByIndex(index uint64) (*block.Block, error)
	GetByHash(hash string) (*block.Block, error)
	GetTx(id string) (*transaction.Transaction, uint64, error)
	Len() uint64
	Iterate(fn func(b *block.Block) bool) error
	MustClose()
}

// GenericBlockStore is a database-agnostic implementation that uses DatabaseProvider
type GenericBlockStore struct {
	provider db.IterableProvider
	mu       sync.RWMutex
	count    uint64
}

// NewGenericBlockStore creates a new generic block store with the given provider
func NewGenericBlockStore(provider db.IterableProvider) (*GenericBlockStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	s := &GenericBlockStore{
		provider: provider,
	}
	if err := s.loadCount(); err != nil {
		return nil, errors.Wrap(err, "failed to load metadata")
	}
	return s, nil
}

// NewMemBlockStore opens a block store on a fresh in-memory LevelDB.
func NewMemBlockStore() (*GenericBlockStore, error) {
	provider, err := db.NewMemLevelDBProvider()
	if err != nil {
		return nil, err
	}
	return NewGenericBlockStore(provider)
}

func (s *GenericBlockStore) loadCount() error {
	value, err := s.provider.Get([]byte(PrefixBlockMeta + BlockMetaKeyCount))
	if err != nil {
		return err
	}
	if value == nil {
		s.count = 0
		return nil
	}
	if len(value) != 8 {
		return fmt.Errorf("invalid block count value length: %d", len(value))
	}
	s.count = binary.BigEndian.Uint64(value)
	return nil
}

func uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// indexToBlockKey keeps blocks in chain order under prefix iteration
func indexToBlockKey(index uint64) []byte {
	return append([]byte(PrefixBlock), uint64ToBytes(index)...)
}

// Store writes the block and its hash and transaction indexes in one batch.
func (s *GenericBlockStore) Store(b *block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := jsonx.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "failed to marshal block")
	}

	indexBytes := uint64ToBytes(b.Index)
	count := s.count
	if b.Index+1 > count {
		count = b.Index + 1
	}

	err = db.WithBatch(s.provider, func(batch db.DatabaseBatch) error {
		batch.Put(indexToBlockKey(b.Index), data)
		batch.Put([]byte(PrefixBlockHash+b.Hash), indexBytes)
		for _, tx := range b.Transactions {
			batch.Put([]byte(PrefixTx+tx.ID), indexBytes)
		}
		batch.Put([]byte(PrefixBlockMeta+BlockMetaKeyCount), uint64ToBytes(count))
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to store block %d", b.Index)
	}

	s.count = count
	logx.Debug("STORE", fmt.Sprintf("stored block %d | hash=%s | bytes=%d", b.Index, b.Hash, len(data)))
	return nil
}

func (s *GenericBlockStore) GetByIndex(index uint64) (*block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getByIndex(index)
}

func (s *GenericBlockStore) getByIndex(index uint64) (*block.Block, error) {
	value, err := s.provider.Get(indexToBlockKey(index))
	if err != nil {
		return nil, errors.Wrapf(err, "could not get block %d from db", index)
	}
	if value == nil {
		return nil, ErrNotFound
	}

	var blk block.Block
	if err := jsonx.Unmarshal(value, &blk); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal block %d", index)
	}
	return &blk, nil
}

func (s *GenericBlockStore) lookupIndex(key []byte) (uint64, error) {
	value, err := s.provider.Get(key)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, ErrNotFound
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("invalid index value length: %d", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

func (s *GenericBlockStore) GetByHash(hash string) (*block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.lookupIndex([]byte(PrefixBlockHash + hash))
	if err != nil {
		return nil, err
	}
	return s.getByIndex(index)
}

// GetTx returns the transaction with id and the index of the block holding it.
func (s *GenericBlockStore) GetTx(id string) (*transaction.Transaction, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.lookupIndex([]byte(PrefixTx + id))
	if err != nil {
		return nil, 0, err
	}
	blk, err := s.getByIndex(index)
	if err != nil {
		return nil, 0, err
	}
	for _, tx := range blk.Transactions {
		if tx.ID == id {
			return tx, index, nil
		}
	}
	return nil, 0, ErrNotFound
}

func (s *GenericBlockStore) Len() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Iterate visits stored blocks in index order until fn returns false.
func (s *GenericBlockStore) Iterate(fn func(b *block.Block) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var decodeErr error
	err := s.provider.IteratePrefix([]byte(PrefixBlock), func(key, value []byte) bool {
		var blk block.Block
		if err := jsonx.Unmarshal(value, &blk); err != nil {
			decodeErr = errors.Wrapf(err, "failed to unmarshal block at key %x", key)
			return false
		}
		return fn(&blk)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func (s *GenericBlockStore) MustClose() {
	if err := s.provider.Close(); err != nil {
		logx.Error("STORE", "Failed to close block store:", err)
	}
}
