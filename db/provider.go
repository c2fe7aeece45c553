package db

// DatabaseProvider is the key/value surface the block store is written against.
type DatabaseProvider interface {
	// Get returns nil, nil for a missing key
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Close() error

	// Batch starts a group of writes applied atomically by Write
	Batch() DatabaseBatch
}

// IterableProvider adds ordered prefix scans. The callback returns false to stop.
type IterableProvider interface {
	DatabaseProvider
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

type DatabaseBatch interface {
	Put(key, value []byte)
	Write() error
	Reset()
}
