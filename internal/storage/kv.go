package storage

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrCASMismatch = errors.New("compare-and-set: current value does not match")
	ErrClosed      = errors.New("kv engine closed")
)

// KVEngine defines the interface for embedded key-value storage.
//
// Implementations must be safe for concurrent use and must linearize
// CompareAndSet calls on the same key.
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// CompareAndSet writes value if the current value equals expected.
	// A nil expected means the key must be absent.
	// Returns ErrCASMismatch otherwise.
	CompareAndSet(ctx context.Context, key, expected, value []byte) error

	// Scan iterates over keys with a given prefix.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// GC triggers garbage collection. Returns approximate bytes reclaimed.
	GC(ctx context.Context) (uint64, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close gracefully shuts down the KV engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	TotalSize        uint64
	LSMSize          uint64
	ValueLogSize     uint64
	LastGCTime       int64 // Unix milliseconds
	GCBytesReclaimed uint64
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// EncryptionKey enables at-rest encryption (16, 24 or 32 bytes).
	EncryptionKey []byte

	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// IndexCacheSize is required by Badger when encryption is enabled.
	// Default: 16MB
	IndexCacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// SyncWrites fsyncs after each commit. Shares must survive a crash
	// once the verifying key has been returned, so this defaults to true.
	SyncWrites bool

	// MaxConflictRetries bounds the retries of a CompareAndSet that lost a
	// transaction conflict.
	// Default: 5
	MaxConflictRetries int
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:         "10m",
		GCThreshold:        0.5,
		CacheSize:          64 << 20,  // 64MB
		IndexCacheSize:     16 << 20,  // 16MB
		ValueLogFileSize:   256 << 20, // 256MB
		SyncWrites:         true,
		MaxConflictRetries: 5,
	}
}
