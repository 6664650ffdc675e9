package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/tssd/internal/core/domain"
)

// Slot record tags.
const (
	tagReserved  byte = 0x01
	tagCommitted byte = 0x02
)

// SlotState is the lifecycle position of one slot.
type SlotState int

const (
	SlotFree SlotState = iota
	SlotReserved
	SlotCommitted
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotReserved:
		return "reserved"
	case SlotCommitted:
		return "committed"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Reservation grants the right to commit one value into one slot.
//
// Only KV.ReserveKey creates a usable Reservation. The token is stored in
// the slot, so a Reservation can be redeemed at most once.
type Reservation struct {
	key   string
	token ulid.ULID
}

// Key returns the reserved key.
func (r Reservation) Key() string {
	return r.key
}

// IsZero reports whether r was not produced by ReserveKey.
func (r Reservation) IsZero() bool {
	return r.key == "" && r.token == (ulid.ULID{})
}

// KV is a namespaced two-phase key store over a KVEngine.
type KV struct {
	engine KVEngine
	prefix []byte

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewKV returns a store whose keys live under prefix.
func NewKV(engine KVEngine, prefix string) *KV {
	return &KV{
		engine:  engine,
		prefix:  []byte(prefix),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (kv *KV) slotKey(key string) []byte {
	out := make([]byte, 0, len(kv.prefix)+len(key))
	out = append(out, kv.prefix...)
	return append(out, key...)
}

func (kv *KV) newToken() (ulid.ULID, error) {
	kv.entropyMu.Lock()
	defer kv.entropyMu.Unlock()
	return ulid.New(ulid.Timestamp(time.Now()), kv.entropy)
}

func reservedRecord(token ulid.ULID) []byte {
	rec := make([]byte, 1, 1+len(token))
	rec[0] = tagReserved
	return append(rec, token[:]...)
}

func committedRecord(value []byte) []byte {
	rec := make([]byte, 1, 1+len(value))
	rec[0] = tagCommitted
	return append(rec, value...)
}

// ReserveKey atomically moves key from Free to Reserved.
// Returns domain.ErrDuplicateKey when the key is reserved or committed.
func (kv *KV) ReserveKey(ctx context.Context, key string) (Reservation, error) {
	if key == "" {
		return Reservation{}, domain.ErrInvalidArgument.WithDetails("empty key")
	}

	token, err := kv.newToken()
	if err != nil {
		return Reservation{}, domain.ErrStorage.WithDetails("generate reservation token").Wrap(err)
	}

	err = kv.engine.CompareAndSet(ctx, kv.slotKey(key), nil, reservedRecord(token))
	switch {
	case err == nil:
		return Reservation{key: key, token: token}, nil
	case errors.Is(err, ErrCASMismatch):
		return Reservation{}, domain.ErrDuplicateKey.WithDetails(key)
	default:
		return Reservation{}, storageError("reserve", err)
	}
}

// Put commits value into the slot held by res, moving it to Committed.
// Returns domain.ErrInvalidReservation when res does not match a Reserved slot.
func (kv *KV) Put(ctx context.Context, res Reservation, value []byte) error {
	if res.IsZero() {
		return domain.ErrInvalidReservation.WithDetails("reservation was not issued by this store")
	}

	err := kv.engine.CompareAndSet(ctx, kv.slotKey(res.key), reservedRecord(res.token), committedRecord(value))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCASMismatch):
		return domain.ErrInvalidReservation.WithDetails(res.key)
	default:
		return storageError("commit", err)
	}
}

// Get returns the committed value for key.
// Returns domain.ErrKeyNotFound when the slot is free or only reserved.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	rec, err := kv.engine.Get(ctx, kv.slotKey(key))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrKeyNotFound.WithDetails(key)
	}
	if err != nil {
		return nil, storageError("get", err)
	}
	if len(rec) == 0 || rec[0] != tagCommitted {
		return nil, domain.ErrKeyNotFound.WithDetails(key)
	}
	return rec[1:], nil
}

// Exists reports whether key has a committed value.
func (kv *KV) Exists(ctx context.Context, key string) (bool, error) {
	state, err := kv.State(ctx, key)
	if err != nil {
		return false, err
	}
	return state == SlotCommitted, nil
}

// State reports the lifecycle position of key.
func (kv *KV) State(ctx context.Context, key string) (SlotState, error) {
	rec, err := kv.engine.Get(ctx, kv.slotKey(key))
	if errors.Is(err, ErrKeyNotFound) {
		return SlotFree, nil
	}
	if err != nil {
		return SlotFree, storageError("state", err)
	}
	return decodeState(rec)
}

// Reserved lists keys that are reserved but never committed.
func (kv *KV) Reserved(ctx context.Context) ([]string, error) {
	var keys []string
	err := kv.engine.Scan(ctx, kv.prefix, func(key, value []byte) bool {
		if len(value) > 0 && value[0] == tagReserved {
			keys = append(keys, string(bytes.TrimPrefix(key, kv.prefix)))
		}
		return true
	})
	if err != nil {
		return nil, storageError("scan", err)
	}
	return keys, nil
}

func decodeState(rec []byte) (SlotState, error) {
	if len(rec) == 0 {
		return SlotFree, domain.ErrStorage.WithDetails("empty slot record")
	}
	switch rec[0] {
	case tagReserved:
		return SlotReserved, nil
	case tagCommitted:
		return SlotCommitted, nil
	default:
		return SlotFree, domain.ErrStorage.WithDetails(fmt.Sprintf("unknown slot tag 0x%02x", rec[0]))
	}
}

func storageError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ErrStorage.WithDetails(op).Wrap(err)
}
