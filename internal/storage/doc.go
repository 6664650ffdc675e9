// Package storage provides the persistent key store for tssd.
//
// Layers, bottom-up:
//
//   - KVEngine: embedded key-value engine with compare-and-set (Badger)
//   - KV: two-phase reservation store (reserve a slot, then commit once)
//   - Manager: owns the engine, the share namespace and the daemon seed
//
// Every slot follows Free -> Reserved -> Committed. Nothing deletes or
// overwrites a committed slot.
package storage
