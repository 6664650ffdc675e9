// Command tssd is the threshold signature key daemon.
//
// It derives per-key secp256k1 signing shares from a daemon seed, stores
// each share exactly once in a local Badger store and returns the
// verifying key over a Connect RPC API.
//
// Usage:
//
//	tssd [--port 50051] [--config tssd.yaml] [--seed-mode create]
//
// Binaries built with -tags malicious also accept
//
//	tssd malicious <behaviour> [victim]
package main
