// Package ecdsakey derives secp256k1 signing keys deterministically from a
// daemon seed and a session nonce, and encodes signing-key shares for storage.
//
// Derivation is a pure function: the same (seed, nonce) pair always yields
// the same KeyPair. Nothing in this package performs IO.
package ecdsakey
