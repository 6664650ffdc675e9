// Package service provides the domain services of tssd.
//
// Services hold business logic only. Storage, seed access and key
// derivation are injected through small interfaces so tests can replace
// each of them.
//
//   - MultisigService: keygen orchestration and key presence checks
package service
