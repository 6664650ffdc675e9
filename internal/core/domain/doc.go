// Package domain defines the core domain types for tssd.
//
// Domain types are plain values without IO dependencies:
//
//   - KeygenRequest / KeyPresence: keygen service inputs and outputs
//   - Errors: structured error codes shared by every layer
package domain
