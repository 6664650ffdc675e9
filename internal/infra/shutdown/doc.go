// Package shutdown coordinates graceful shutdown of the daemon.
//
// Hooks run in reverse registration order under a shared deadline, so
// the RPC listener stops before the store it depends on is closed.
package shutdown
