// Package logger provides structured logging for tssd.
//
//   - logger.go: slog-based logger, output format and dynamic level
//   - context.go: context-carried logger and request IDs
//   - redact.go: redaction of key material and credentials
//
// Secrets handled by the daemon (seed bytes, signing-key shares, Vault
// tokens) must never reach a log line. The handler's ReplaceAttr hook
// redacts attributes whose key names them, whatever the value type.
package logger
