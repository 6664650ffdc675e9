// Package config provides daemon configuration for tssd.
//
//   - types.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (port range, seed mode, key sizes)
//   - sanitize.go: Log sanitization (hide sensitive values)
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// TSSD_ environment variables and command-line flags, in increasing
// priority.
package config
