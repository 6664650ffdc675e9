// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command-line flags)
//  2. Environment variables (TSSD_ prefix)
//  3. Configuration file (YAML)
//  4. Values already present in the target struct (defaults)
//
// Watcher reports changes to the configuration file so callers can
// re-apply the settings that are safe to change at runtime.
package confloader
