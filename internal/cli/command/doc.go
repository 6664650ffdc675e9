// Package command defines the tssd command line using urfave/cli/v2.
//
// The root command starts the daemon. Builds tagged "malicious" add a
// `malicious <behaviour> [victim]` subcommand that selects a protocol
// deviation for adversarial testing; default builds always run honest.
//
// Parsing produces an Args value. Flags that were set explicitly become
// configuration overrides with the highest priority.
package command
