//go:build !malicious

package command

import "github.com/urfave/cli/v2"

// extraCommands is empty: behaviour selection is compiled out.
func extraCommands(RunFunc) []*cli.Command { return nil }
