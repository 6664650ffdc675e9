//go:build malicious

package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tssd/internal/core/behaviour"
	"github.com/yndnr/tssd/internal/core/domain"
)

func extraCommands(run RunFunc) []*cli.Command {
	return []*cli.Command{maliciousCommand(run)}
}

func maliciousCommand(run RunFunc) *cli.Command {
	return &cli.Command{
		Name:      "malicious",
		Usage:     "run with a protocol deviation (adversarial testing only)",
		ArgsUsage: "<behaviour> [victim]",
		Description: "Behaviours: " + strings.Join(behaviour.Names(), ", ") +
			"\nVictim is the index of the targeted party and defaults to 0.",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return domain.ErrParse.WithDetails(fmt.Sprintf("malicious takes <behaviour> [victim], got %d arguments", c.NArg()))
			}
			b, err := ParseBehaviour(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			args, err := argsFromContext(c, b)
			if err != nil {
				return err
			}
			return run(c.Context, args)
		},
	}
}
