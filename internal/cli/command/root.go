package command

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tssd/internal/core/behaviour"
	"github.com/yndnr/tssd/internal/core/domain"
	"github.com/yndnr/tssd/internal/infra/buildinfo"
)

// DefaultPort is the RPC port used when --port is not given.
const DefaultPort = "50051"

// Args are the validated startup arguments.
type Args struct {
	// Port is the --port value, or DefaultPort.
	Port uint16
	// Behaviour is Honest unless the malicious subcommand selected another.
	Behaviour behaviour.Behaviour
	// ConfigFile is the optional YAML configuration path.
	ConfigFile string
	// Overrides holds configuration keys for explicitly set flags.
	Overrides map[string]any
}

// RunFunc starts the daemon with parsed arguments.
type RunFunc func(ctx context.Context, args Args) error

// flag name -> configuration key
var flagKeys = map[string]string{
	"data-dir":     "storage.data_dir",
	"in-memory":    "storage.in_memory",
	"seed-mode":    "seed.mode",
	"seed-import":  "seed.import_file",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"metrics-addr": "server.metrics_addr",
}

// App creates the CLI application.
func App(run RunFunc) *cli.App {
	return &cli.App{
		Name:            "tssd",
		Usage:           "threshold signature key daemon",
		Version:         buildinfo.String(),
		Flags:           globalFlags(),
		HideHelpCommand: true,
		Commands:        extraCommands(run),
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return domain.ErrParse.WithDetails(fmt.Sprintf("unexpected argument %q", c.Args().First()))
			}
			args, err := argsFromContext(c, behaviour.Behaviour{})
			if err != nil {
				return err
			}
			return run(c.Context, args)
		},
	}
}

// globalFlags returns the daemon flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "RPC listen port",
			Value:   DefaultPort,
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to YAML configuration file",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "key store directory",
		},
		&cli.BoolFlag{
			Name:  "in-memory",
			Usage: "keep the key store in memory (testing only)",
		},
		&cli.StringFlag{
			Name:  "seed-mode",
			Usage: "seed bootstrap: existing, create, import, vault",
		},
		&cli.StringFlag{
			Name:  "seed-import",
			Usage: "hex seed file for --seed-mode=import",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "json or text",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve /metrics on a dedicated host:port",
		},
	}
}

// ParsePort parses a decimal port number.
func ParsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, domain.ErrParse.WithDetails(fmt.Sprintf("invalid port %q", s)).Wrap(err)
	}
	return uint16(p), nil
}

// ParseBehaviour validates a behaviour name and victim index and maps
// them to a variant. An empty victim means index 0.
func ParseBehaviour(name, victim string) (behaviour.Behaviour, error) {
	name, err := behaviour.ParseName(name)
	if err != nil {
		return behaviour.Behaviour{}, err
	}

	var idx uint64
	if victim != "" {
		idx, err = strconv.ParseUint(victim, 10, 0)
		if err != nil {
			return behaviour.Behaviour{}, domain.ErrParse.WithDetails(fmt.Sprintf("invalid victim %q", victim)).Wrap(err)
		}
	}
	return behaviour.FromName(name, uint(idx)), nil
}

func argsFromContext(c *cli.Context, b behaviour.Behaviour) (Args, error) {
	port, err := ParsePort(c.String("port"))
	if err != nil {
		return Args{}, err
	}

	args := Args{
		Port:       port,
		Behaviour:  b,
		ConfigFile: c.String("config"),
		Overrides:  make(map[string]any),
	}
	if c.IsSet("port") {
		args.Overrides["server.port"] = int(port)
	}
	for flag, key := range flagKeys {
		if !c.IsSet(flag) {
			continue
		}
		if flag == "in-memory" {
			args.Overrides[key] = c.Bool(flag)
			continue
		}
		args.Overrides[key] = c.String(flag)
	}
	return args, nil
}

// Parse parses argv (including the program name) without starting
// anything. Help and version requests return zero Args and no error.
func Parse(argv []string, w io.Writer) (Args, error) {
	var out Args
	app := App(func(_ context.Context, a Args) error {
		out = a
		return nil
	})
	app.Writer = w
	app.ErrWriter = w
	if err := app.Run(argv); err != nil {
		return Args{}, err
	}
	return out, nil
}
