package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/towerlink-go/internal/cli/output"
	"github.com/yndnr/towerlink-go/internal/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the merged configuration with secrets masked",
				Flags:  append([]cli.Flag{formatFlag("yaml")}, storeFlags()...),
				Action: configShow,
			},
			{
				Name:      "check",
				Usage:     "Verify the merged configuration for a role",
				ArgsUsage: "sender|receiver",
				Action:    configCheck,
			},
		},
	}
}

func formatFlag(def string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: table, json, yaml",
		Value:   def,
	}
}

func configShow(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	cfg, err := loadConfig(c, overrides(c, globalBindings, storeBindings))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, config.Sanitize(cfg).Map())
}

func configCheck(c *cli.Context) error {
	role := c.Args().First()
	cfg, err := loadConfig(c, overrides(c, globalBindings))
	if err != nil {
		return err
	}

	switch role {
	case "sender":
		err = config.VerifySender(cfg)
	case "receiver":
		err = config.VerifyReceiver(cfg)
	default:
		return cli.Exit(fmt.Sprintf("config check: role must be sender or receiver, got %q", role), exitConfig)
	}
	if err != nil {
		return invalid(role, err)
	}

	fmt.Fprintf(c.App.Writer, "%s configuration OK\n", role)
	return nil
}
