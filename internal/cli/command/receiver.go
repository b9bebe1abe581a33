package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/towerlink-go/internal/config"
	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/infra/buildinfo"
	"github.com/yndnr/towerlink-go/internal/receiver"
)

// ReceiverCommand returns the receiver subcommand.
func ReceiverCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "sender-address",
			Aliases: []string{"s"},
			Usage:   "Sender host:port",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Destination path of the tower file",
		},
		&cli.StringFlag{
			Name:  "trust",
			Usage: "Sender certificate policy: insecure, pinned, ca",
		},
		&cli.StringFlag{
			Name:  "pin",
			Usage: "SHA-256 fingerprint or PEM file of the sender certificate (--trust pinned)",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "CA bundle or directory verifying the sender (--trust ca)",
		},
		&cli.StringFlag{
			Name:  "server-name",
			Usage: "Expected sender certificate name (--trust ca)",
		},
		&cli.DurationFlag{
			Name:  "dial-timeout",
			Usage: "Total time spent trying to reach the sender",
		},
		&cli.DurationFlag{
			Name:  "staleness-bound",
			Usage: "Maximum age of a replicated tower accepted from the store",
		},
	}

	return &cli.Command{
		Name:   "receiver",
		Usage:  "Fetch the tower file once, from the sender or else from the durable store",
		Flags:  append(flags, storeFlags()...),
		Action: runReceiver,
	}
}

var receiverBindings = []binding{
	{"sender-address", "receiver.sender_addr"},
	{"output", "receiver.output_path"},
	{"trust", "transport.trust"},
	{"pin", "transport.pin"},
	{"ca-file", "transport.ca_file"},
	{"server-name", "transport.server_name"},
	{"dial-timeout", "receiver.dial_timeout"},
	{"staleness-bound", "receiver.staleness_bound"},
}

func runReceiver(c *cli.Context) error {
	cfg, err := loadConfig(c, overrides(c, globalBindings, receiverBindings, storeBindings))
	if err != nil {
		return err
	}
	if err := config.VerifyReceiver(cfg); err != nil {
		return invalid("receiver", err)
	}

	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	log.Info("starting towerlink receiver", "build", buildinfo.Get(), "config", config.Sanitize(cfg))

	r := receiver.New(cfg, receiver.WithLogger(log))
	if err := serve(c.Context, log, "receiver", r.Run); err != nil {
		log.Error("failover attempt failed", "code", domain.GetErrorCode(err), "error", err)
		return cli.Exit(err.Error(), exitFailure)
	}
	return nil
}
