package command

import (
	"net"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/towerlink-go/internal/config"
	"github.com/yndnr/towerlink-go/internal/infra/buildinfo"
	"github.com/yndnr/towerlink-go/internal/sender"
)

// SenderCommand returns the sender subcommand.
func SenderCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "cert",
			Aliases: []string{"c"},
			Usage:   "PEM certificate chain presented to receivers",
		},
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "PEM private key for --cert",
		},
		&cli.StringFlag{
			Name:    "tower",
			Aliases: []string{"t"},
			Usage:   "Tower file to serve and replicate",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "UDP port to listen on, on all interfaces",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "Listen address (host:port); --port wins when both are given",
		},
		&cli.BoolFlag{
			Name:  "watch-certs",
			Usage: "Reload the certificate pair when it changes on disk",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve /metrics, /health, /ready and /version on this address",
		},
	}

	return &cli.Command{
		Name:   "sender",
		Usage:  "Serve the tower file to receivers and replicate it to the durable store",
		Flags:  append(flags, storeFlags()...),
		Action: runSender,
	}
}

var senderBindings = []binding{
	{"cert", "sender.cert_file"},
	{"key", "sender.key_file"},
	{"tower", "sender.tower_file"},
	{"listen", "sender.listen_addr"},
	{"watch-certs", "sender.watch_certs"},
	{"metrics-addr", "metrics.addr"},
}

func senderOverrides(c *cli.Context) map[string]any {
	values := overrides(c, globalBindings, senderBindings, storeBindings)
	if c.IsSet("port") {
		values["sender.listen_addr"] = net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Int("port")))
	}
	return values
}

func runSender(c *cli.Context) error {
	cfg, err := loadConfig(c, senderOverrides(c))
	if err != nil {
		return err
	}
	if err := config.VerifySender(cfg); err != nil {
		return invalid("sender", err)
	}

	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	log.Info("starting towerlink sender", "build", buildinfo.Get(), "config", config.Sanitize(cfg))

	s := sender.New(cfg,
		sender.WithLogger(log),
		sender.WithConfigFile(c.String("config")),
	)
	if err := serve(c.Context, log, "sender", s.Run); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	return nil
}
