package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/towerlink-go/internal/infra/buildinfo"
)

// Exit codes.
const (
	exitFailure = 1
	exitConfig  = 2
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "towerlink",
		Usage:   "Replicate a validator tower file to a standby over QUIC",
		Version: buildinfo.Get().String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SenderCommand(),
			ReceiverCommand(),
			ConfigCommand(),
			StatusCommand(),
		},
	}
}

// globalFlags returns the flags available to every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML configuration file",
			EnvVars: []string{"TOWERLINK_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
		},
	}
}

// storeFlags configure the durable store. Both roles accept them.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Usage: "Durable store backend: cloudflare, badger, s3, gcs, memory",
		},
		&cli.StringFlag{
			Name:  "store-prefix",
			Usage: "Key prefix scoping the tower slot in a shared store",
		},
		&cli.StringFlag{
			Name:    "cloudflare-token",
			Usage:   "Cloudflare API token; enables the cloudflare store when no backend is named",
			EnvVars: []string{"CLOUDFLARE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "cloudflare-account",
			Usage:   "Cloudflare account ID",
			EnvVars: []string{"ACCOUNT_ID"},
		},
		&cli.StringFlag{
			Name:    "cloudflare-namespace",
			Usage:   "Workers KV namespace ID",
			EnvVars: []string{"NAMESPACE_ID"},
		},
		&cli.StringFlag{
			Name:  "badger-dir",
			Usage: "Badger store directory",
		},
		&cli.StringFlag{
			Name:  "encryption-key",
			Usage: "Hex key sealing the blob in the store",
		},
	}
}

var globalBindings = []binding{
	{"log-level", "log.level"},
	{"log-format", "log.format"},
}

var storeBindings = []binding{
	{"store", "store.backend"},
	{"store-prefix", "store.prefix"},
	{"cloudflare-token", "store.cloudflare.api_token"},
	{"cloudflare-account", "store.cloudflare.account_id"},
	{"cloudflare-namespace", "store.cloudflare.namespace_id"},
	{"badger-dir", "store.badger.dir"},
	{"encryption-key", "replication.encryption_key"},
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
