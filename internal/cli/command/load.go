package command

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/towerlink-go/internal/config"
	"github.com/yndnr/towerlink-go/internal/infra/confloader"
	"github.com/yndnr/towerlink-go/internal/telemetry/logger"
)

// binding maps a command-line flag onto a dotted config key.
type binding struct {
	flag string
	key  string
}

// overrides collects the values of every flag set on the command line or
// through its EnvVars. Unset flags are left out so they never mask the
// file or the TOWERLINK_ environment.
func overrides(c *cli.Context, bindings ...[]binding) map[string]any {
	values := make(map[string]any)
	for _, group := range bindings {
		for _, b := range group {
			if c.IsSet(b.flag) {
				values[b.key] = c.Value(b.flag)
			}
		}
	}
	return values
}

// loadConfig merges defaults, the config file, the environment and flags.
func loadConfig(c *cli.Context, flags map[string]any) (*config.Config, error) {
	cfg := config.Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(c.String("config")),
		confloader.WithFlags(flags),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, cli.Exit(fmt.Sprintf("load configuration: %v", err), exitConfig)
	}
	cfg.InferStoreBackend()
	return cfg, nil
}

// newLogger builds the process logger and installs it as the default.
func newLogger(c *cli.Context, cfg *config.Config) (*slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Output:    c.App.ErrWriter,
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfig)
	}
	slog.SetDefault(log)
	return log, nil
}

// invalid reports a failed verification with every problem listed.
func invalid(role string, err error) error {
	return cli.Exit(fmt.Sprintf("invalid %s configuration: %v", role, err), exitConfig)
}
