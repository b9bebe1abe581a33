package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/towerlink-go/internal/cli/connection"
	"github.com/yndnr/towerlink-go/internal/cli/output"
	"github.com/yndnr/towerlink-go/internal/infra/buildinfo"
)

// StatusCommand returns the status subcommand, which probes the ops
// endpoints of a running sender.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Query health, readiness and version of a running process",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "addr",
				Aliases:  []string{"a"},
				Usage:    "Ops server address (the process's metrics.addr)",
				EnvVars:  []string{"TOWERLINK_METRICS__ADDR"},
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request timeout",
				Value: connection.DefaultTimeout,
			},
			formatFlag("table"),
		},
		Action: status,
	}
}

// Status is the combined answer of the ops endpoints.
type Status struct {
	Health  connection.Health    `json:"health"`
	Ready   connection.Readiness `json:"ready"`
	Version buildinfo.Info       `json:"version"`
}

func status(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}

	client := connection.NewOpsClient(c.String("addr"), c.Duration("timeout"))

	var st Status
	if st.Health, err = client.Health(c.Context); err != nil {
		return cli.Exit(fmt.Sprintf("status %s: %v", client.BaseURL(), err), exitFailure)
	}
	if st.Ready, err = client.Ready(c.Context); err != nil {
		return cli.Exit(fmt.Sprintf("status %s: %v", client.BaseURL(), err), exitFailure)
	}
	if st.Version, err = client.Version(c.Context); err != nil {
		return cli.Exit(fmt.Sprintf("status %s: %v", client.BaseURL(), err), exitFailure)
	}

	var data any = st
	if format == output.FormatTable {
		data = statusTable(st)
	}
	if err := output.NewFormatter(format).Format(c.App.Writer, data); err != nil {
		return err
	}

	if !st.Ready.Ready {
		return cli.Exit("not ready: "+st.Ready.Reason, exitFailure)
	}
	return nil
}

func statusTable(st Status) *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("role", st.Health.Role)
	t.AddRow("health", st.Health.Status)
	t.AddRow("ready", strconv.FormatBool(st.Ready.Ready))
	if st.Ready.Reason != "" {
		t.AddRow("reason", st.Ready.Reason)
	}
	t.AddRow("version", st.Version.String())
	return t
}
