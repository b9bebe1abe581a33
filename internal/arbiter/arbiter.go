package arbiter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/infra/atomicfile"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
)

// Path is one way of obtaining the tower file. Run must deliver through
// gate.Commit and return once it has finished, successfully or not.
type Path struct {
	Name string
	Run  func(ctx context.Context, gate *Gate) error
}

// Arbiter joins the delivery paths of one failover attempt.
type Arbiter struct {
	dest    string
	logger  *slog.Logger
	metrics *metric.Registry
	write   func(string, []byte) error
}

// New returns an arbiter writing dest. metrics may be nil.
func New(dest string, logger *slog.Logger, metrics *metric.Registry) *Arbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{dest: dest, logger: logger, metrics: metrics, write: atomicfile.WriteFile}
}

// Run starts every path concurrently and waits for all of them. A path
// that loses is never cancelled; it runs to completion and its write is
// suppressed by the gate.
//
// Run returns nil if some path committed, otherwise an error matching
// domain.ErrNoSourceAvailable that wraps each path's failure.
func (a *Arbiter) Run(ctx context.Context, paths ...Path) error {
	gate := newGate(a.dest, a.logger, a.write)
	errs := make([]error, len(paths))

	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			errs[i] = p.Run(ctx, gate)
			return nil
		})
	}
	_ = g.Wait()

	winner := gate.Winner()
	if winner != "" {
		for i, p := range paths {
			if p.Name == winner {
				continue
			}
			a.logger.Info("delivery path lost arbitration",
				"path", p.Name,
				"winner", winner,
				"outcome", describe(errs[i]),
			)
		}
		a.observe(winner)
		return nil
	}

	var merr *multierror.Error
	for i, p := range paths {
		err := errs[i]
		if err == nil {
			// A path that returns nil without committing has nothing to offer.
			err = errors.New("finished without delivering")
		}
		if errors.Is(err, domain.ErrStaleData) {
			a.logger.Info("delivery path failed", "path", p.Name, "error", err)
		} else {
			a.logger.Warn("delivery path failed", "path", p.Name, "error", err)
		}
		merr = multierror.Append(merr, &PathError{Path: p.Name, Err: err})
	}
	a.observe("none")

	return domain.ErrNoSourceAvailable.Wrap(merr.ErrorOrNil())
}

func (a *Arbiter) observe(path string) {
	if a.metrics != nil {
		a.metrics.ArbitrationWins.WithLabelValues(path).Inc()
	}
}

func describe(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrLostArbitration):
		return "suppressed"
	default:
		return err.Error()
	}
}

// PathError attributes a failure to a delivery path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}
