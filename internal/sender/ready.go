package sender

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/towerlink-go/internal/replication"
	"github.com/yndnr/towerlink-go/internal/server/httpserver"
)

// staleTicks is how many replication intervals may pass without a
// complete cycle before the sender reports itself not ready.
const staleTicks = 3

// readiness backs /ready. The ops server only starts after the QUIC
// listener is bound, so a bound listener is implied.
type readiness struct {
	towerFile string
	scheduler *replication.Scheduler
	started   time.Time
	now       func() time.Time
}

func (r readiness) check() error {
	f, err := os.Open(r.towerFile)
	if err != nil {
		return fmt.Errorf("tower file unreadable: %w", err)
	}
	f.Close()

	if r.scheduler == nil || !r.scheduler.Enabled() {
		return nil
	}
	last := r.scheduler.LastSuccess()
	if last.IsZero() {
		last = r.started
	}
	if age, limit := r.now().Sub(last), staleTicks*r.scheduler.Interval(); age > limit {
		return fmt.Errorf("no replication for %s (limit %s)", age.Truncate(time.Second), limit)
	}
	return nil
}

func (s *Sender) opsRouter(r readiness) http.Handler {
	return httpserver.NewRouter(httpserver.RouterConfig{
		Metrics: s.metrics,
		Logger:  s.logger,
		Ready:   r.check,
		Role:    "sender",
	})
}
