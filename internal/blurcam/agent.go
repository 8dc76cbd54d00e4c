package blurcam

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/internal/blurcam/dispatch"
	"github.com/autopeer-io/blurcam/pkg/log"
)

// Server is anything the agent runs until shutdown.
type Server interface {
	Start(ctx context.Context) error
}

type Agent struct {
	deviceID      string
	dispatcher    *dispatch.Dispatcher
	servers       []Server
	cancelTimeout time.Duration
}

func NewAgent(deviceID string, d *dispatch.Dispatcher, servers []Server, cancelTimeout time.Duration) *Agent {
	return &Agent{
		deviceID:      deviceID,
		dispatcher:    d,
		servers:       servers,
		cancelTimeout: cancelTimeout,
	}
}

// Run starts every server and blocks until ctx is done or one of them fails.
// On the way out all running operations are cancelled within the cancel timeout.
func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting blurcam agent", "deviceID", a.deviceID)

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range a.servers {
		s := s
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Agent shutting down...")

		cancelCtx, cancel := context.WithTimeout(context.Background(), a.cancelTimeout)
		defer cancel()
		// Abandoned operations are logged by the dispatcher; shutdown proceeds anyway.
		_ = a.dispatcher.CancelAll(cancelCtx)
		return nil
	})

	log.Info("All servers starting...")
	return g.Wait()
}

func logNotifier() core.Notifier {
	logger := log.WithName("events")
	return core.NotifierFunc(func(_ context.Context, ev core.Event) {
		logger.Info("Event", "type", ev.Type, "command", ev.CommandID, "files", ev.Files, "message", ev.Message)
	})
}
