// Package driveragent runs on the driver's device. It records driver
// actions locally and syncs them to the hub whenever it is reachable.
package driveragent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/routepeer-io/routepeer/internal/driveragent/orchestrator"
	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/driveragent/server"
	"github.com/routepeer-io/routepeer/pkg/log"
)

type Agent struct {
	driverID     string
	queue        *queue.Queue
	orchestrator *orchestrator.Orchestrator
	server       *server.Server
}

func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting rpeer-driver-agent", "driverID", a.driverID)
	defer func() {
		if err := a.queue.Close(); err != nil {
			log.Error(err, "Failed to close queue")
		}
	}()

	counts, err := a.queue.Count(ctx)
	if err != nil {
		log.Error(err, "Failed to count pending items")
	} else {
		log.Info("Pending items from previous runs", "status", counts.Status, "photos", counts.Photo, "locations", counts.Location)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.orchestrator.Run(ctx) })
	g.Go(func() error { return a.server.Start(ctx) })

	err = g.Wait()
	log.Info("Agent shutting down...")
	return err
}
