package hub

import (
	"context"
	"time"

	"github.com/routepeer-io/routepeer/internal/hub/server"
	"github.com/routepeer-io/routepeer/pkg/log"
)

type HubServer struct {
	manager *server.Manager
	closers []func(ctx context.Context)
}

func (h *HubServer) Run(ctx context.Context) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.close(closeCtx)
	}()

	if err := h.manager.Start(ctx); err != nil {
		return err
	}
	log.Info("rpeer-hub stopped gracefully.")
	return nil
}

// close releases adapters in reverse order of creation.
func (h *HubServer) close(ctx context.Context) {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i](ctx)
	}
}
