package hub

import (
	"context"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/service"
	"github.com/routepeer-io/routepeer/internal/hub/notifier"
	"github.com/routepeer-io/routepeer/internal/hub/server"
	"github.com/routepeer-io/routepeer/internal/hub/server/grpc"
	"github.com/routepeer-io/routepeer/internal/hub/server/http"
	"github.com/routepeer-io/routepeer/internal/hub/storage"
	"github.com/routepeer-io/routepeer/internal/hub/store/postgres"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
)

type Config struct {
	HttpOptions     *options.HttpOptions
	GrpcOptions     *options.GrpcOptions
	MqttOptions     *options.MqttOptions
	AMQPOptions     *options.AMQPOptions
	S3Options       *options.S3Options
	PostgresOptions *options.PostgresOptions
	JWTOptions      *options.JWTOptions
	LocationOptions *options.LocationOptions
}

func (cfg *Config) NewHubServer(ctx context.Context) (*HubServer, error) {
	h := &HubServer{}

	// 1. Infrastructure: Repository (Secondary Adapter)
	store, err := postgres.Open(ctx, cfg.PostgresOptions)
	if err != nil {
		return nil, err
	}
	h.closers = append(h.closers, func(context.Context) { store.Close() })

	// 2. Infrastructure: Storage (Secondary Adapter)
	photos, err := storage.NewMinIOStorage(cfg.S3Options)
	if err != nil {
		h.close(ctx)
		return nil, err
	}
	if err := photos.CheckBucket(ctx); err != nil {
		h.close(ctx)
		return nil, err
	}

	// 3. Infrastructure: Notifier (Secondary Adapter)
	statusNotifier, err := cfg.newNotifier(ctx, h)
	if err != nil {
		h.close(ctx)
		return nil, fmt.Errorf("failed to init notifier: %w", err)
	}

	// 4. Core Domain Service (The Business Logic)
	svc := service.New(store, statusNotifier, photos,
		service.WithLocationLimit(cfg.LocationOptions.MinInterval, cfg.LocationOptions.Burst))

	// 5. Ingress Servers (Primary Adapters)
	httpSrv := http.NewServer(cfg.HttpOptions, cfg.JWTOptions, svc, store)
	grpcSrv := grpc.NewServer(cfg.GrpcOptions)
	h.manager = server.NewManager(httpSrv, grpcSrv)

	return h, nil
}

// newNotifier builds one notifier per enabled transport.
func (cfg *Config) newNotifier(ctx context.Context, h *HubServer) (core.StatusNotifier, error) {
	var ns []core.StatusNotifier

	if cfg.MqttOptions.Enabled {
		n, err := notifier.NewMQTTNotifier(ctx, cfg.MqttOptions)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, n.Close)
		ns = append(ns, n)
	}
	if cfg.AMQPOptions.Enabled {
		n, err := notifier.NewAMQPNotifier(cfg.AMQPOptions)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, func(context.Context) { n.Close() })
		ns = append(ns, n)
	}

	if len(ns) == 0 {
		log.Warn("No notifier transport enabled, status changes are not announced")
	}
	return notifier.Combine(ns...), nil
}
