package driveragent

import (
	"context"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/driveragent/actions"
	"github.com/routepeer-io/routepeer/internal/driveragent/connectivity"
	"github.com/routepeer-io/routepeer/internal/driveragent/orchestrator"
	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/driveragent/remote"
	"github.com/routepeer-io/routepeer/internal/driveragent/server"
	"github.com/routepeer-io/routepeer/internal/driveragent/syncer"
	hubgrpc "github.com/routepeer-io/routepeer/internal/hub/server/grpc"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/mqtt"
	mqtttopic "github.com/routepeer-io/routepeer/pkg/mqtt/topic"
	"github.com/routepeer-io/routepeer/pkg/options"
)

type Config struct {
	DriverID string
	// RouteID is the route assigned to the driver, if known at start.
	RouteID string

	HttpOptions   *options.HttpOptions
	SQLiteOptions *options.SQLiteOptions
	SyncOptions   *options.SyncOptions
	HubOptions    *options.HubClientOptions
	MqttOptions   *options.MqttOptions
}

func (cfg *Config) NewAgent(ctx context.Context) (*Agent, error) {
	// 1. Local durable queue
	q := queue.New(cfg.OpenBackend(ctx))

	// 2. Hub client and sync engine
	hub, err := remote.NewClient(cfg.HubOptions.BaseURL, cfg.HubOptions.Token, cfg.HubOptions.Timeout)
	if err != nil {
		_ = q.Close()
		return nil, err
	}
	engine, err := syncer.NewEngine(syncer.Config{LocationMaxAge: cfg.SyncOptions.LocationMaxAge}, q, hub)
	if err != nil {
		_ = q.Close()
		return nil, fmt.Errorf("failed to init sync engine: %w", err)
	}

	// 3. Connectivity source
	source, err := cfg.newSource()
	if err != nil {
		_ = q.Close()
		return nil, fmt.Errorf("failed to init connectivity source: %w", err)
	}

	// 4. Orchestrator and driver actions. The recorder nudges the
	// orchestrator, which refreshes the recorder on reconnect.
	recorder := actions.NewRecorder(q, actions.WithStopLister(hub))
	orch := orchestrator.New(
		orchestrator.Config{SyncInterval: cfg.SyncOptions.Interval, NoticeTTL: cfg.SyncOptions.NoticeTTL},
		engine, q, source,
		orchestrator.WithOnConnect(func(ctx context.Context) {
			if cfg.RouteID == "" {
				return
			}
			if err := recorder.RefreshProjection(ctx, cfg.RouteID); err != nil {
				log.Warn("Could not refresh route from hub", "route", cfg.RouteID, "err", err)
			}
		}),
	)
	actions.WithNudger(orch)(recorder)

	// 5. Local API
	srv := server.NewServer(cfg.HttpOptions, recorder, orch, q)

	return &Agent{
		driverID:     cfg.DriverID,
		queue:        q,
		orchestrator: orch,
		server:       srv,
	}, nil
}

// OpenBackend opens the SQLite queue file. When that fails the agent keeps
// working on an in-memory queue, which loses items on restart.
func (cfg *Config) OpenBackend(ctx context.Context) queue.Backend {
	if cfg.SQLiteOptions.Path == options.SQLiteMemoryPath {
		return queue.NewMemoryBackend()
	}

	b, err := queue.OpenSQLite(ctx, cfg.SQLiteOptions.Path, cfg.SQLiteOptions.BusyTimeout)
	if err != nil {
		log.Error(err, "Durable queue unavailable, falling back to an in-memory queue", "path", cfg.SQLiteOptions.Path)
		return queue.NewMemoryBackend()
	}
	return b
}

func (cfg *Config) newSource() (connectivity.Source, error) {
	switch cfg.SyncOptions.Connectivity {
	case options.ConnectivityStatic:
		return connectivity.NewStatic(cfg.SyncOptions.StaticOnline), nil
	case options.ConnectivityMQTT:
		return cfg.newBrokerSource()
	default:
		return connectivity.NewHealthProbe(cfg.HubOptions.GrpcAddr, cfg.SyncOptions.ProbeInterval, cfg.HubOptions.Timeout,
			connectivity.WithService(hubgrpc.ServiceName))
	}
}

func (cfg *Config) newBrokerSource() (connectivity.Source, error) {
	topics := mqtttopic.NewTopicBuilder(cfg.MqttOptions.TopicRoot)
	presence := topics.DriverPresence(cfg.DriverID)

	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("rpeer-driver-%s", cfg.DriverID)
	}

	mqttConfig.WillTopic = presence
	mqttConfig.WillPayload = connectivity.PresencePayload(cfg.DriverID, false, "UnexpectedDisconnect")
	mqttConfig.WillQoS = 1
	mqttConfig.WillRetain = true

	client, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		return nil, err
	}
	return connectivity.NewBroker(client, cfg.DriverID, presence), nil
}
