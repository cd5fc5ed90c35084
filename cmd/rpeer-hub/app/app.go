package app

import (
	"context"
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/routepeer-io/routepeer/cmd/rpeer-hub/app/options"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
	"github.com/routepeer-io/routepeer/pkg/app"
)

const (
	commandName = "rpeer-hub"
	commandDesc = `The Routepeer hub is the system of record for routes, stops and orders.
It validates every status change against the delivery state machines, stores
proof of delivery photos, accepts driver locations and announces status
changes over MQTT or AMQP.`
)

func NewApp() *app.App {
	opts := options.NewHubOptions()
	application := app.NewApp(
		commandName,
		"Launch the Routepeer hub",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithSubCommands(newTokenCommand(opts)),
		app.WithLoggerContextExtractor(map[string]func(context.Context) string{
			"principal": func(ctx context.Context) string {
				if p, ok := auth.FromContext(ctx); ok {
					return p.Name
				}
				return ""
			},
		}),
	)
	return application
}

func run(opts *options.HubOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		hubServer, err := cfg.NewHubServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create hub server: %w", err)
		}

		return hubServer.Run(ctx)
	}
}
