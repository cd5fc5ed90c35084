package app

import (
	"context"
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/routepeer-io/routepeer/cmd/rpeer-driver-agent/app/options"
	"github.com/routepeer-io/routepeer/pkg/app"
)

const (
	commandName = "rpeer-driver-agent"
	commandDesc = `The Routepeer driver agent runs on the driver's device. It records stop
status changes, proof of delivery photos and location pings in a local queue
and syncs them to rpeer-hub whenever the hub is reachable, so drivers keep
working without a connection.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	application := app.NewApp(
		commandName,
		"Launch a Routepeer driver agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithSubCommands(newPendingCommand(opts)),
		app.WithLoggerContextExtractor(map[string]func(context.Context) string{}),
	)
	return application
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent(ctx)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		return agent.Run(ctx)
	}
}
