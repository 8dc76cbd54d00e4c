package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/blurcam/cmd/blurcam-agent/app/options"
	"github.com/autopeer-io/blurcam/pkg/app"
	"github.com/autopeer-io/blurcam/pkg/log"
)

const (
	commandName = "blurcam-agent"
	commandDesc = `The blurcam agent runs on the camera. It accepts camera commands over
HTTP, captures pictures, blurs faces before anything leaves the device,
and uploads or archives the results.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	application := app.NewApp(
		commandName,
		"Launch the blurcam camera agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithWatchConfig(),
		app.WithCommands(newRulesCommand()),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		return agent.Run(ctx)
	}
}
