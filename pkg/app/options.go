package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/routepeer-io/routepeer/pkg/log"
)

// NamedFlagSetOptions is implemented by the options of every binary.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section for help output.
	Flags() cliflag.NamedFlagSets

	// Complete fills in derived fields after flags and config are loaded.
	Complete() error

	// Validate reports invalid values, aggregated.
	Validate() error
}

// LogOptionsProvider is implemented by options that carry log settings.
// The App initializes the global logger from them before RunFunc runs.
type LogOptionsProvider interface {
	LogOptions() *log.Options
}

// RunFunc is the entrypoint of a binary once options are ready.
type RunFunc func() error

// Option customizes an App.
type Option func(*App)

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithNoConfig removes the --config flag.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// WithWatchConfig reloads nothing but logs every change of the config file,
// so operators know a restart is due.
func WithWatchConfig() Option {
	return func(a *App) { a.watch = true }
}

// WithSubCommands attaches extra commands, e.g. maintenance helpers.
func WithSubCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.subCommands = append(a.subCommands, cmds...) }
}

// WithLoggerContextExtractor installs the values log.W reads from a context.
func WithLoggerContextExtractor(ex map[string]func(context.Context) string) Option {
	return func(a *App) { a.extractors = ex }
}
