package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/routepeer-io/routepeer/pkg/log"
)

const (
	configFlagName = "config"
	envPrefix      = "RPEER"
)

// App is a cobra command assembled from options and a run function.
type App struct {
	name        string
	shortDesc   string
	description string

	options     NamedFlagSetOptions
	runFunc     RunFunc
	args        cobra.PositionalArgs
	subCommands []*cobra.Command
	extractors  log.ContextExtractors

	noConfig bool
	watch    bool

	v   *viper.Viper
	cmd *cobra.Command
}

// NewApp builds the command tree. Call Run to execute it.
func NewApp(name string, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		v:         viper.New(),
	}
	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

// Command exposes the root command, mainly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	if !a.noConfig {
		fs := namedFlagSets.FlagSet("global")
		fs.String(configFlagName, "", "Read configuration from this file (yaml, json or toml). Flags and "+envPrefix+"_* environment variables override it.")
	}
	// Persistent, so subcommands read the same configuration.
	for _, f := range namedFlagSets.FlagSets {
		cmd.PersistentFlags().AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}
	for _, sub := range a.subCommands {
		// Subcommands validate only what they use themselves.
		sub.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
			return a.loadOptions(c, false)
		}
		cmd.AddCommand(sub)
	}

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if err := a.loadOptions(cmd, true); err != nil {
		return err
	}

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Info(fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn("Failed to set GOMAXPROCS", "err", err)
	}

	if a.watch && a.v.ConfigFileUsed() != "" {
		a.v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Config file changed, restart to apply", "file", e.Name, "op", e.Op.String())
		})
		a.v.WatchConfig()
	}

	return a.runFunc()
}

// loadOptions merges config file, environment and flags into the options,
// then completes and optionally validates them.
func (a *App) loadOptions(cmd *cobra.Command, validate bool) error {
	v := a.v
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if !a.noConfig {
		if f := cmd.Flags().Lookup(configFlagName); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", f.Value.String(), err)
			}
		}
	}

	if a.options == nil {
		return nil
	}

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	if lp, ok := a.options.(LogOptionsProvider); ok {
		log.Init(lp.LogOptions())
	}
	if a.extractors != nil {
		log.SetContextExtractors(a.extractors)
	}

	if err := a.options.Complete(); err != nil {
		return err
	}
	if validate {
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if f := v.ConfigFileUsed(); f != "" {
		log.Info("Loaded configuration", "file", f)
	}
	return nil
}
