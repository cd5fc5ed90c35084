package options

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/routepeer-io/routepeer/internal/driveragent"
	"github.com/routepeer-io/routepeer/pkg/app"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
)

const defaultAPIAddr = "127.0.0.1:8480"

type AgentOptions struct {
	DriverID string `json:"driver-id" mapstructure:"driver-id"`
	RouteID  string `json:"route-id" mapstructure:"route-id"`

	HttpOptions   *options.HttpOptions      `json:"http" mapstructure:"http"`
	SQLiteOptions *options.SQLiteOptions    `json:"sqlite" mapstructure:"sqlite"`
	SyncOptions   *options.SyncOptions      `json:"sync" mapstructure:"sync"`
	HubOptions    *options.HubClientOptions `json:"hub" mapstructure:"hub"`
	MqttOptions   *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	Log           *log.Options              `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*AgentOptions)(nil)
	_ app.LogOptionsProvider  = (*AgentOptions)(nil)
)

func NewAgentOptions() *AgentOptions {
	o := &AgentOptions{
		HttpOptions:   options.NewHttpOptions(),
		SQLiteOptions: options.NewSQLiteOptions(),
		SyncOptions:   options.NewSyncOptions(),
		HubOptions:    options.NewHubClientOptions(),
		MqttOptions:   options.NewMqttOptions(),
		Log:           log.NewOptions(),
	}
	o.HttpOptions.Addr = defaultAPIAddr

	return o
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.addDriverFlags(fss.FlagSet("driver"))
	o.HttpOptions.AddFlags(fss.FlagSet("local api"))
	o.SQLiteOptions.AddFlags(fss.FlagSet("queue"))
	o.SyncOptions.AddFlags(fss.FlagSet("sync"))
	o.HubOptions.AddFlags(fss.FlagSet("hub"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *AgentOptions) addDriverFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DriverID, "driver-id", o.DriverID, "Identity of this driver, used for presence. Defaults to the hostname.")
	fs.StringVar(&o.RouteID, "route-id", o.RouteID, "Route assigned to the driver. Its stops are loaded from the hub on every reconnect.")
}

func (o *AgentOptions) Complete() error {
	if o.DriverID == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("no --driver-id given and hostname unavailable: %w", err)
		}
		o.DriverID = host
	}
	if o.SyncOptions.Connectivity == options.ConnectivityMQTT {
		o.MqttOptions.Enabled = true
	}
	return nil
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.SQLiteOptions.Validate()...)
	errs = append(errs, o.SyncOptions.Validate()...)
	errs = append(errs, o.HubOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *AgentOptions) Config() (*driveragent.Config, error) {
	return &driveragent.Config{
		DriverID:      o.DriverID,
		RouteID:       o.RouteID,
		HttpOptions:   o.HttpOptions,
		SQLiteOptions: o.SQLiteOptions,
		SyncOptions:   o.SyncOptions,
		HubOptions:    o.HubOptions,
		MqttOptions:   o.MqttOptions,
	}, nil
}
