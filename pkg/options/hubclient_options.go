package options

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HubClientOptions)(nil)

// HubClientOptions tells the driver agent how to reach the dispatch hub.
type HubClientOptions struct {
	BaseURL  string        `json:"base-url" mapstructure:"base-url"`
	GrpcAddr string        `json:"grpc-addr" mapstructure:"grpc-addr"`
	Token    string        `json:"token" mapstructure:"token"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewHubClientOptions() *HubClientOptions {
	return &HubClientOptions{
		BaseURL:  "http://localhost:8443",
		GrpcAddr: "localhost:8091",
		Timeout:  15 * time.Second,
	}
}

func (o *HubClientOptions) Validate() []error {
	errs := []error{}
	if u, err := url.Parse(o.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("hub.base-url %q is not an absolute URL", o.BaseURL))
	}
	if o.Token == "" {
		errs = append(errs, errors.New("hub.token is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("hub.timeout must be positive"))
	}
	return errs
}

func (o *HubClientOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "hub.base-url", o.BaseURL, "Base URL of the hub HTTP API.")
	fs.StringVar(&o.GrpcAddr, "hub.grpc-addr", o.GrpcAddr, "Address of the hub gRPC server, used for health probes.")
	fs.StringVar(&o.Token, "hub.token", o.Token, "Driver bearer token issued by 'rpeer-hub token'.")
	fs.DurationVar(&o.Timeout, "hub.timeout", o.Timeout, "Timeout of a single hub request.")
}
