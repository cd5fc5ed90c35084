package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Connectivity sources understood by the driver agent.
const (
	ConnectivityMQTT   = "mqtt"
	ConnectivityGRPC   = "grpc"
	ConnectivityStatic = "static"
)

var _ IOptions = (*SyncOptions)(nil)

// SyncOptions tunes the driver agent's sync loop.
type SyncOptions struct {
	Interval       time.Duration `json:"interval" mapstructure:"interval"`
	LocationMaxAge time.Duration `json:"location-max-age" mapstructure:"location-max-age"`
	NoticeTTL      time.Duration `json:"notice-ttl" mapstructure:"notice-ttl"`

	Connectivity  string        `json:"connectivity" mapstructure:"connectivity"`
	ProbeInterval time.Duration `json:"probe-interval" mapstructure:"probe-interval"`
	// StaticOnline is the fixed state reported by the static source.
	StaticOnline bool `json:"static-online" mapstructure:"static-online"`
}

func NewSyncOptions() *SyncOptions {
	return &SyncOptions{
		Interval:       30 * time.Second,
		LocationMaxAge: time.Hour,
		NoticeTTL:      3 * time.Second,
		Connectivity:   ConnectivityGRPC,
		ProbeInterval:  10 * time.Second,
		StaticOnline:   true,
	}
}

func (o *SyncOptions) Validate() []error {
	errs := []error{}
	if o.Interval <= 0 {
		errs = append(errs, fmt.Errorf("sync.interval must be positive, got %s", o.Interval))
	}
	if o.LocationMaxAge < 0 {
		errs = append(errs, fmt.Errorf("sync.location-max-age must not be negative, got %s", o.LocationMaxAge))
	}
	switch o.Connectivity {
	case ConnectivityMQTT, ConnectivityStatic:
	case ConnectivityGRPC:
		if o.ProbeInterval <= 0 {
			errs = append(errs, fmt.Errorf("sync.probe-interval must be positive, got %s", o.ProbeInterval))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sync.connectivity %q", o.Connectivity))
	}
	return errs
}

func (o *SyncOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Interval, "sync.interval", o.Interval, "Interval between background sync passes while online.")
	fs.DurationVar(&o.LocationMaxAge, "sync.location-max-age", o.LocationMaxAge, "Queued location pings older than this are dropped instead of sent. 0 keeps all.")
	fs.DurationVar(&o.NoticeTTL, "sync.notice-ttl", o.NoticeTTL, "How long the 'synced' notice stays visible after a clean pass.")
	fs.StringVar(&o.Connectivity, "sync.connectivity", o.Connectivity, "Connectivity source: mqtt, grpc or static.")
	fs.DurationVar(&o.ProbeInterval, "sync.probe-interval", o.ProbeInterval, "Interval of the gRPC health probe.")
	fs.BoolVar(&o.StaticOnline, "sync.static-online", o.StaticOnline, "Online state reported by the static connectivity source.")
}
