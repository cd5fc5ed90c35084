package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*LocationOptions)(nil)

// LocationOptions bounds how fast the hub accepts location pings per driver.
type LocationOptions struct {
	MinInterval time.Duration `json:"min-interval" mapstructure:"min-interval"`
	// Burst lets an agent coming back online drain queued pings.
	Burst int `json:"burst" mapstructure:"burst"`
}

func NewLocationOptions() *LocationOptions {
	return &LocationOptions{
		MinInterval: time.Second,
		Burst:       60,
	}
}

func (o *LocationOptions) Validate() []error {
	errs := []error{}
	if o.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("location.min-interval must not be negative, got %s", o.MinInterval))
	}
	if o.Burst < 1 {
		errs = append(errs, fmt.Errorf("location.burst must be at least 1, got %d", o.Burst))
	}
	return errs
}

func (o *LocationOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.MinInterval, "location.min-interval", o.MinInterval, "Minimum interval between accepted location pings of one driver. 0 disables the limit.")
	fs.IntVar(&o.Burst, "location.burst", o.Burst, "Pings a driver may send back to back before the interval applies.")
}
