package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SQLiteOptions)(nil)

// SQLiteMemoryPath selects the in-memory queue backend.
const SQLiteMemoryPath = ":memory:"

// SQLiteOptions configures the on-device pending queue file.
type SQLiteOptions struct {
	// Path of the database file, or SQLiteMemoryPath.
	Path        string        `json:"path" mapstructure:"path"`
	BusyTimeout time.Duration `json:"busy-timeout" mapstructure:"busy-timeout"`
}

func NewSQLiteOptions() *SQLiteOptions {
	return &SQLiteOptions{
		Path:        "/var/lib/rpeer/queue.db",
		BusyTimeout: 5 * time.Second,
	}
}

func (o *SQLiteOptions) Validate() []error {
	errs := []error{}
	if o.Path == "" {
		errs = append(errs, errors.New("sqlite.path is required"))
	}
	if o.BusyTimeout < 0 {
		errs = append(errs, errors.New("sqlite.busy-timeout must not be negative"))
	}
	return errs
}

func (o *SQLiteOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "sqlite.path", o.Path, "Path of the pending queue database (\":memory:\" keeps it in memory).")
	fs.DurationVar(&o.BusyTimeout, "sqlite.busy-timeout", o.BusyTimeout, "How long a write waits on a locked database.")
}
