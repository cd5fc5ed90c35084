package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*PostgresOptions)(nil)

// PostgresOptions configures the hub's system of record.
type PostgresOptions struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"ssl-mode" mapstructure:"ssl-mode"`

	MaxConns        int32         `json:"max-conns" mapstructure:"max-conns"`
	ConnMaxLifetime time.Duration `json:"conn-max-lifetime" mapstructure:"conn-max-lifetime"`

	// ApplySchema creates missing tables at startup.
	ApplySchema bool `json:"apply-schema" mapstructure:"apply-schema"`
}

func NewPostgresOptions() *PostgresOptions {
	return &PostgresOptions{
		Host:            "localhost",
		Port:            5432,
		User:            "routepeer",
		Database:        "routepeer",
		SSLMode:         "disable",
		MaxConns:        10,
		ConnMaxLifetime: 30 * time.Minute,
		ApplySchema:     true,
	}
}

// DSN renders the options as a postgres:// connection string.
func (o *PostgresOptions) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_max_conn_lifetime=%s",
		o.User, o.Password, o.Host, o.Port, o.Database, o.SSLMode, o.MaxConns, o.ConnMaxLifetime)
}

func (o *PostgresOptions) Validate() []error {
	errs := []error{}
	if o.Host == "" {
		errs = append(errs, errors.New("postgres.host is required"))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("postgres.port out of range: %d", o.Port))
	}
	if o.Database == "" {
		errs = append(errs, errors.New("postgres.database is required"))
	}
	if o.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("postgres.max-conns must be positive, got %d", o.MaxConns))
	}
	return errs
}

func (o *PostgresOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Host, "postgres.host", o.Host, "PostgreSQL host.")
	fs.IntVar(&o.Port, "postgres.port", o.Port, "PostgreSQL port.")
	fs.StringVar(&o.User, "postgres.user", o.User, "PostgreSQL user.")
	fs.StringVar(&o.Password, "postgres.password", o.Password, "PostgreSQL password.")
	fs.StringVar(&o.Database, "postgres.database", o.Database, "PostgreSQL database name.")
	fs.StringVar(&o.SSLMode, "postgres.ssl-mode", o.SSLMode, "PostgreSQL sslmode (disable, require, verify-full).")
	fs.Int32Var(&o.MaxConns, "postgres.max-conns", o.MaxConns, "Maximum size of the connection pool.")
	fs.DurationVar(&o.ConnMaxLifetime, "postgres.conn-max-lifetime", o.ConnMaxLifetime, "Maximum lifetime of a pooled connection.")
	fs.BoolVar(&o.ApplySchema, "postgres.apply-schema", o.ApplySchema, "Create missing tables at startup.")
}
