package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*JWTOptions)(nil)

// JWTOptions holds the shared secret used to sign and verify bearer tokens.
type JWTOptions struct {
	Secret string `json:"secret" mapstructure:"secret"`

	// TokenTTL is the lifetime of tokens minted by the token subcommand.
	TokenTTL time.Duration `json:"token-ttl" mapstructure:"token-ttl"`
}

func NewJWTOptions() *JWTOptions {
	return &JWTOptions{
		TokenTTL: 7 * 24 * time.Hour,
	}
}

func (o *JWTOptions) Validate() []error {
	errs := []error{}
	if o.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if o.TokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.token-ttl must be positive"))
	}
	return errs
}

func (o *JWTOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Secret, "jwt.secret", o.Secret, "HS256 secret used to sign and verify bearer tokens.")
	fs.DurationVar(&o.TokenTTL, "jwt.token-ttl", o.TokenTTL, "Lifetime of issued tokens.")
}
