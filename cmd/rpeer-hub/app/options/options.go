package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/routepeer-io/routepeer/internal/hub"
	"github.com/routepeer-io/routepeer/pkg/app"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
)

type HubOptions struct {
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	GrpcOptions     *options.GrpcOptions     `json:"grpc" mapstructure:"grpc"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	AMQPOptions     *options.AMQPOptions     `json:"amqp" mapstructure:"amqp"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	PostgresOptions *options.PostgresOptions `json:"postgres" mapstructure:"postgres"`
	JWTOptions      *options.JWTOptions      `json:"jwt" mapstructure:"jwt"`
	LocationOptions *options.LocationOptions `json:"location" mapstructure:"location"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*HubOptions)(nil)
	_ app.LogOptionsProvider  = (*HubOptions)(nil)
)

func NewHubOptions() *HubOptions {
	o := &HubOptions{
		HttpOptions:     options.NewHttpOptions(),
		GrpcOptions:     options.NewGrpcOptions(),
		MqttOptions:     options.NewMqttOptions(),
		AMQPOptions:     options.NewAMQPOptions(),
		S3Options:       options.NewS3Options(),
		PostgresOptions: options.NewPostgresOptions(),
		JWTOptions:      options.NewJWTOptions(),
		LocationOptions: options.NewLocationOptions(),
		Log:             log.NewOptions(),
	}
	o.MqttOptions.ClientID = "rpeer-hub"

	return o
}

func (o *HubOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.PostgresOptions.AddFlags(fss.FlagSet("postgres"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.AMQPOptions.AddFlags(fss.FlagSet("amqp"))
	o.JWTOptions.AddFlags(fss.FlagSet("jwt"))
	o.LocationOptions.AddFlags(fss.FlagSet("location"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *HubOptions) Complete() error {
	return nil
}

func (o *HubOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.PostgresOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.AMQPOptions.Validate()...)
	errs = append(errs, o.JWTOptions.Validate()...)
	errs = append(errs, o.LocationOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *HubOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *HubOptions) Config() (*hub.Config, error) {
	return &hub.Config{
		HttpOptions:     o.HttpOptions,
		GrpcOptions:     o.GrpcOptions,
		MqttOptions:     o.MqttOptions,
		AMQPOptions:     o.AMQPOptions,
		S3Options:       o.S3Options,
		PostgresOptions: o.PostgresOptions,
		JWTOptions:      o.JWTOptions,
		LocationOptions: o.LocationOptions,
	}, nil
}
