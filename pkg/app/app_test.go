package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/routepeer-io/routepeer/pkg/options"
)

type testOptions struct {
	Http *options.HttpOptions `mapstructure:"http"`
	Sync *options.SyncOptions `mapstructure:"sync"`

	completed bool
}

func (o *testOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.Http.AddFlags(fss.FlagSet("http"))
	o.Sync.AddFlags(fss.FlagSet("sync"))
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error {
	if errs := o.Sync.Validate(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func newTestOptions() *testOptions {
	return &testOptions{Http: options.NewHttpOptions(), Sync: options.NewSyncOptions()}
}

func TestApp_FlagsOverrideDefaults(t *testing.T) {
	opts := newTestOptions()
	var ran bool
	a := NewApp("rpeer-test", "test", WithOptions(opts), WithRunFunc(func() error {
		ran = true
		return nil
	}))

	a.Command().SetArgs([]string{"--http.addr=127.0.0.1:9999", "--sync.interval=5s"})
	require.NoError(t, a.Command().Execute())

	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, "127.0.0.1:9999", opts.Http.Addr)
	assert.Equal(t, 5*time.Second, opts.Sync.Interval)
}

func TestApp_ConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("sync:\n  interval: 45s\n  connectivity: static\n"), 0o600))
	t.Setenv("RPEER_HTTP_ADDR", "127.0.0.1:7000")

	opts := newTestOptions()
	a := NewApp("rpeer-test", "test", WithOptions(opts), WithRunFunc(func() error { return nil }))
	a.Command().SetArgs([]string{"--config", cfg})
	require.NoError(t, a.Command().Execute())

	assert.Equal(t, 45*time.Second, opts.Sync.Interval)
	assert.Equal(t, "static", opts.Sync.Connectivity)
	assert.Equal(t, "127.0.0.1:7000", opts.Http.Addr)
}

func TestApp_ValidationFailureStopsRun(t *testing.T) {
	opts := newTestOptions()
	a := NewApp("rpeer-test", "test", WithOptions(opts), WithRunFunc(func() error {
		return errors.New("must not run")
	}))
	a.Command().SetArgs([]string{"--sync.connectivity=carrier-pigeon"})
	a.Command().SetErr(new(discard))

	err := a.Command().Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestApp_DefaultValidArgs(t *testing.T) {
	a := NewApp("rpeer-test", "test", WithOptions(newTestOptions()), WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	a.Command().SetArgs([]string{"unexpected"})
	a.Command().SetErr(new(discard))
	assert.Error(t, a.Command().Execute())
}

func TestApp_SubCommandSkipsValidation(t *testing.T) {
	opts := newTestOptions()
	var interval time.Duration
	sub := &cobra.Command{
		Use: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval = opts.Sync.Interval
			return nil
		},
	}
	a := NewApp("rpeer-test", "test", WithOptions(opts), WithSubCommands(sub), WithRunFunc(func() error { return nil }))
	a.Command().SetArgs([]string{"inspect", "--sync.interval=2m", "--sync.connectivity=bogus"})
	require.NoError(t, a.Command().Execute())
	assert.Equal(t, 2*time.Minute, interval)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
