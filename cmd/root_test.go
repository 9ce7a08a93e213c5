package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerbench/internal/config"
	"brokerbench/internal/runner"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	v := viper.New()
	require.NoError(t, config.Bind(v, fs))
	return v
}

func TestRun_MemoryBroker(t *testing.T) {
	v := newViper(t,
		"--broker", "memory",
		"--topic", "bench",
		"--producers", "2",
		"--throughput", "100",
		"--duration", "200ms",
		"--report-interval", "50ms",
		"--log-level", "error",
	)
	assert.NoError(t, run(context.Background(), v))
}

func TestRun_BreakerTripIsAnError(t *testing.T) {
	v := newViper(t,
		"--broker", "memory",
		"--dummy-profile", "down",
		"--topic", "bench",
		"--throughput", "1000",
		"--breaker-interval", "100ms",
		"--log-level", "error",
	)
	assert.ErrorIs(t, run(context.Background(), v), runner.ErrBreakerTripped)
}

func TestRun_InvalidConfiguration(t *testing.T) {
	v := newViper(t, "--broker", "memory", "--producers", "-1")
	err := run(context.Background(), v)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingTopic)
}

func TestRun_UnknownDummyProfile(t *testing.T) {
	v := newViper(t, "--broker", "memory", "--topic", "bench", "--dummy-profile", "flaky")
	assert.Error(t, run(context.Background(), v))
}

func TestDummyCommandListsProfiles(t *testing.T) {
	var out bytes.Buffer
	dummyCmd.SetOut(&out)
	dummyCmd.Run(dummyCmd, nil)

	for _, name := range []string{"fast", "medium", "slow", "spike", "error", "down"} {
		assert.Contains(t, out.String(), name)
	}
}
