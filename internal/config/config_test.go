package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	v := viper.New()
	require.NoError(t, Bind(v, fs))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOOTSTRAP_SERVERS", "localhost:9092, localhost:9093")
	t.Setenv("TOPIC", "bench")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, BrokerKafka, cfg.Broker)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Brokers)
	assert.Equal(t, "bench", cfg.Topic)
	assert.Equal(t, 4, cfg.Producers)
	assert.Equal(t, 1, cfg.Consumers)
	assert.Equal(t, 200, cfg.MessageSize)
	assert.Equal(t, uint64(10000), cfg.Throughput)
	assert.False(t, cfg.AutoIncrease)
	assert.Equal(t, 30*time.Second, cfg.IncreaseInterval)
	assert.Equal(t, uint64(2), cfg.IncreaseFactor)
	assert.Equal(t, uint64(50), cfg.ErrorThreshold)
	assert.Equal(t, 5*time.Second, cfg.BreakerInterval)
	assert.Equal(t, BreakerWindowed, cfg.BreakerMode)
	assert.Equal(t, time.Second, cfg.ReportInterval)
	assert.Equal(t, time.Second, cfg.SendTimeout)
	assert.Nil(t, cfg.TLS)
	assert.Nil(t, cfg.SASL)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TOPIC", "from-env")
	t.Setenv("THROUGHPUT", "100")

	cfg, err := Load(newViper(t, "--broker", "memory", "--topic", "from-flag", "--auto-increase", "--breaker-mode", "cumulative"))
	require.NoError(t, err)

	assert.Equal(t, BrokerMemory, cfg.Broker)
	assert.Equal(t, "from-flag", cfg.Topic)
	assert.Equal(t, uint64(100), cfg.Throughput)
	assert.True(t, cfg.AutoIncrease)
	assert.Equal(t, BreakerCumulative, cfg.BreakerMode)
}

func TestLoad_UnparsableValueIsFatal(t *testing.T) {
	t.Setenv("BOOTSTRAP_SERVERS", "localhost:9092")
	t.Setenv("TOPIC", "bench")
	t.Setenv("PRODUCER_NUM_THREADS", "many")

	_, err := Load(newViper(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyProducers)
}

func TestLoad_TopicSettingsOutOfRange(t *testing.T) {
	t.Setenv("BOOTSTRAP_SERVERS", "localhost:9092")
	t.Setenv("TOPIC", "bench")

	tests := []struct {
		name string
		args []string
		key  string
	}{
		{"partitions", []string{"--partitions", "4294967297"}, KeyPartitions},
		{"replication factor", []string{"--replication-factor", "65537"}, KeyReplicationFactor},
		{"negative replication factor", []string{"--replication-factor", "-40000"}, KeyReplicationFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
			assert.Contains(t, err.Error(), "out of range")
		})
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(newViper(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingBrokers)
	assert.ErrorIs(t, err, ErrMissingTopic)
}

func TestLoad_SecuritySettings(t *testing.T) {
	t.Setenv("BOOTSTRAP_SERVERS", "localhost:9092")
	t.Setenv("TOPIC", "bench")
	t.Setenv("SSL_CA_LOCATION", "/etc/ca.pem")
	t.Setenv("SASL_USERNAME", "user")
	t.Setenv("SASL_PASSWORD", "secret")
	t.Setenv("SASL_MECHANISM", "scram-sha-512")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	require.NotNil(t, cfg.TLS)
	assert.Equal(t, "/etc/ca.pem", cfg.TLS.CAFile)
	require.NotNil(t, cfg.SASL)
	assert.Equal(t, "SCRAM-SHA-512", cfg.SASL.Mechanism)
}

func validConfig() Config {
	return Config{
		Broker:           BrokerMemory,
		Topic:            "bench",
		Producers:        1,
		Consumers:        1,
		MessageSize:      10,
		Throughput:       10,
		IncreaseInterval: time.Second,
		IncreaseFactor:   2,
		ErrorThreshold:   50,
		BreakerInterval:  time.Second,
		BreakerMode:      BreakerWindowed,
		ReportInterval:   time.Second,
		SendTimeout:      time.Second,
		PollTimeout:      time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "only consumers", mutate: func(c *Config) { c.Producers = 0 }, ok: true},
		{name: "no workers", mutate: func(c *Config) { c.Producers, c.Consumers = 0, 0 }},
		{name: "zero throughput", mutate: func(c *Config) { c.Throughput = 0 }},
		{name: "zero factor", mutate: func(c *Config) { c.IncreaseFactor = 0 }},
		{name: "zero report interval", mutate: func(c *Config) { c.ReportInterval = 0 }},
		{name: "negative duration", mutate: func(c *Config) { c.Duration = -time.Second }},
		{name: "bad breaker mode", mutate: func(c *Config) { c.BreakerMode = "sliding" }},
		{name: "unknown broker", mutate: func(c *Config) { c.Broker = "pulsar" }},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Broker = BrokerKafka }},
		{name: "cert without key", mutate: func(c *Config) { c.TLS = &TLSConfig{CertFile: "c.pem"} }},
		{name: "sasl without password", mutate: func(c *Config) { c.SASL = &SASLConfig{Username: "u", Mechanism: "PLAIN"} }},
		{name: "sasl bad mechanism", mutate: func(c *Config) { c.SASL = &SASLConfig{Username: "u", Password: "p", Mechanism: "GSSAPI"} }},
		{name: "create topic without partitions", mutate: func(c *Config) { c.CreateTopic = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
