// Package config loads the immutable benchmark configuration from flags,
// environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BrokerKafka  = "kafka"
	BrokerMemory = "memory"
)

// BreakerMode selects how the error circuit breaker reads the error counter.
type BreakerMode string

const (
	// BreakerWindowed trips on errors accumulated since the previous check.
	BreakerWindowed BreakerMode = "windowed"
	// BreakerCumulative trips on the total error count since start.
	BreakerCumulative BreakerMode = "cumulative"
)

var (
	ErrMissingBrokers = errors.New("no bootstrap servers configured")
	ErrMissingTopic   = errors.New("no topic configured")
	ErrNoWorkers      = errors.New("at least one producer or consumer is required")
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	Broker       string
	DummyProfile string
	Brokers      []string
	Topic        string

	Producers   int
	Consumers   int
	MessageSize int

	Throughput       uint64
	AutoIncrease     bool
	IncreaseInterval time.Duration
	IncreaseFactor   uint64

	ErrorThreshold  uint64
	BreakerInterval time.Duration
	BreakerMode     BreakerMode

	ReportInterval time.Duration
	SendTimeout    time.Duration
	PollTimeout    time.Duration
	Duration       time.Duration

	TLS  *TLSConfig
	SASL *SASLConfig

	CreateTopic       bool
	Partitions        int32
	ReplicationFactor int16

	Log          LogConfig
	OTLPEndpoint string
	TUI          bool
}

// TLSConfig holds file locations; the broker client turns them into a
// tls.Config.
type TLSConfig struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

type SASLConfig struct {
	Username  string
	Password  string
	Mechanism string
}

type LogConfig struct {
	Level  string
	Format string
}

var saslMechanisms = []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"}

// Load reads every setting from v. Values that are present but cannot be
// parsed are reported as errors instead of silently falling back to defaults.
func Load(v *viper.Viper) (Config, error) {
	var errs []error
	p := parser{v: v, errs: &errs}

	cfg := Config{
		Broker:       strings.ToLower(p.str(KeyBroker)),
		DummyProfile: p.str(KeyDummyProfile),
		Brokers:      splitList(p.str(KeyBrokers)),
		Topic:        p.str(KeyTopic),

		Producers:   p.int(KeyProducers),
		Consumers:   p.int(KeyConsumers),
		MessageSize: p.int(KeyMessageSize),

		Throughput:       p.uint64(KeyThroughput),
		AutoIncrease:     p.bool(KeyAutoIncrease),
		IncreaseInterval: p.duration(KeyIncreaseInterval),
		IncreaseFactor:   p.uint64(KeyIncreaseFactor),

		ErrorThreshold:  p.uint64(KeyErrorThreshold),
		BreakerInterval: p.duration(KeyBreakerInterval),
		BreakerMode:     BreakerMode(strings.ToLower(p.str(KeyBreakerMode))),

		ReportInterval: p.duration(KeyReportInterval),
		SendTimeout:    p.duration(KeySendTimeout),
		PollTimeout:    p.duration(KeyPollTimeout),
		Duration:       p.duration(KeyDuration),

		CreateTopic:       p.bool(KeyCreateTopic),
		Partitions:        int32(p.bounded(KeyPartitions, math.MinInt32, math.MaxInt32)),
		ReplicationFactor: int16(p.bounded(KeyReplicationFactor, math.MinInt16, math.MaxInt16)),

		Log: LogConfig{
			Level:  strings.ToLower(p.str(KeyLogLevel)),
			Format: strings.ToLower(p.str(KeyLogFormat)),
		},
		OTLPEndpoint: p.str(KeyOTLPEndpoint),
		TUI:          p.bool(KeyTUI),
	}

	if ca, cert, key := p.str(KeyTLSCA), p.str(KeyTLSCert), p.str(KeyTLSKey); ca != "" || cert != "" || key != "" {
		cfg.TLS = &TLSConfig{CAFile: ca, CertFile: cert, KeyFile: key}
	}
	if user, pass, mech := p.str(KeySASLUsername), p.str(KeySASLPassword), p.str(KeySASLMechanism); user != "" || pass != "" {
		cfg.SASL = &SASLConfig{Username: user, Password: pass, Mechanism: strings.ToUpper(mech)}
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Broker {
	case BrokerKafka:
		if len(c.Brokers) == 0 {
			errs = append(errs, ErrMissingBrokers)
		}
	case BrokerMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown broker %q (want %s or %s)", c.Broker, BrokerKafka, BrokerMemory))
	}
	if c.Topic == "" {
		errs = append(errs, ErrMissingTopic)
	}
	if c.Producers < 0 || c.Consumers < 0 {
		errs = append(errs, fmt.Errorf("worker counts must not be negative (producers=%d consumers=%d)", c.Producers, c.Consumers))
	} else if c.Producers+c.Consumers == 0 {
		errs = append(errs, ErrNoWorkers)
	}
	if c.MessageSize < 0 {
		errs = append(errs, fmt.Errorf("message size must not be negative, got %d", c.MessageSize))
	}
	if c.Throughput < 1 {
		errs = append(errs, errors.New("throughput must be at least 1 msg/s"))
	}
	if c.IncreaseFactor < 1 {
		errs = append(errs, errors.New("increase factor must be at least 1"))
	}
	for name, d := range map[string]time.Duration{
		KeyIncreaseInterval: c.IncreaseInterval,
		KeyBreakerInterval:  c.BreakerInterval,
		KeyReportInterval:   c.ReportInterval,
		KeySendTimeout:      c.SendTimeout,
		KeyPollTimeout:      c.PollTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must not be negative, got %s", c.Duration))
	}
	switch c.BreakerMode {
	case BreakerWindowed, BreakerCumulative:
	default:
		errs = append(errs, fmt.Errorf("unknown breaker mode %q", c.BreakerMode))
	}
	if c.TLS != nil && (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls cert and key must be set together"))
	}
	if c.SASL != nil {
		if c.SASL.Username == "" || c.SASL.Password == "" {
			errs = append(errs, errors.New("sasl username and password must be set together"))
		}
		if !contains(saslMechanisms, c.SASL.Mechanism) {
			errs = append(errs, fmt.Errorf("unsupported sasl mechanism %q (want one of %s)", c.SASL.Mechanism, strings.Join(saslMechanisms, ", ")))
		}
	}
	if c.CreateTopic && (c.Partitions < 1 || c.ReplicationFactor < 1) {
		errs = append(errs, errors.New("partitions and replication factor must be positive when creating the topic"))
	}

	return errors.Join(errs...)
}

// RegisterFlags declares every setting on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, s := range settings {
		switch d := s.def.(type) {
		case string:
			fs.StringP(s.flag(), s.short, d, s.usage)
		case int:
			fs.IntP(s.flag(), s.short, d, s.usage)
		case bool:
			fs.BoolP(s.flag(), s.short, d, s.usage)
		case time.Duration:
			fs.DurationP(s.flag(), s.short, d, s.usage)
		}
	}
}

// Bind wires defaults, environment variables and the flags registered by
// RegisterFlags into v. Precedence follows viper: flag > env > file > default.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if len(s.env) > 0 {
			if err := v.BindEnv(append([]string{s.key}, s.env...)...); err != nil {
				return fmt.Errorf("bind env for %s: %w", s.key, err)
			}
		}
		if f := fs.Lookup(s.flag()); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return fmt.Errorf("bind flag for %s: %w", s.key, err)
			}
		}
	}
	return nil
}

type parser struct {
	v    *viper.Viper
	errs *[]error
}

func (p parser) fail(key string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
}

func (p parser) str(key string) string {
	s, err := cast.ToStringE(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return strings.TrimSpace(s)
}

func (p parser) int(key string) int {
	n, err := cast.ToIntE(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return n
}

// bounded parses an int that must fit a narrower integer type.
func (p parser) bounded(key string, lo, hi int64) int64 {
	n, err := cast.ToInt64E(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if n < lo || n > hi {
		p.fail(key, fmt.Errorf("out of range [%d, %d], got %d", lo, hi, n))
		return 0
	}
	return n
}

func (p parser) uint64(key string) uint64 {
	n, err := cast.ToInt64E(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if n < 0 {
		p.fail(key, fmt.Errorf("must not be negative, got %d", n))
		return 0
	}
	return uint64(n)
}

func (p parser) bool(key string) bool {
	b, err := cast.ToBoolE(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return b
}

func (p parser) duration(key string) time.Duration {
	d, err := cast.ToDurationE(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
