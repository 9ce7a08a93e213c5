package config

import (
	"strings"
	"time"
)

// Setting keys as used in config files and viper.
const (
	KeyBroker            = "broker"
	KeyDummyProfile      = "dummy-profile"
	KeyBrokers           = "brokers"
	KeyTopic             = "topic"
	KeyProducers         = "producers"
	KeyConsumers         = "consumers"
	KeyMessageSize       = "msg-size"
	KeyThroughput        = "throughput"
	KeyAutoIncrease      = "auto-increase"
	KeyIncreaseInterval  = "increase-interval"
	KeyIncreaseFactor    = "increase-factor"
	KeyErrorThreshold    = "error-threshold"
	KeyBreakerInterval   = "breaker-interval"
	KeyBreakerMode       = "breaker-mode"
	KeyReportInterval    = "report-interval"
	KeySendTimeout       = "send-timeout"
	KeyPollTimeout       = "poll-timeout"
	KeyDuration          = "duration"
	KeyTLSCA             = "tls.ca"
	KeyTLSCert           = "tls.cert"
	KeyTLSKey            = "tls.key"
	KeySASLUsername      = "sasl.username"
	KeySASLPassword      = "sasl.password"
	KeySASLMechanism     = "sasl.mechanism"
	KeyCreateTopic       = "create-topic"
	KeyPartitions        = "partitions"
	KeyReplicationFactor = "replication-factor"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyOTLPEndpoint      = "otlp-endpoint"
	KeyTUI               = "tui"
)

type setting struct {
	key   string
	short string
	env   []string
	def   any
	usage string
}

// flag maps nested keys (tls.ca) to flag names (tls-ca).
func (s setting) flag() string {
	return strings.ReplaceAll(s.key, ".", "-")
}

var settings = []setting{
	{key: KeyBroker, short: "b", env: []string{"BROKER"}, def: BrokerKafka, usage: "Broker client: kafka or memory"},
	{key: KeyDummyProfile, env: []string{"DUMMY_PROFILE"}, def: "fast", usage: "Behaviour of the memory broker (see 'dummy' command)"},
	{key: KeyBrokers, env: []string{"BOOTSTRAP_SERVERS"}, def: "", usage: "Comma-separated bootstrap servers"},
	{key: KeyTopic, short: "t", env: []string{"TOPIC"}, def: "", usage: "Topic to produce to and consume from"},
	{key: KeyProducers, short: "p", env: []string{"PRODUCER_NUM_THREADS"}, def: 4, usage: "Number of producer workers"},
	{key: KeyConsumers, short: "c", env: []string{"CONSUMER_NUM_THREADS"}, def: 1, usage: "Number of consumer workers"},
	{key: KeyMessageSize, short: "s", env: []string{"MSG_SIZE"}, def: 200, usage: "Payload size in bytes"},
	{key: KeyThroughput, short: "r", env: []string{"THROUGHPUT"}, def: 10000, usage: "Initial target throughput per producer (msg/s)"},
	{key: KeyAutoIncrease, env: []string{"AUTO_INCREASE"}, def: false, usage: "Periodically multiply the target throughput"},
	{key: KeyIncreaseInterval, env: []string{"INCREASE_INTERVAL"}, def: 30 * time.Second, usage: "Interval between throughput increases"},
	{key: KeyIncreaseFactor, env: []string{"INCREASE_FACTOR"}, def: 2, usage: "Throughput multiplier per increase"},
	{key: KeyErrorThreshold, env: []string{"ERROR_THRESHOLD"}, def: 50, usage: "Errors per check that trip the circuit breaker (0 disables)"},
	{key: KeyBreakerInterval, env: []string{"BREAKER_INTERVAL"}, def: 5 * time.Second, usage: "Circuit breaker check interval"},
	{key: KeyBreakerMode, env: []string{"BREAKER_MODE"}, def: string(BreakerWindowed), usage: "Circuit breaker counting: windowed or cumulative"},
	{key: KeyReportInterval, env: []string{"REPORT_INTERVAL"}, def: time.Second, usage: "Metrics report interval"},
	{key: KeySendTimeout, env: []string{"SEND_TIMEOUT"}, def: time.Second, usage: "Per-message send timeout"},
	{key: KeyPollTimeout, env: []string{"POLL_TIMEOUT"}, def: time.Second, usage: "Consumer poll timeout"},
	{key: KeyDuration, short: "d", env: []string{"DURATION"}, def: time.Duration(0), usage: "Stop after this long (0 runs until interrupted)"},
	{key: KeyTLSCA, env: []string{"SSL_CA_LOCATION"}, def: "", usage: "CA certificate file"},
	{key: KeyTLSCert, env: []string{"SSL_CERT_LOCATION"}, def: "", usage: "Client certificate file"},
	{key: KeyTLSKey, env: []string{"SSL_KEY_LOCATION"}, def: "", usage: "Client key file"},
	{key: KeySASLUsername, env: []string{"SASL_USERNAME"}, def: "", usage: "SASL username"},
	{key: KeySASLPassword, env: []string{"SASL_PASSWORD"}, def: "", usage: "SASL password"},
	{key: KeySASLMechanism, env: []string{"SASL_MECHANISM"}, def: "PLAIN", usage: "SASL mechanism: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512"},
	{key: KeyCreateTopic, env: []string{"CREATE_TOPIC"}, def: false, usage: "Create the topic if it does not exist"},
	{key: KeyPartitions, env: []string{"TOPIC_PARTITIONS"}, def: 6, usage: "Partitions for a created topic"},
	{key: KeyReplicationFactor, env: []string{"TOPIC_REPLICATION_FACTOR"}, def: 1, usage: "Replication factor for a created topic"},
	{key: KeyLogLevel, env: []string{"LOG_LEVEL"}, def: "info", usage: "Log level: debug, info, warn, error"},
	{key: KeyLogFormat, env: []string{"LOG_FORMAT"}, def: "text", usage: "Log format: text or json"},
	{key: KeyOTLPEndpoint, env: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"}, def: "", usage: "OTLP gRPC endpoint for metrics and logs"},
	{key: KeyTUI, env: []string{"TUI"}, def: false, usage: "Show the live terminal dashboard"},
}
