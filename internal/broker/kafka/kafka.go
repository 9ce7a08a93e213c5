// Package kafka implements the broker interfaces on top of franz-go.
package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"brokerbench/internal/broker"
	"brokerbench/internal/config"
)

const (
	recordDeliveryTimeout = 5 * time.Second
	maxPollRecords        = 500
)

var (
	errLoadCA    = errors.New("failed to load CA certificate")
	errAppendCA  = errors.New("no certificates found in CA file")
	errLoadCerts = errors.New("failed to load client certificate")
)

// Factory builds one franz-go client per worker from the shared options.
type Factory struct {
	topic  string
	common []kgo.Opt
}

// NewFactory translates the security settings into client options. File and
// mechanism problems surface here, before any worker starts.
func NewFactory(cfg config.Config, logger *slog.Logger) (*Factory, error) {
	opts, err := clientOpts(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Factory{topic: cfg.Topic, common: opts}, nil
}

func clientOpts(cfg config.Config, logger *slog.Logger) ([]kgo.Opt, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
	}
	if logger != nil {
		opts = append(opts, kgo.WithLogger(newLogger(logger)))
	}

	tlsCfg, err := loadTLS(cfg.TLS)
	if err != nil {
		return nil, err
	}
	if cfg.SASL != nil {
		mech, err := mechanism(cfg.SASL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgo.SASL(mech))
		// SASL always runs over TLS (SASL_SSL).
		if tlsCfg == nil {
			tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}
	if tlsCfg != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	}
	return opts, nil
}

func loadTLS(c *config.TLSConfig) (*tls.Config, error) {
	if c == nil {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, errors.Join(errLoadCA, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: %s", errAppendCA, c.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, errors.Join(errLoadCerts, err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

func mechanism(c *config.SASLConfig) (sasl.Mechanism, error) {
	switch c.Mechanism {
	case "PLAIN":
		return plain.Auth{User: c.Username, Pass: c.Password}.AsMechanism(), nil
	case "SCRAM-SHA-256":
		return scram.Auth{User: c.Username, Pass: c.Password}.AsSha256Mechanism(), nil
	case "SCRAM-SHA-512":
		return scram.Auth{User: c.Username, Pass: c.Password}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("unsupported sasl mechanism %q", c.Mechanism)
	}
}

func (f *Factory) NewProducer(id int) (broker.Producer, error) {
	opts := append([]kgo.Opt{
		kgo.ClientID(fmt.Sprintf("brokerbench-producer-%d", id)),
		kgo.ProducerBatchCompression(kgo.Lz4Compression()),
		kgo.RecordDeliveryTimeout(recordDeliveryTimeout),
		kgo.ProducerLinger(0),
	}, f.common...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client for producer %d: %w", id, err)
	}
	return &producer{client: client}, nil
}

func (f *Factory) NewConsumer(id int) (broker.Consumer, error) {
	opts := append([]kgo.Opt{
		kgo.ClientID(fmt.Sprintf("brokerbench-consumer-%d", id)),
		kgo.ConsumerGroup(fmt.Sprintf("bench-group-%d", id)),
		kgo.ConsumeTopics(f.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}, f.common...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client for consumer %d: %w", id, err)
	}
	return &consumer{client: client}, nil
}

var _ broker.Factory = (*Factory)(nil)

type producer struct {
	client *kgo.Client
}

func (p *producer) Send(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

func (p *producer) Close() {
	p.client.Close()
}

type consumer struct {
	client *kgo.Client

	mu      sync.Mutex
	pending []*kgo.Record
}

// Receive hands out buffered records first and polls only when the buffer is
// empty. A poll that ends on ctx with nothing fetched is ErrNoMessage.
func (c *consumer) Receive(ctx context.Context) (broker.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		fetches := c.client.PollRecords(ctx, maxPollRecords)
		if fetches.IsClientClosed() {
			return broker.Message{}, broker.ErrClosed
		}

		var fetchErr error
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			if fetchErr == nil {
				fetchErr = fmt.Errorf("fetch %s[%d]: %w", topic, partition, err)
			}
		})
		c.pending = append(c.pending, fetches.Records()...)

		if fetchErr != nil {
			return broker.Message{}, fetchErr
		}
		if len(c.pending) == 0 {
			return broker.Message{}, broker.ErrNoMessage
		}
	}

	r := c.pending[0]
	c.pending[0] = nil
	c.pending = c.pending[1:]

	return broker.Message{
		Topic:     r.Topic,
		Key:       r.Key,
		Payload:   r.Value,
		Partition: r.Partition,
		Offset:    r.Offset,
		Timestamp: r.Timestamp,
	}, nil
}

func (c *consumer) Close() {
	c.client.Close()
}
