package kafka

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"brokerbench/internal/broker"
	"brokerbench/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Broker:  config.BrokerKafka,
		Brokers: []string{"127.0.0.1:1"},
		Topic:   "bench",
	}
}

func TestMechanism(t *testing.T) {
	tests := []struct {
		mechanism string
		name      string
		wantErr   bool
	}{
		{mechanism: "PLAIN", name: "PLAIN"},
		{mechanism: "SCRAM-SHA-256", name: "SCRAM-SHA-256"},
		{mechanism: "SCRAM-SHA-512", name: "SCRAM-SHA-512"},
		{mechanism: "GSSAPI", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mechanism, func(t *testing.T) {
			m, err := mechanism(&config.SASLConfig{Username: "u", Password: "p", Mechanism: tt.mechanism})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, m.Name())
		})
	}
}

func TestLoadTLS(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg, err := loadTLS(nil)
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("missing ca file", func(t *testing.T) {
		_, err := loadTLS(&config.TLSConfig{CAFile: filepath.Join(t.TempDir(), "nope.pem")})
		assert.ErrorIs(t, err, errLoadCA)
	})

	t.Run("ca file without certificates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

		_, err := loadTLS(&config.TLSConfig{CAFile: path})
		assert.ErrorIs(t, err, errAppendCA)
	})

	t.Run("bad key pair", func(t *testing.T) {
		dir := t.TempDir()
		_, err := loadTLS(&config.TLSConfig{
			CertFile: filepath.Join(dir, "cert.pem"),
			KeyFile:  filepath.Join(dir, "key.pem"),
		})
		assert.ErrorIs(t, err, errLoadCerts)
	})
}

func TestClientOpts_SASLImpliesTLS(t *testing.T) {
	cfg := testConfig()
	plainOpts, err := clientOpts(cfg, nil)
	require.NoError(t, err)

	cfg.SASL = &config.SASLConfig{Username: "u", Password: "p", Mechanism: "PLAIN"}
	saslOpts, err := clientOpts(cfg, nil)
	require.NoError(t, err)

	// seed brokers, sasl, dial tls
	assert.Len(t, plainOpts, 1)
	assert.Len(t, saslOpts, 3)
}

func TestNewFactory_RejectsBadSecurity(t *testing.T) {
	cfg := testConfig()
	cfg.SASL = &config.SASLConfig{Username: "u", Password: "p", Mechanism: "KERBEROS"}

	_, err := NewFactory(cfg, nil)
	assert.Error(t, err)
}

func TestConsumer_ReceiveWithoutBroker(t *testing.T) {
	f, err := NewFactory(testConfig(), nil)
	require.NoError(t, err)

	c, err := f.NewConsumer(0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Receive(ctx)
	assert.ErrorIs(t, err, broker.ErrNoMessage)

	c.Close()
	_, err = c.Receive(context.Background())
	assert.ErrorIs(t, err, broker.ErrClosed)
}

func TestProducer_SendWithoutBrokerTimesOut(t *testing.T) {
	f, err := NewFactory(testConfig(), nil)
	require.NoError(t, err)

	p, err := f.NewProducer(0)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, p.Send(ctx, "bench", []byte("k"), []byte("v")))
}

func TestLogger_Level(t *testing.T) {
	newSlog := func(level slog.Level) *slog.Logger {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level}))
	}

	assert.Equal(t, kgo.LogLevelDebug, newLogger(newSlog(slog.LevelDebug)).Level())
	assert.Equal(t, kgo.LogLevelWarn, newLogger(newSlog(slog.LevelInfo)).Level())
	assert.Equal(t, kgo.LogLevelError, newLogger(newSlog(slog.LevelError)).Level())
	assert.Equal(t, slog.LevelError, toSlog(kgo.LogLevelError))
	assert.Equal(t, slog.LevelDebug, toSlog(kgo.LogLevelInfo))
}
