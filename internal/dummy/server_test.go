package dummy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerbench/internal/broker"
)

func mustProfile(t *testing.T, name string) Profile {
	t.Helper()
	p, err := LookupProfile(name)
	require.NoError(t, err)
	return p
}

func TestBroker_SendReceive(t *testing.T) {
	b := New(mustProfile(t, "fast"), "bench", 10)

	p, err := b.NewProducer(0)
	require.NoError(t, err)
	c, err := b.NewConsumer(0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Send(ctx, "bench", []byte("k"), []byte("hello")))
	assert.Equal(t, 1, b.Depth("bench"))

	msg, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bench", msg.Topic)
	assert.Equal(t, []byte("k"), msg.Key)
	assert.Equal(t, []byte("hello"), msg.Payload)
	assert.Equal(t, int64(1), msg.Offset)
}

func TestBroker_ReceiveTimesOutAsNoMessage(t *testing.T) {
	b := New(mustProfile(t, "fast"), "bench", 10)
	c, err := b.NewConsumer(0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Receive(ctx)
	assert.ErrorIs(t, err, broker.ErrNoMessage)
}

func TestBroker_DownProfileFailsEverything(t *testing.T) {
	b := New(mustProfile(t, "down"), "bench", 10)
	p, _ := b.NewProducer(0)
	c, _ := b.NewConsumer(0)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		assert.ErrorIs(t, p.Send(ctx, "bench", nil, []byte("x")), ErrRejected)
		_, err := c.Receive(ctx)
		assert.ErrorIs(t, err, ErrReceiveFailed)
	}
	assert.Zero(t, b.Depth("bench"))
}

func TestBroker_SendHonoursDeadline(t *testing.T) {
	b := New(mustProfile(t, "slow"), "bench", 10)
	p, _ := b.NewProducer(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.Send(ctx, "bench", nil, []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBroker_ClosedClients(t *testing.T) {
	b := New(mustProfile(t, "fast"), "bench", 10)
	p, _ := b.NewProducer(0)
	c, _ := b.NewConsumer(0)
	p.Close()
	c.Close()

	assert.ErrorIs(t, p.Send(context.Background(), "bench", nil, nil), broker.ErrClosed)
	_, err := c.Receive(context.Background())
	assert.ErrorIs(t, err, broker.ErrClosed)
}

func TestProfiles(t *testing.T) {
	names := make([]string, 0)
	for _, p := range Profiles() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"down", "error", "fast", "medium", "slow", "spike"}, names)

	_, err := LookupProfile("nope")
	assert.Error(t, err)
}
