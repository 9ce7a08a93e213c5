package payload

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(3, "run-1", 200)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := b.Build(now)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, 3, env.ProducerID)
	assert.Equal(t, "run-1", env.RunID)
	assert.True(t, now.Equal(env.Timestamp))

	padding, err := base64.StdEncoding.DecodeString(env.Payload)
	require.NoError(t, err)
	assert.Len(t, padding, 200)

	assert.Equal(t, []byte("producer-3"), b.Key())
}

func TestBuilder_NegativeSize(t *testing.T) {
	raw, err := NewBuilder(0, "", -5).Build(time.Now())
	require.NoError(t, err)

	d, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, d.IsEnvelope)
	assert.Empty(t, d.Envelope.Payload)
}

func TestDecode(t *testing.T) {
	raw, err := NewBuilder(1, "", 8).Build(time.Now())
	require.NoError(t, err)

	tests := []struct {
		name       string
		raw        []byte
		wantErr    error
		isEnvelope bool
	}{
		{name: "envelope", raw: raw, isEnvelope: true},
		{name: "plain text", raw: []byte("hello")},
		{name: "json without timestamp", raw: []byte(`{"producer_id":1}`)},
		{name: "invalid utf8", raw: []byte{0xff, 0xfe, 0xfd}, wantErr: ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.isEnvelope, d.IsEnvelope)
		})
	}
}
