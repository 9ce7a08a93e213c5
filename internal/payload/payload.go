// Package payload builds and validates the benchmark message envelope.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"
)

// ErrInvalidEncoding is returned for payloads that are not valid UTF-8.
var ErrInvalidEncoding = errors.New("payload: invalid UTF-8")

// Envelope is the JSON document every producer sends.
type Envelope struct {
	Timestamp  time.Time `json:"ts"`
	ProducerID int       `json:"producer_id"`
	RunID      string    `json:"run_id,omitempty"`
	Payload    string    `json:"payload"`
}

// Builder produces envelopes for one producer. The base64 padding is encoded
// once since it never changes between sends.
type Builder struct {
	producerID int
	runID      string
	padding    string
	key        []byte
}

func NewBuilder(producerID int, runID string, size int) *Builder {
	if size < 0 {
		size = 0
	}
	return &Builder{
		producerID: producerID,
		runID:      runID,
		padding:    base64.StdEncoding.EncodeToString(make([]byte, size)),
		key:        []byte("producer-" + strconv.Itoa(producerID)),
	}
}

// Key is the record key, stable per producer.
func (b *Builder) Key() []byte { return b.key }

// Build encodes a fresh envelope stamped with now.
func (b *Builder) Build(now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{
		Timestamp:  now.UTC(),
		ProducerID: b.producerID,
		RunID:      b.runID,
		Payload:    b.padding,
	})
}

// Decoded is the result of validating a received payload.
type Decoded struct {
	Envelope Envelope
	// IsEnvelope is false for foreign messages that are valid text but not
	// produced by this tool.
	IsEnvelope bool
}

// Decode validates raw. Only an encoding failure is an error: other traffic on
// the topic still counts as consumed.
func Decode(raw []byte) (Decoded, error) {
	if !utf8.Valid(raw) {
		return Decoded{}, ErrInvalidEncoding
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Timestamp.IsZero() {
		return Decoded{}, nil
	}
	return Decoded{Envelope: env, IsEnvelope: true}, nil
}
