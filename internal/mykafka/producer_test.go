package mykafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	err := p.PublishEvent(context.Background(), "user_events", "user-1", map[string]any{"type": "user_registered"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "user_events", msg.Topic)
	assert.Equal(t, []byte("user-1"), msg.Key)
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "user_registered", body["type"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishEvent_Errors(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}
	assert.ErrorContains(t, p.PublishEvent(context.Background(), "t", "k", 1), "broker down")

	assert.Error(t, p.PublishEvent(context.Background(), "t", "k", make(chan int)))
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishEvent(context.Background(), "t", "k", nil))
	assert.NoError(t, p.Close())
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"})
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}
