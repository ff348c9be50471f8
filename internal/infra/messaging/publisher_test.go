package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, topic: "storefront.events"}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev, err := model.NewEvent(model.EventOrderStatusChanged, "order-1", at, map[string]string{"to": "shipped"})
	require.NoError(t, err)
	ev.ID = "ev-1"

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "order-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, model.EventOrderStatusChanged, headerCarrier{msg: &msg}.Get("event_type"))

	var got model.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "ev-1", got.ID)
	assert.JSONEq(t, `{"to":"shipped"}`, string(got.Payload))
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &recordingWriter{err: errors.New("broker down")}, topic: "t"}
	err := p.Publish(context.Background(), model.Event{AggregateID: "x"})
	assert.EqualError(t, err, "broker down")
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	msg := kafka.Message{}
	c := headerCarrier{msg: &msg}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	assert.Equal(t, []string{"traceparent"}, c.Keys())
	assert.Equal(t, "b", c.Get("traceparent"))
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zap.NewNop())
	assert.NoError(t, p.Publish(context.Background(), model.Event{Type: "x"}))
}
