package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/spei-map/internal/config"
	"github.com/couchcryptid/spei-map/internal/domain"
)

var issuedAt = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestWriter(fw *fakeWriter) *Writer {
	return &Writer{writer: fw, mapID: "spei-map", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(issuedAt))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func headers(msg kafkago.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestSerializeToMessage(t *testing.T) {
	layer := domain.RasterLayer("SPEI-1 Jan 2012",
		domain.Raster{ID: "projects/p/assets/SPEI1_097", Name: "SPEI1_097", Year: 2012},
		domain.SPEIVisParams())
	cmd := Command{Op: OpAddLayer, Map: "spei-map", Seq: 2, Layer: &layer, IssuedAt: issuedAt}

	msg, err := serializeToMessage(cmd)
	require.NoError(t, err)

	assert.Equal(t, []byte("spei-map"), msg.Key)
	assert.Contains(t, string(msg.Value), `"op":"add_layer"`)
	assert.Contains(t, string(msg.Value), `"name":"SPEI1_097"`)
	assert.Equal(t, map[string]string{
		"op":        "add_layer",
		"seq":       "2",
		"issued_at": issuedAt.Format(time.RFC3339),
		"label":     "SPEI-1 Jan 2012",
	}, headers(msg))

	var decoded Command
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, cmd, decoded)
}

func TestSerializeToMessage_Viewport(t *testing.T) {
	cmd := Command{Op: OpSetCenter, Map: "spei-map", Seq: 7, Viewport: &domain.Viewport{Lon: 78.65, Lat: 23.5, Zoom: 6}, IssuedAt: issuedAt}

	msg, err := serializeToMessage(cmd)
	require.NoError(t, err)

	assert.JSONEq(t, `{"op":"set_center","map":"spei-map","seq":7,"viewport":{"lon":78.65,"lat":23.5,"zoom":6},"issued_at":"2024-04-26T15:10:00Z"}`, string(msg.Value))
	assert.NotContains(t, headers(msg), "label")
}

func TestWriter_PublishesInOrder(t *testing.T) {
	freezeClock(t)
	fw := &fakeWriter{}
	w := newTestWriter(fw)
	ctx := context.Background()

	require.NoError(t, w.AddLayer(ctx, domain.VectorLayer("MP Boundary", nil, domain.DefaultBoundaryStyle())))
	require.NoError(t, w.SetCenter(ctx, domain.Viewport{Lon: 78.65, Lat: 23.5, Zoom: 6}))

	require.Len(t, fw.msgs, 2)
	var first, second Command
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &first))
	require.NoError(t, json.Unmarshal(fw.msgs[1].Value, &second))

	assert.Equal(t, OpAddLayer, first.Op)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "MP Boundary", first.Layer.Label)
	assert.Equal(t, issuedAt, first.IssuedAt)

	assert.Equal(t, OpSetCenter, second.Op)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, domain.Viewport{Lon: 78.65, Lat: 23.5, Zoom: 6}, *second.Viewport)
	assert.Equal(t, fw.msgs[0].Key, fw.msgs[1].Key)
}

func TestWriter_PublishError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unavailable")}
	w := newTestWriter(fw)

	err := w.SetCenter(context.Background(), domain.Viewport{Lon: 78.65, Lat: 23.5, Zoom: 6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish set_center")
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestWriter_Close(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, newTestWriter(fw).Close())
	assert.True(t, fw.closed)
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaLayerTopic: "spei-map-layers"}
	w := NewWriter(cfg, "spei-map", slog.Default())
	t.Cleanup(func() { _ = w.Close() })

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "spei-map-layers", kw.Topic)
	assert.Equal(t, "spei-map", w.mapID)
}
