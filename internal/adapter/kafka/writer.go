package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/spei-map/internal/config"
	"github.com/couchcryptid/spei-map/internal/domain"
)

// Command operations.
const (
	OpAddLayer  = "add_layer"
	OpSetCenter = "set_center"
)

// Command is one map mutation as published to the layer topic. Consumers rebuild
// the map by applying commands in Seq order.
type Command struct {
	Op       string           `json:"op"`
	Map      string           `json:"map"`
	Seq      int64            `json:"seq"`
	Layer    *domain.Layer    `json:"layer,omitempty"`
	Viewport *domain.Viewport `json:"viewport,omitempty"`
	IssuedAt time.Time        `json:"issued_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes map commands to a Kafka topic.
// It implements pipeline.MapSurface.
type Writer struct {
	writer messageWriter
	mapID  string
	seq    atomic.Int64
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured layer topic. Every command
// for mapID is keyed by it so one partition carries the whole map in order.
func NewWriter(cfg *config.Config, mapID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLayerTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, mapID: mapID, logger: logger}
}

// AddLayer publishes an add_layer command.
func (w *Writer) AddLayer(ctx context.Context, layer domain.Layer) error {
	return w.publish(ctx, Command{Op: OpAddLayer, Layer: &layer})
}

// SetCenter publishes a set_center command.
func (w *Writer) SetCenter(ctx context.Context, v domain.Viewport) error {
	return w.publish(ctx, Command{Op: OpSetCenter, Viewport: &v})
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) publish(ctx context.Context, cmd Command) error {
	cmd.Map = w.mapID
	cmd.Seq = w.seq.Add(1)
	cmd.IssuedAt = domain.Now()

	msg, err := serializeToMessage(cmd)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", cmd.Op, err)
	}
	w.logger.Debug("map command published", "op", cmd.Op, "seq", cmd.Seq, "label", label(cmd))
	return nil
}

// serializeToMessage marshals a Command into a Kafka message.
func serializeToMessage(cmd Command) (kafkago.Message, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize map command: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "op", Value: []byte(cmd.Op)},
		{Key: "seq", Value: []byte(strconv.FormatInt(cmd.Seq, 10))},
		{Key: "issued_at", Value: []byte(cmd.IssuedAt.Format(time.RFC3339))},
	}
	if l := label(cmd); l != "" {
		headers = append(headers, kafkago.Header{Key: "label", Value: []byte(l)})
	}
	return kafkago.Message{
		Key:     []byte(cmd.Map),
		Value:   data,
		Headers: headers,
	}, nil
}

func label(cmd Command) string {
	if cmd.Layer == nil {
		return ""
	}
	return cmd.Layer.Label
}
