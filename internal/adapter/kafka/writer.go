package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/config"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes coalesced records to a Kafka topic.
// It implements pipeline.RecordLoader.
type Writer struct {
	writer    *kafkago.Writer
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, batchSize: cfg.BatchSize, logger: logger}
}

// message is the JSON payload of one published record.
type message struct {
	Element   string    `json:"element"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	ValidTime time.Time `json:"valid_time"`
	FcstTime  time.Time `json:"fcst_time"`
	Value     float64   `json:"value"`
}

// LoadRecords publishes records in chunks of the configured batch size.
// Records of one cell share a key and so land on one partition in order.
func (w *Writer) LoadRecords(ctx context.Context, element string, records []domain.CoalescedRecord) error {
	for start := 0; start < len(records); start += w.batchSize {
		end := min(start+w.batchSize, len(records))
		msgs := make([]kafkago.Message, 0, end-start)
		for _, r := range records[start:end] {
			msg, err := serializeToMessage(element, r)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish %s records %d-%d: %w", element, start, end, err)
		}
	}
	w.logger.Debug("records published", "element", element, "count", len(records), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a coalesced record into a Kafka message keyed by cell.
func serializeToMessage(element string, r domain.CoalescedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(message{
		Element:   element,
		X:         r.X,
		Y:         r.Y,
		ValidTime: r.ValidTime.UTC(),
		FcstTime:  r.FcstTime.UTC(),
		Value:     r.Value,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record (%d, %d): %w", element, r.X, r.Y, err)
	}
	return kafkago.Message{
		Key:   []byte(element + "|" + strconv.Itoa(r.X) + "|" + strconv.Itoa(r.Y)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "element", Value: []byte(element)},
			{Key: "valid_time", Value: []byte(r.ValidTime.UTC().Format(time.RFC3339))},
		},
	}, nil
}
