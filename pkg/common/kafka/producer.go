package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
)

const (
	EventTableProcessed = "table.processed"
	EventRunCompleted   = "run.completed"

	source = "inspire-premeds"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer announces finished tables so the event-conversion stage can
// start on them.
type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer, topic: topic}
}

func (p *Producer) PublishEvent(ctx context.Context, eventType string, key string, data map[string]interface{}) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if key == "" {
		key = event.ID
	}
	message := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
		}).Error("Failed to publish event")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"topic":      p.topic,
	}).Debug("Event published")

	return nil
}

// TableDone publishes the outcome of one table, keyed by table name so a
// table's events stay ordered on one partition.
func (p *Producer) TableDone(ctx context.Context, res models.TableResult) error {
	return p.PublishEvent(ctx, EventTableProcessed, res.Table, map[string]interface{}{
		"run_id":      res.RunID,
		"table":       res.Table,
		"status":      string(res.Status),
		"output":      res.Output,
		"rows":        res.Rows,
		"duration_ms": res.Duration.Milliseconds(),
	})
}

// RunDone publishes the end-of-run summary counts.
func (p *Producer) RunDone(ctx context.Context, runID string, counts map[models.TableStatus]int) error {
	data := map[string]interface{}{"run_id": runID}
	for status, n := range counts {
		data[string(status)] = n
	}
	return p.PublishEvent(ctx, EventRunCompleted, runID, data)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
