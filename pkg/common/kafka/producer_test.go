package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
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

func TestTableDonePublishesKeyedEvent(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, topic: "premeds-tables"}

	err := p.TableDone(context.Background(), models.TableResult{
		RunID:    "run-1",
		Table:    "labs",
		Status:   models.TableProcessed,
		Rows:     42,
		Duration: 1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "labs" {
		t.Fatalf("expected table key, got %q", msg.Key)
	}
	if string(msg.Headers[0].Value) != EventTableProcessed {
		t.Fatalf("unexpected event-type header %q", msg.Headers[0].Value)
	}
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Data["status"] != "processed" || event.Data["rows"] != float64(42) || event.Data["duration_ms"] != float64(1500) {
		t.Fatalf("unexpected payload %v", event.Data)
	}
}

func TestPublishEventReturnsWriterError(t *testing.T) {
	p := &Producer{writer: &recordingWriter{err: errors.New("broker down")}, topic: "t"}
	if err := p.RunDone(context.Background(), "run-1", map[models.TableStatus]int{models.TableProcessed: 1}); err == nil {
		t.Fatal("expected the writer error")
	}
}
