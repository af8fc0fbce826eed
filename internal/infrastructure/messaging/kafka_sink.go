package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

const (
	eventWorkItemCreated = "work_item.created"
	maxPublishAttempts   = 3
	publishTimeout       = 5 * time.Second
)

// messageWriter is the subset of *kafka.Writer the sink needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WorkItemEvent is the message published for every new work item
type WorkItemEvent struct {
	Event      string                `json:"event"`
	ID         string                `json:"id"`
	Kind       entities.WorkItemKind `json:"kind"`
	RequestID  string                `json:"request_id,omitempty"`
	DraftID    string                `json:"draft_id,omitempty"`
	Reason     string                `json:"reason"`
	Details    map[string]string     `json:"details,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// KafkaSink stores work items through the wrapped sink and then fans them out
// to a Kafka topic for downstream notification. The stored row is the source
// of truth, so a failed publish is logged and never fails the caller.
type KafkaSink struct {
	next   repositories.WorkItemSink
	writer messageWriter
	logger *zap.Logger
}

var _ repositories.WorkItemSink = (*KafkaSink)(nil)

// NewKafkaSink creates a sink publishing to cfg.Topic, keyed by request id
func NewKafkaSink(next repositories.WorkItemSink, cfg config.KafkaConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaSink(next, w, logger), nil
}

func newKafkaSink(next repositories.WorkItemSink, w messageWriter, logger *zap.Logger) *KafkaSink {
	return &KafkaSink{next: next, writer: w, logger: logger}
}

// Create stores the work item and publishes it
func (s *KafkaSink) Create(ctx context.Context, item *entities.WorkItem) error {
	if err := s.next.Create(ctx, item); err != nil {
		return err
	}
	if err := s.publish(ctx, item); err != nil {
		s.logger.Warn("⚠️ Failed to publish work item",
			zap.String("work_item_id", item.ID.String()),
			zap.String("reason", item.Reason),
			zap.Error(err),
		)
	}
	return nil
}

func (s *KafkaSink) publish(ctx context.Context, item *entities.WorkItem) error {
	evt := WorkItemEvent{
		Event:      eventWorkItemCreated,
		ID:         item.ID.String(),
		Kind:       item.Kind,
		Reason:     item.Reason,
		Details:    item.Details,
		OccurredAt: item.CreatedAt,
	}
	key := item.ID.String()
	if item.RequestID != nil {
		evt.RequestID = item.RequestID.String()
		key = evt.RequestID
	}
	if item.DraftID != nil {
		evt.DraftID = item.DraftID.String()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal work item event: %w", err)
	}

	msg := kafka.Message{Key: []byte(key), Value: value, Time: time.Now().UTC()}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	policy := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), maxPublishAttempts-1)

	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return s.writer.WriteMessages(attemptCtx, msg)
	}, policy)
}

// Close flushes and closes the writer
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
