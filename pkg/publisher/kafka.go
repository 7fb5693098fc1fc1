// Package publisher pushes scored signals onto a Kafka topic so
// downstream consumers (alerting, archival) see them as they happen.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/edge"
)

// Writer is the subset of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Signals publishes scored signals to one Kafka topic.
type Signals struct {
	writer Writer
	log    *zap.Logger
}

// New creates a publisher for the given brokers and topic.
func New(brokers []string, topic string, log *zap.Logger) *Signals {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return &Signals{writer: writer, log: log}
}

// NewWithWriter wraps an existing writer, mainly for tests.
func NewWithWriter(w Writer, log *zap.Logger) *Signals {
	return &Signals{writer: w, log: log}
}

// Publish serializes one signal and sends it keyed by condition id, so
// updates for the same market land on the same partition.
func (s *Signals) Publish(ctx context.Context, sig *edge.Signal) error {
	value, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(sig.ConditionID),
		Value: value,
		Time:  time.Now(),
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Error("failed to publish signal",
			zap.String("condition_id", sig.ConditionID),
			zap.Error(err))
		return err
	}

	s.log.Debug("published signal",
		zap.String("condition_id", sig.ConditionID),
		zap.String("decision", string(sig.Decision)))
	return nil
}

// PublishBatch publishes a slice of signals, continuing past individual
// failures and returning the first error seen.
func (s *Signals) PublishBatch(ctx context.Context, sigs []*edge.Signal) error {
	var firstErr error
	for _, sig := range sigs {
		if err := s.Publish(ctx, sig); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes and closes the writer.
func (s *Signals) Close() error {
	return s.writer.Close()
}
