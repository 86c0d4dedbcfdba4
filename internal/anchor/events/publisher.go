// Package events publishes anchor lifecycle events to Kafka so operators
// and downstream consumers can react to confirmations and dead letters.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"attesto/internal/anchor"
	"attesto/internal/platform/kafka/producer"
)

const (
	EventBatchConfirmed    = "anchor.batch.confirmed"
	EventBatchDeadLettered = "anchor.batch.dead_lettered"
)

// envelope is the wire shape of every anchor event.
type envelope struct {
	Event             string    `json:"event"`
	BatchID           string    `json:"batch_id"`
	ProofHashes       []string  `json:"proof_hashes"`
	ChainTxHash       string    `json:"chain_tx_hash,omitempty"`
	RetryCount        int       `json:"retry_count,omitempty"`
	LastError         string    `json:"last_error,omitempty"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// KafkaPublisher emits anchor events to a single topic, keyed by batch ID
// so per-batch ordering is preserved.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
	now      func() time.Time
}

// NewKafka constructs a publisher for the given topic.
func NewKafka(p *producer.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, now: time.Now}
}

// BatchConfirmed publishes a confirmation event.
func (k *KafkaPublisher) BatchConfirmed(ctx context.Context, batch *anchor.Batch) error {
	return k.publish(ctx, envelope{
		Event:       EventBatchConfirmed,
		BatchID:     batch.ID,
		ProofHashes: batch.ProofHashes,
		ChainTxHash: batch.ChainTxHash,
		OccurredAt:  k.now().UTC(),
	})
}

// BatchDeadLettered publishes a dead-letter event carrying the retry count
// and operator retry guidance.
func (k *KafkaPublisher) BatchDeadLettered(ctx context.Context, batch *anchor.Batch) error {
	now := k.now().UTC()
	return k.publish(ctx, envelope{
		Event:             EventBatchDeadLettered,
		BatchID:           batch.ID,
		ProofHashes:       batch.ProofHashes,
		RetryCount:        batch.RetryCount,
		LastError:         batch.LastError,
		RetryAfterSeconds: batch.RetryAfterSeconds(now),
		OccurredAt:        now,
	})
}

func (k *KafkaPublisher) publish(ctx context.Context, ev envelope) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode anchor event: %w", err)
	}
	return k.producer.Produce(ctx, &producer.Message{
		Topic: k.topic,
		Key:   []byte(ev.BatchID),
		Value: value,
		Headers: map[string]string{
			"event": ev.Event,
		},
	})
}

var _ anchor.EventPublisher = (*KafkaPublisher)(nil)
