//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"attesto/internal/anchor"
	"attesto/internal/anchor/events"
	"attesto/internal/platform/kafka/producer"
	"attesto/pkg/testutil/containers"
)

const testTopic = "anchor.events.test"

type KafkaPublisherSuite struct {
	suite.Suite
	kafka     *containers.KafkaContainer
	producer  *producer.Producer
	publisher *events.KafkaPublisher
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.kafka = mgr.GetKafka(s.T())

	err := s.kafka.CreateTopic(context.Background(), testTopic, 1, 1)
	s.Require().NoError(err)

	s.producer, err = producer.New(producer.Config{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	})
	s.Require().NoError(err)

	s.publisher = events.NewKafka(s.producer, testTopic)
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *KafkaPublisherSuite) consume(groupID string) *kgo.Client {
	client, err := s.kafka.NewConsumer(context.Background(), groupID, testTopic)
	s.Require().NoError(err)
	s.T().Cleanup(client.Close)
	return client
}

func (s *KafkaPublisherSuite) TestBatchConfirmedEvent() {
	ctx := context.Background()
	batch := &anchor.Batch{
		ID:          uuid.NewString(),
		ProofHashes: []string{strings.Repeat("a", 64)},
		ChainTxHash: "0xdeadbeef",
		Status:      anchor.StatusConfirmed,
	}

	err := s.publisher.BatchConfirmed(ctx, batch)
	s.Require().NoError(err)

	client := s.consume("confirmed-" + uuid.NewString())
	record := s.kafka.WaitForMessage(ctx, client, 30*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == batch.ID
	})
	s.Require().NotNil(record, "confirmed event should arrive on the topic")

	var ev struct {
		Event       string   `json:"event"`
		BatchID     string   `json:"batch_id"`
		ProofHashes []string `json:"proof_hashes"`
		ChainTxHash string   `json:"chain_tx_hash"`
	}
	s.Require().NoError(json.Unmarshal(record.Value, &ev))
	s.Equal(events.EventBatchConfirmed, ev.Event)
	s.Equal(batch.ID, ev.BatchID)
	s.Equal(batch.ProofHashes, ev.ProofHashes)
	s.Equal("0xdeadbeef", ev.ChainTxHash)
}

func (s *KafkaPublisherSuite) TestBatchDeadLetteredEvent() {
	ctx := context.Background()
	batch := &anchor.Batch{
		ID:          uuid.NewString(),
		ProofHashes: []string{strings.Repeat("b", 64)},
		Status:      anchor.StatusDeadLettered,
		RetryCount:  6,
		LastError:   "ledger timeout",
		NextRetryAt: time.Now().UTC().Add(30 * time.Minute),
	}

	err := s.publisher.BatchDeadLettered(ctx, batch)
	s.Require().NoError(err)

	client := s.consume("deadletter-" + uuid.NewString())
	record := s.kafka.WaitForMessage(ctx, client, 30*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == batch.ID
	})
	s.Require().NotNil(record, "dead-letter event should arrive on the topic")

	var ev struct {
		Event             string `json:"event"`
		BatchID           string `json:"batch_id"`
		RetryCount        int    `json:"retry_count"`
		LastError         string `json:"last_error"`
		RetryAfterSeconds int    `json:"retry_after_seconds"`
	}
	s.Require().NoError(json.Unmarshal(record.Value, &ev))
	s.Equal(events.EventBatchDeadLettered, ev.Event)
	s.Equal(batch.ID, ev.BatchID)
	s.Equal(6, ev.RetryCount)
	s.Equal("ledger timeout", ev.LastError)
	s.Positive(ev.RetryAfterSeconds)
}
