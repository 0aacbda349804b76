package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// WebhookJournal appends every verified payment webhook to a kafka topic so
// deliveries can be replayed and diagnosed after the fact. The journal is
// optional: with no brokers configured every call is a no-op, and an append
// failure never fails the webhook itself.
type WebhookJournal struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// JournalEntry is one recorded webhook delivery.
type JournalEntry struct {
	EventType  string    `json:"event_type"`
	OrderID    uint      `json:"order_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Outcome    string    `json:"outcome"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewWebhookJournal builds a journal writing to topic on brokers. Returns a
// disabled journal when brokers is empty.
func NewWebhookJournal(brokers []string, topic string, log *logrus.Logger) *WebhookJournal {
	if len(brokers) == 0 {
		return &WebhookJournal{log: log}
	}
	return &WebhookJournal{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
		log: log,
	}
}

// Record appends one delivery to the journal.
func (wj *WebhookJournal) Record(ctx context.Context, entry JournalEntry) {
	if wj.writer == nil {
		return
	}
	entry.ReceivedAt = time.Now()

	payload, err := json.Marshal(entry)
	if err != nil {
		wj.log.Errorf("journal: encode entry for order %d: %v", entry.OrderID, err)
		return
	}
	err = wj.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.EventType),
		Value: payload,
	})
	if err != nil {
		wj.log.Errorf("journal: append %s for order %d: %v", entry.EventType, entry.OrderID, err)
	}
}

// Close flushes and closes the underlying writer.
func (wj *WebhookJournal) Close() error {
	if wj.writer == nil {
		return nil
	}
	return wj.writer.Close()
}
