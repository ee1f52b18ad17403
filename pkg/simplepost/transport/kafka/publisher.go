// Package kafka binds the post service to a Kafka broker: an event
// publisher for lifecycle notifications, a command consumer that produces
// correlated replies, and an event consumer feeding the dispatcher.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"github.com/simplepost/simplepost/pkg/simplepost"
)

// Publisher delivers lifecycle events to the events topic. RequireAll acks:
// an event is only "published" once the broker has accepted it, which the
// service relies on for its create/delete guarantees.
type Publisher struct {
	writer *kgo.Writer
}

// NewPublisher creates an event publisher for the given topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kgo.Writer{
			Addr:         kgo.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kgo.LeastBytes{},
			RequiredAcks: kgo.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, event string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kgo.Message{
		Key:     []byte(eventKey(payload)),
		Value:   value,
		Time:    time.Now(),
		Headers: []kgo.Header{{Key: headerEvent, Value: []byte(event)}},
	})
}

func (p *Publisher) Close() error { return p.writer.Close() }

// eventKey keys messages by post id so events for one post stay ordered
// within a partition.
func eventKey(payload any) string {
	switch v := payload.(type) {
	case *simplepost.Post:
		return v.ID
	case simplepost.PostDeletedEvent:
		return v.ID
	}
	return ""
}

var _ simplepost.EventPublisher = (*Publisher)(nil)
