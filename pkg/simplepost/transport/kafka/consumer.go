package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"github.com/simplepost/simplepost/internal/idem"
	"github.com/simplepost/simplepost/pkg/simplepost/dispatch"
)

// Message headers used on the command topic.
const (
	headerCommand       = "command"
	headerEvent         = "event"
	headerReplyTo       = "reply_to"
	headerCorrelationID = "correlation_id"
)

const dedupTTL = 24 * time.Hour

// CommandConsumer reads request/reply commands from the commands topic,
// dispatches them and writes the response envelope to the requester's reply
// topic, correlated by id. An optional dedup store suppresses redelivered
// correlation ids.
type CommandConsumer struct {
	reader     *kgo.Reader
	replies    *kgo.Writer
	dispatcher *dispatch.Dispatcher
	dedup      idem.Store
	logger     *slog.Logger
}

// NewCommandConsumer creates a consumer in the given consumer group. The
// dedup store may be nil, which disables deduplication.
func NewCommandConsumer(brokers []string, groupID, topic string, dispatcher *dispatch.Dispatcher, dedup idem.Store, logger *slog.Logger) *CommandConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandConsumer{
		reader: kgo.NewReader(kgo.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		replies: &kgo.Writer{
			Addr:         kgo.TCP(brokers...),
			Balancer:     &kgo.LeastBytes{},
			RequiredAcks: kgo.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		dispatcher: dispatcher,
		dedup:      dedup,
		logger:     logger,
	}
}

// Run consumes until the context is canceled. Each message is handled
// independently; handler outcomes never block the commit.
func (c *CommandConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	defer c.replies.Close()

	c.logger.Info("command consumer started",
		"group", c.reader.Config().GroupID, "topic", c.reader.Config().Topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("command consumer shutting down")
				return nil
			}
			c.logger.Error("fetch failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		if reply := c.process(ctx, m); reply != nil {
			if err := c.replies.WriteMessages(ctx, *reply); err != nil {
				c.logger.Error("reply write failed", "reply_to", reply.Topic, "err", err)
			}
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed", "err", err)
		}
	}
}

// process handles one command message: dedup check, dispatch, reply
// construction. It returns the reply to produce, or nil when none is due
// (duplicate delivery, unknown command, no reply_to header).
func (c *CommandConsumer) process(ctx context.Context, m kgo.Message) *kgo.Message {
	command := headerValue(m, headerCommand)
	replyTo := headerValue(m, headerReplyTo)
	correlationID := headerValue(m, headerCorrelationID)

	if c.dedup != nil && correlationID != "" {
		fresh, err := c.dedup.PutNX(ctx, correlationID, dedupTTL)
		if err != nil {
			c.logger.Error("dedup check failed", "err", err)
		} else if !fresh {
			c.logger.Info("duplicate command skipped", "correlation_id", correlationID)
			return nil
		}
	}

	envelope, err := c.dispatcher.DispatchCommand(ctx, command, m.Value)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnknownCommand) {
			c.logger.Warn("unknown command", "command", command)
			return nil
		}
		c.logger.Error("dispatch failed", "command", command, "err", err)
		return nil
	}

	if replyTo == "" {
		return nil
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		c.logger.Error("reply encode failed", "command", command, "err", err)
		return nil
	}
	return &kgo.Message{
		Topic: replyTo,
		Key:   m.Key,
		Value: value,
		Time:  time.Now(),
		Headers: []kgo.Header{
			{Key: headerCorrelationID, Value: []byte(correlationID)},
		},
	}
}

// EventConsumer reads fire-and-forget lifecycle events and feeds them to the
// dispatcher's event handlers. No reply is ever produced; handler failures
// are logged inside the dispatcher and never surface here.
type EventConsumer struct {
	reader     *kgo.Reader
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

func NewEventConsumer(brokers []string, groupID, topic string, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *EventConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventConsumer{
		reader: kgo.NewReader(kgo.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (c *EventConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	c.logger.Info("event consumer started",
		"group", c.reader.Config().GroupID, "topic", c.reader.Config().Topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("event consumer shutting down")
				return nil
			}
			c.logger.Error("fetch failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		event := headerValue(m, headerEvent)
		c.dispatcher.DispatchEvent(ctx, event, m.Value)

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed", "err", err)
		}
	}
}

func headerValue(m kgo.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
