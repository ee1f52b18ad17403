package simplepost

import "context"

// NoopPublisher discards every event. Useful when running without a broker
// and as the default publisher in tests.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that does nothing and returns nil.
func NewNoopPublisher() EventPublisher { return &NoopPublisher{} }

func (*NoopPublisher) Publish(ctx context.Context, event string, payload any) error {
	return nil
}
