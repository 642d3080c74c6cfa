package testutil

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/installments/internal/pubsub"
	"github.com/stretchr/testify/mock"
)

// MockPubSub is a testify mock of pubsub.PubSub
type MockPubSub struct {
	mock.Mock
}

var _ pubsub.PubSub = (*MockPubSub)(nil)

func (m *MockPubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	args := m.Called(ctx, topic, msg)
	return args.Error(0)
}

func (m *MockPubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	args := m.Called(ctx, topic)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan *message.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPubSub) Close() error {
	args := m.Called()
	return args.Error(0)
}
