package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/pubsub"
)

// PubSub is an in-process pubsub on watermill's go channel implementation. Messages
// published while a topic has no subscriber are dropped.
type PubSub struct {
	channel *gochannel.GoChannel
}

func NewPubSub(log *logger.Logger) pubsub.PubSub {
	return &PubSub{
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 1024,
		}, pubsub.NewWatermillLogger(log)),
	}
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	msg.SetContext(ctx)
	return p.channel.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.channel.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return p.channel.Close()
}
