package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// MetadataPartitionKey orders messages per key on backends that partition, e.g. per subscriber
const MetadataPartitionKey = "partition_key"

// PubSub publishes and subscribes to watermill messages by topic
type PubSub interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}
