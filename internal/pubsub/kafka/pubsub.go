package kafka

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/installments/internal/config"
	ierr "github.com/flexprice/installments/internal/errors"
	baseKafka "github.com/flexprice/installments/internal/kafka"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/pubsub"
)

// PubSub publishes to Kafka through watermill-kafka on sarama. The subscriber is created on
// first Subscribe so publish-only processes never join a consumer group.
type PubSub struct {
	publisher     message.Publisher
	cfg           *config.Configuration
	wlog          watermill.LoggerAdapter
	consumerGroup string

	mu         sync.Mutex
	subscriber message.Subscriber
}

// NewPubSubFromConfig connects a publisher to the configured brokers
func NewPubSubFromConfig(cfg *config.Configuration, log *logger.Logger, consumerGroup string) (pubsub.PubSub, error) {
	wlog := pubsub.NewWatermillLogger(log)

	publisher, err := wkafka.NewPublisher(wkafka.PublisherConfig{
		Brokers:               cfg.Kafka.Brokers,
		Marshaler:             Marshaler(),
		OverwriteSaramaConfig: baseKafka.GetSaramaConfig(cfg),
	}, wlog)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect the Kafka publisher").
			WithReportableDetails(map[string]interface{}{
				"brokers": cfg.Kafka.Brokers,
			}).
			Mark(ierr.ErrSystem)
	}

	log.Infow("kafka publisher connected", "brokers", cfg.Kafka.Brokers, "client_id", cfg.Kafka.ClientID)

	return &PubSub{
		publisher:     publisher,
		cfg:           cfg,
		wlog:          wlog,
		consumerGroup: consumerGroup,
	}, nil
}

// Marshaler keys messages by their partition_key metadata, falling back to round robin
func Marshaler() wkafka.MarshalerUnmarshaler {
	return wkafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(pubsub.MetadataPartitionKey), nil
	})
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	msg.SetContext(ctx)
	return p.publisher.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subscriber == nil {
		subscriber, err := wkafka.NewSubscriber(wkafka.SubscriberConfig{
			Brokers:               p.cfg.Kafka.Brokers,
			Unmarshaler:           Marshaler(),
			OverwriteSaramaConfig: baseKafka.GetSaramaConfig(p.cfg),
			ConsumerGroup:         p.consumerGroup,
		}, p.wlog)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to create the Kafka subscriber").
				Mark(ierr.ErrSystem)
		}
		p.subscriber = subscriber
	}

	return p.subscriber.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.subscriber != nil {
		err = p.subscriber.Close()
	}
	if pubErr := p.publisher.Close(); pubErr != nil {
		err = pubErr
	}
	return err
}
