package kafka

import (
	"crypto/tls"
	"time"

	"github.com/Shopify/sarama"
	"github.com/flexprice/installments/internal/config"
)

// GetSaramaConfig builds the sarama client configuration for the alert topic publisher and
// its consumers
func GetSaramaConfig(cfg *config.Configuration) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	sc.ClientID = cfg.Kafka.ClientID
	sc.Metadata.Retry.Backoff = 500 * time.Millisecond

	// watermill's publisher is synchronous and waits for every in-sync replica
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 10

	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = 5 * time.Second
	sc.Consumer.Offsets.Retry.Max = 3

	// SASL credentials are only ever sent over TLS
	if cfg.Kafka.TLS || cfg.Kafka.UseSASL {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.Kafka.UseSASL {
		applySASL(sc, cfg.Kafka)
	}
	return sc
}

func applySASL(sc *sarama.Config, cfg config.KafkaConfig) {
	sc.Net.SASL.Enable = true
	sc.Net.SASL.Mechanism = cfg.SASLMechanism
	sc.Net.SASL.User = cfg.SASLUser
	sc.Net.SASL.Password = cfg.SASLPassword

	if isSCRAM(cfg.SASLMechanism) {
		mechanism := cfg.SASLMechanism
		sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return newSCRAMClient(mechanism)
		}
	}
}

func isSCRAM(mechanism sarama.SASLMechanism) bool {
	return mechanism == sarama.SASLTypeSCRAMSHA256 || mechanism == sarama.SASLTypeSCRAMSHA512
}
