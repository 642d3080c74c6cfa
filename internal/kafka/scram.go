package kafka

import (
	"github.com/Shopify/sarama"
	"github.com/xdg-go/scram"
)

// scramClient adapts an xdg-go/scram conversation to sarama.SCRAMClient
type scramClient struct {
	hashGen      scram.HashGeneratorFcn
	conversation *scram.ClientConversation
}

func newSCRAMClient(mechanism sarama.SASLMechanism) *scramClient {
	hashGen := scram.SHA512
	if mechanism == sarama.SASLTypeSCRAMSHA256 {
		hashGen = scram.SHA256
	}
	return &scramClient{hashGen: hashGen}
}

func (c *scramClient) Begin(userName, password, authzID string) error {
	client, err := c.hashGen.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	c.conversation = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conversation.Done()
}

var _ sarama.SCRAMClient = (*scramClient)(nil)
