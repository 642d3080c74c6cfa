package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/installments/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshaler_UsesPartitionKey(t *testing.T) {
	msg := message.NewMessage("alrt_1", []byte(`{}`))
	msg.Metadata.Set(pubsub.MetadataPartitionKey, "sub_1")

	out, err := Marshaler().Marshal("installment_due_alerts", msg)
	require.NoError(t, err)
	require.NotNil(t, out.Key)

	key, err := out.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "sub_1", string(key))
	assert.Equal(t, "installment_due_alerts", out.Topic)
}
