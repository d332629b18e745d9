package alerts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsift/coinsift/internal/model"
)

func testResult() *model.ScanResult {
	ts := time.Now().UTC().Format(time.RFC3339)
	return &model.ScanResult{
		ScanID: "scan-1",
		Records: []model.ScanRecord{
			{Symbol: "SOL", Name: "Solana", Price: 5, Change24h: 10, AIScore: 7.5,
				Risk: model.RiskPlan{StopLoss: 4.8, TakeProfit: 5.4}, Timestamp: ts},
			{Symbol: "ADA", Name: "Cardano", Price: 0.5, Change24h: 4, AIScore: 6.2, Timestamp: ts},
		},
	}
}

func TestPublishSendsOneAlertPerRecord(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "SOL", string(key))

		raw, err := msg.Value.Encode()
		require.NoError(t, err)
		var alert CandidateAlert
		require.NoError(t, json.Unmarshal(raw, &alert))
		assert.Equal(t, "scan-1", alert.ScanID)
		assert.Equal(t, 7.5, alert.AIScore)
		assert.Equal(t, 5.4, alert.Risk.TakeProfit)
		return nil
	})
	producer.ExpectSendMessageAndSucceed()

	p := &Publisher{producer: producer, topic: "coinsift.candidates"}
	assert.NoError(t, p.Publish(testResult()))
	assert.NoError(t, p.Close())
}

func TestPublishContinuesPastSendFailures(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndSucceed()

	p := &Publisher{producer: producer, topic: "coinsift.candidates"}
	err := p.Publish(testResult())
	assert.ErrorContains(t, err, "1 of 2")
	assert.NoError(t, p.Close())
}

func TestPublishEmptyResultIsNoop(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())

	p := &Publisher{producer: producer, topic: "coinsift.candidates"}
	assert.NoError(t, p.Publish(&model.ScanResult{ScanID: "scan-2"}))
	assert.NoError(t, p.Close())
}
