package alerts

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"

	"github.com/coinsift/coinsift/internal/model"
)

// CandidateAlert is the event emitted for each qualified candidate so
// downstream alerting services can notify on it.
type CandidateAlert struct {
	ScanID    string         `json:"scan_id"`
	Symbol    string         `json:"symbol"`
	Name      string         `json:"name"`
	Price     float64        `json:"price"`
	Change24h float64        `json:"change_24h"`
	AIScore   float64        `json:"ai_score"`
	Risk      model.RiskPlan `json:"risk"`
	Timestamp string         `json:"timestamp"`
}

// Publisher sends candidate alerts to a Kafka topic, keyed by symbol.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects a synchronous producer to the given brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Publisher{producer: producer, topic: topic}, nil
}

// Publish emits one alert per record in the result. Individual send failures
// are logged and do not block the remaining records.
func (p *Publisher) Publish(result *model.ScanResult) error {
	var failed int
	for _, rec := range result.Records {
		alert := CandidateAlert{
			ScanID:    result.ScanID,
			Symbol:    rec.Symbol,
			Name:      rec.Name,
			Price:     rec.Price,
			Change24h: rec.Change24h,
			AIScore:   rec.AIScore,
			Risk:      rec.Risk,
			Timestamp: rec.Timestamp,
		}
		payload, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("failed to marshal alert for %s: %w", rec.Symbol, err)
		}

		_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(rec.Symbol),
			Value: sarama.ByteEncoder(payload),
		})
		if err != nil {
			failed++
			log.Error().Err(err).Str("symbol", rec.Symbol).Msg("failed to publish candidate alert")
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to publish %d of %d alerts", failed, len(result.Records))
	}
	return nil
}

// Close shuts down the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
