package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/paylane/payroll-engine-go/internal/domain/audit"
)

// KafkaAuditPublisher pushes audit events to a topic for downstream
// consumers. Failures are logged and dropped: an audit write never fails
// the payroll operation.
type KafkaAuditPublisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewKafkaAuditPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaAuditPublisher {
	return &KafkaAuditPublisher{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkago.LeastBytes{},
		},
		logger: logger,
	}
}

func (p *KafkaAuditPublisher) Record(ctx context.Context, event audit.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("marshal audit event", zap.Error(err))
		return
	}

	msg := kafkago.Message{
		Key:   []byte(event.ResourceID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "resource", Value: []byte(event.Resource)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("publish audit event",
			zap.String("action", event.Action),
			zap.String("resource_id", event.ResourceID),
			zap.Error(err),
		)
	}
}

func (p *KafkaAuditPublisher) Close() error {
	return p.writer.Close()
}
