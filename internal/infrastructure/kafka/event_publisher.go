// Package kafka publishes scan pipeline events to the WMS event bus.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/pkg/cloudevents"
	"github.com/wms-platform/scan-gateway/pkg/kafka"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
)

// EventPublisher implements domain event publishing using Kafka
type EventPublisher struct {
	producer     *kafka.Producer
	eventFactory *cloudevents.EventFactory
	topic        string
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewEventPublisher creates a new Kafka-based event publisher. metrics may
// be nil.
func NewEventPublisher(
	producer *kafka.Producer,
	eventFactory *cloudevents.EventFactory,
	topic string,
	logger *logging.Logger,
	m *metrics.Metrics,
) *EventPublisher {
	return &EventPublisher{
		producer:     producer,
		eventFactory: eventFactory,
		topic:        topic,
		logger:       logger.WithComponent("event-publisher"),
		metrics:      m,
	}
}

// Publish converts a pipeline event to a CloudEvent and publishes it. Only
// events with off-station relevance are published; the rest are skipped.
func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	ce := p.toCloudEvent(event)
	if ce == nil {
		return nil
	}

	start := time.Now()
	err := p.producer.PublishEvent(ctx, p.topic, ce)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(p.topic, ce.Type, err == nil, duration)
	}
	p.logger.KafkaPublish(ctx, p.topic, ce.Type, err == nil, duration)

	if err != nil {
		return fmt.Errorf("failed to publish event to kafka: %w", err)
	}
	return nil
}

// GetTopic returns the topic this publisher publishes to
func (p *EventPublisher) GetTopic() string {
	return p.topic
}

func (p *EventPublisher) toCloudEvent(event domain.Event) *cloudevents.Event {
	switch e := event.(type) {
	case *domain.AssignmentCompletedEvent:
		return p.eventFactory.CreateAssignmentCompletedEvent(cloudevents.AssignmentCompletedData{
			ContainerID: e.ContainerID,
			TagCode:     e.TagCode,
			Orders:      e.Orders,
			Success:     e.Success,
			Reason:      e.Reason,
			CompletedAt: e.At,
		})
	case *domain.ScanRejectedEvent:
		return p.eventFactory.CreateScanRejectedEvent(cloudevents.ScanRejectedData{
			Barcode:    e.Barcode,
			Sequence:   e.Sequence,
			RejectedAt: e.At,
		})
	case *domain.DeviceErrorEvent:
		return p.eventFactory.CreateDeviceErrorEvent(cloudevents.DeviceErrorData{
			Port:       e.Port,
			Error:      e.Error,
			OccurredAt: e.At,
		})
	default:
		// ProcessingStateChanged is purely local status; not published
		return nil
	}
}
