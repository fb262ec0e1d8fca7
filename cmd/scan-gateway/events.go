package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/scan-gateway/internal/domain"
	kafkaInfra "github.com/wms-platform/scan-gateway/internal/infrastructure/kafka"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/internal/pairing"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
)

const observerTimeout = 5 * time.Second

// newPipelineObserver bridges pipeline events to metrics, the event bus and
// the assignment audit trail. publisher and history may be nil.
func newPipelineObserver(
	machine *pairing.Machine,
	publisher *kafkaInfra.EventPublisher,
	history domain.AssignmentHistory,
	logger *logging.Logger,
	m *metrics.Metrics,
) notify.Handler {
	log := logger.WithComponent("pipeline-observer")

	publish := func(event domain.Event) {
		if publisher == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
		defer cancel()
		if err := publisher.Publish(ctx, event); err != nil {
			log.WithError(err).Warn("Event publish failed", "eventType", event.EventType())
		}
	}

	return func(event domain.Event) {
		switch e := event.(type) {
		case *domain.ProcessingStateChangedEvent:
			m.SetProcessingBusy(e.Busy)

		case *domain.ScanRejectedEvent:
			m.RecordScanRejected()
			publish(e)

		case *domain.AssignmentCompletedEvent:
			m.RecordAssignment(e.Success)
			m.SetPendingCandidate(machine.Pending())
			publish(e)
			if history != nil {
				ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
				defer cancel()
				record := domain.AssignmentRecord{
					ID:          uuid.New().String(),
					ContainerID: e.ContainerID,
					TagCode:     e.TagCode,
					Orders:      e.Orders,
					Success:     e.Success,
					Reason:      e.Reason,
					CompletedAt: e.At,
				}
				if err := history.Record(ctx, record); err != nil {
					log.WithError(err).Warn("Assignment history write failed", "containerId", e.ContainerID)
				}
			}

		case *domain.DeviceErrorEvent:
			publish(e)
		}
	}
}
