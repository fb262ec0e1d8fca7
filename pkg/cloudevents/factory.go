package cloudevents

import (
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for scan-gateway domain events
type EventFactory struct {
	source    string
	stationID string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source, stationID string) *EventFactory {
	return &EventFactory{source: source, stationID: stationID}
}

// CreateEvent creates a new Event with the given parameters
func (f *EventFactory) CreateEvent(eventType, subject string, data interface{}) *Event {
	return &Event{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		StationID:       f.stationID,
	}
}

// CreateAssignmentCompletedEvent creates an AssignmentCompleted event
func (f *EventFactory) CreateAssignmentCompletedEvent(data AssignmentCompletedData) *Event {
	return f.CreateEvent(AssignmentCompleted, "container/"+data.ContainerID, data)
}

// CreateScanRejectedEvent creates a ScanRejected event
func (f *EventFactory) CreateScanRejectedEvent(data ScanRejectedData) *Event {
	return f.CreateEvent(ScanRejected, "scan/"+data.Barcode, data)
}

// CreateDeviceErrorEvent creates a DeviceError event
func (f *EventFactory) CreateDeviceErrorEvent(data DeviceErrorData) *Event {
	return f.CreateEvent(DeviceError, "device/"+data.Port, data)
}
