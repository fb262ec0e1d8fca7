package domain

import "time"

// Event represents a scan pipeline event observable by the host
type Event interface {
	EventType() string
	OccurredAt() time.Time
}

// ProcessingStateChangedEvent is emitted when the single-flight slot is
// acquired or released
type ProcessingStateChangedEvent struct {
	Busy bool      `json:"busy"`
	At   time.Time `json:"at"`
}

func (e *ProcessingStateChangedEvent) EventType() string     { return "scan.processing.state_changed" }
func (e *ProcessingStateChangedEvent) OccurredAt() time.Time { return e.At }

// ScanRejectedEvent is emitted when a scan arrives while the slot is occupied
type ScanRejectedEvent struct {
	Barcode  string    `json:"barcode"`
	Sequence uint64    `json:"sequence"`
	At       time.Time `json:"at"`
}

func (e *ScanRejectedEvent) EventType() string     { return "scan.rejected" }
func (e *ScanRejectedEvent) OccurredAt() time.Time { return e.At }

// AssignmentCompletedEvent is emitted when a background link attempt finishes
type AssignmentCompletedEvent struct {
	ContainerID string    `json:"containerId"`
	TagCode     string    `json:"tagCode"`
	Orders      []string  `json:"orders,omitempty"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

func (e *AssignmentCompletedEvent) EventType() string     { return "scan.assignment.completed" }
func (e *AssignmentCompletedEvent) OccurredAt() time.Time { return e.At }

// DeviceErrorEvent is emitted when the serial device reports a read error.
// The framer keeps accepting subsequent chunks.
type DeviceErrorEvent struct {
	Port  string    `json:"port"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

func (e *DeviceErrorEvent) EventType() string     { return "scan.device.error" }
func (e *DeviceErrorEvent) OccurredAt() time.Time { return e.At }
