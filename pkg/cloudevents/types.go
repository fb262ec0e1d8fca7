package cloudevents

import "time"

// Event type names emitted by the scan gateway
const (
	AssignmentCompleted = "wms.scan.assignment.completed"
	ScanRejected        = "wms.scan.rejected"
	DeviceError         = "wms.scan.device.error"
)

// Event is a CloudEvents v1.0 envelope for scan-gateway domain events
type Event struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Extension attributes
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	StationID     string `json:"wmsstationid,omitempty"`
}

// AssignmentCompletedData is the payload of an AssignmentCompleted event
type AssignmentCompletedData struct {
	ContainerID string    `json:"containerId"`
	TagCode     string    `json:"tagCode"`
	Orders      []string  `json:"orders,omitempty"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// ScanRejectedData is the payload of a ScanRejected event
type ScanRejectedData struct {
	Barcode    string    `json:"barcode"`
	Sequence   uint64    `json:"sequence"`
	RejectedAt time.Time `json:"rejectedAt"`
}

// DeviceErrorData is the payload of a DeviceError event
type DeviceErrorData struct {
	Port       string    `json:"port"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurredAt"`
}
