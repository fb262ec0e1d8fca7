package domain

import (
	"errors"
	"time"
)

// Scan pipeline errors
var (
	ErrNoResult        = errors.New("no usable result")
	ErrInvalidMode     = errors.New("invalid operating mode")
	ErrNotConnected    = errors.New("scanner not connected")
	ErrAlreadyOpen     = errors.New("scanner connection already open")
	ErrEmptyScan       = errors.New("empty scan text")
	ErrLinkFailed      = errors.New("container link rejected by remote service")
	ErrHistoryDisabled = errors.New("assignment history is not enabled")
)

// Mode represents the operating mode of the scan pipeline
type Mode string

const (
	// ModePassthrough forwards every scan directly to keyboard emission
	ModePassthrough Mode = "passthrough"
	// ModeLookup resolves prefixed scans remotely under a single-flight gate
	ModeLookup Mode = "lookup"
	// ModePairing pairs container scans with tag scans and links them remotely
	ModePairing Mode = "pairing"
)

// IsValid checks if the mode is valid
func (m Mode) IsValid() bool {
	switch m {
	case ModePassthrough, ModeLookup, ModePairing:
		return true
	default:
		return false
	}
}

// ScanEvent is one complete barcode read from the scanner.
// Sequence reflects arrival order at the router.
type ScanEvent struct {
	Barcode  string
	Sequence uint64
	At       time.Time
}

// ContainerPayload holds what the classification call returned for a
// container scan, including the order list captured at detection time.
type ContainerPayload struct {
	ContainerID string   `json:"containerId" bson:"containerId"`
	Orders      []string `json:"orders" bson:"orders"`
	Zone        string   `json:"zone,omitempty" bson:"zone,omitempty"`
}

// LinkAttempt is the immutable (container, tag, payload) triple handed to a
// background task the moment a tag scan consumes a pending candidate.
type LinkAttempt struct {
	ID        string
	Container ContainerPayload
	Tag       string
	StartedAt time.Time
}

// AssignmentRecord is the durable trace of a completed link attempt
type AssignmentRecord struct {
	ID          string    `bson:"assignmentId" json:"assignmentId"`
	ContainerID string    `bson:"containerId" json:"containerId"`
	TagCode     string    `bson:"tagCode" json:"tagCode"`
	Orders      []string  `bson:"orders,omitempty" json:"orders,omitempty"`
	Success     bool      `bson:"success" json:"success"`
	Reason      string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CompletedAt time.Time `bson:"completedAt" json:"completedAt"`
}
