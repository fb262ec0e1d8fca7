// Package application routes framed scans into the mode-specific pipelines
// and exposes the counters and status the control plane reports.
package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/gate"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/internal/pairing"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
)

// ScanService is the entry point for framed scan lines. One instance owns
// the operating mode and the two stateful pipelines.
type ScanService struct {
	modeMu sync.RWMutex
	mode   domain.Mode

	sequence atomic.Uint64

	gate     *gate.Gate
	pairing  *pairing.Machine
	emitter  domain.KeystrokeEmitter
	notifier *notify.Notifier
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewScanService creates a ScanService starting in the given mode
func NewScanService(
	mode domain.Mode,
	g *gate.Gate,
	p *pairing.Machine,
	emitter domain.KeystrokeEmitter,
	notifier *notify.Notifier,
	logger *logging.Logger,
	m *metrics.Metrics,
) (*ScanService, error) {
	if !mode.IsValid() {
		return nil, domain.ErrInvalidMode
	}
	return &ScanService{
		mode:     mode,
		gate:     g,
		pairing:  p,
		emitter:  emitter,
		notifier: notifier,
		logger:   logger.WithComponent("scan-service"),
		metrics:  m,
	}, nil
}

// OnScanLine accepts one framed barcode line. Blank lines are scanner
// keepalive noise and are ignored silently. The scan is stamped with its
// arrival sequence and routed per the current mode.
func (s *ScanService) OnScanLine(ctx context.Context, raw string) {
	barcode := strings.TrimSpace(raw)
	if barcode == "" {
		return
	}

	scan := domain.ScanEvent{
		Barcode:  barcode,
		Sequence: s.sequence.Add(1),
		At:       time.Now().UTC(),
	}

	mode := s.Mode()
	s.metrics.RecordScan(string(mode))
	s.logger.WithScan(scan.Barcode, scan.Sequence).Debug("Scan routed", "mode", string(mode))

	switch mode {
	case domain.ModePassthrough:
		if err := s.emitter.EmitKeystrokes(ctx, scan.Barcode); err != nil {
			s.logger.WithScan(scan.Barcode, scan.Sequence).WithError(err).Warn("Keystroke emission failed")
		}
	case domain.ModeLookup:
		s.gate.Submit(ctx, scan)
	case domain.ModePairing:
		s.pairing.HandleScan(ctx, scan)
	}
}

// Mode returns the current operating mode
func (s *ScanService) Mode() domain.Mode {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.mode
}

// SetMode switches the operating mode. The switch takes effect on the next
// scan; in-flight pipelines are left undisturbed.
func (s *ScanService) SetMode(mode domain.Mode) error {
	if !mode.IsValid() {
		return domain.ErrInvalidMode
	}

	s.modeMu.Lock()
	previous := s.mode
	s.mode = mode
	s.modeMu.Unlock()

	if previous != mode {
		s.logger.Info("Operating mode changed", "from", string(previous), "to", string(mode))
	}
	return nil
}

// Status is a point-in-time snapshot for the control plane
type Status struct {
	Mode        domain.Mode `json:"mode"`
	Busy        bool        `json:"busy"`
	Pending     bool        `json:"pendingContainer"`
	Rejected    uint64      `json:"rejectedCount"`
	Assignments uint64      `json:"assignmentCount"`
	Failures    uint64      `json:"failureCount"`
}

// Status reports the current pipeline state and counters
func (s *ScanService) Status() Status {
	return Status{
		Mode:        s.Mode(),
		Busy:        s.gate.Busy(),
		Pending:     s.pairing.Pending(),
		Rejected:    s.gate.Rejected(),
		Assignments: s.pairing.Assignments(),
		Failures:    s.pairing.Failures(),
	}
}

// Counter names accepted by ResetCounter
const (
	CounterRejected    = "rejected"
	CounterAssignments = "assignments"
	CounterFailures    = "failures"
	CounterAll         = "all"
)

// ResetCounter resets one counter, or all of them
func (s *ScanService) ResetCounter(name string) error {
	switch name {
	case CounterRejected:
		s.gate.ResetRejected()
	case CounterAssignments:
		s.pairing.ResetAssignments()
	case CounterFailures:
		s.pairing.ResetFailures()
	case CounterAll, "":
		s.gate.ResetRejected()
		s.pairing.ResetAssignments()
		s.pairing.ResetFailures()
	default:
		return fmt.Errorf("unknown counter %q", name)
	}
	return nil
}

// Subscribe registers an observer for pipeline events
func (s *ScanService) Subscribe(handler notify.Handler) func() {
	return s.notifier.Subscribe(handler)
}
