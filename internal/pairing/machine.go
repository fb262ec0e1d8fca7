// Package pairing implements the two-phase container/tag protocol: a scan
// classified as a container becomes the pending candidate, and a subsequent
// tag-prefixed scan consumes it to trigger a background remote link.
package pairing

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/pkg/logging"
)

// Config holds pairing state machine configuration
type Config struct {
	// TagPrefix marks scans that denote a cross-reference code. Tag scans
	// never trigger container classification.
	TagPrefix string

	// ClassifyTimeout bounds the best-effort container classification call.
	ClassifyTimeout time.Duration

	// LinkTimeout bounds the background link call.
	LinkTimeout time.Duration

	// ForwardBuffer sizes the keystroke forwarding queue. Forwarding order
	// matches scan arrival order; the queue only absorbs emitter latency.
	ForwardBuffer int
}

// DefaultConfig returns sensible pairing defaults
func DefaultConfig() Config {
	return Config{
		TagPrefix:       "TAG-",
		ClassifyTimeout: 2 * time.Second,
		LinkTimeout:     5 * time.Second,
		ForwardBuffer:   64,
	}
}

// Machine tracks at most one pending container candidate. All candidate
// mutations happen under a single mutex; stateSeq records the sequence number
// of the scan that last installed or consumed the candidate, so a
// classification result that lost the race is discarded rather than applied
// retroactively.
type Machine struct {
	config Config

	mu        sync.Mutex
	candidate *domain.ContainerPayload
	stateSeq  uint64

	assignments atomic.Uint64
	failures    atomic.Uint64

	classifier domain.ContainerClassifier
	linker     domain.ContainerLinker
	emitter    domain.KeystrokeEmitter
	notifier   *notify.Notifier
	logger     *logging.Logger

	forwardCh chan string
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a Machine. Start must be called before scans are handled.
func New(config Config, classifier domain.ContainerClassifier, linker domain.ContainerLinker, emitter domain.KeystrokeEmitter, notifier *notify.Notifier, logger *logging.Logger) *Machine {
	if config.ForwardBuffer <= 0 {
		config.ForwardBuffer = DefaultConfig().ForwardBuffer
	}
	return &Machine{
		config:     config,
		classifier: classifier,
		linker:     linker,
		emitter:    emitter,
		notifier:   notifier,
		logger:     logger.WithComponent("pairing"),
		forwardCh:  make(chan string, config.ForwardBuffer),
		done:       make(chan struct{}),
	}
}

// Start launches the keystroke forwarder. Forwarding runs on a single
// goroutine so emission order matches scan arrival order without the scan
// handler ever waiting on the emitter.
func (m *Machine) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.forwardLoop(ctx)
	})
}

// Stop drains in-flight background work and stops the forwarder
func (m *Machine) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// HandleScan processes one scan. The raw scan is always queued for keyboard
// forwarding first; classification and linking happen concurrently and never
// delay forwarding.
func (m *Machine) HandleScan(ctx context.Context, scan domain.ScanEvent) {
	// Step 1: unconditional forward. This is the primary operational
	// guarantee of pairing mode.
	select {
	case m.forwardCh <- scan.Barcode:
	case <-m.done:
		return
	}

	if !m.isTag(scan.Barcode) {
		m.wg.Add(1)
		go m.classify(ctx, scan)
		return
	}

	// Tag scan: consume the candidate if one is pending.
	m.mu.Lock()
	candidate := m.candidate
	if candidate != nil {
		m.candidate = nil
		m.stateSeq = scan.Sequence
	}
	m.mu.Unlock()

	if candidate == nil {
		// Tag without container is a no-op, not an error
		m.logger.WithScan(scan.Barcode, scan.Sequence).Debug("Tag scan with no pending container")
		return
	}

	attempt := domain.LinkAttempt{
		ID:        uuid.New().String(),
		Container: *candidate,
		Tag:       scan.Barcode,
		StartedAt: time.Now().UTC(),
	}

	m.wg.Add(1)
	go m.link(ctx, attempt)
}

// Pending reports whether a container candidate is currently held
func (m *Machine) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candidate != nil
}

// PendingContainer returns the pending candidate, if any
func (m *Machine) PendingContainer() *domain.ContainerPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.candidate == nil {
		return nil
	}
	copied := *m.candidate
	return &copied
}

// Assignments returns the cumulative successful link count
func (m *Machine) Assignments() uint64 {
	return m.assignments.Load()
}

// Failures returns the cumulative failed link count
func (m *Machine) Failures() uint64 {
	return m.failures.Load()
}

// ResetAssignments clears the assignment counter
func (m *Machine) ResetAssignments() {
	m.assignments.Store(0)
}

// ResetFailures clears the failure counter
func (m *Machine) ResetFailures() {
	m.failures.Store(0)
}

func (m *Machine) isTag(barcode string) bool {
	return m.config.TagPrefix != "" && strings.HasPrefix(barcode, m.config.TagPrefix)
}

func (m *Machine) forwardLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case text := <-m.forwardCh:
			m.emit(ctx, text)
		case <-m.done:
			// Drain whatever was queued before shutdown
			for {
				select {
				case text := <-m.forwardCh:
					m.emit(ctx, text)
				default:
					return
				}
			}
		}
	}
}

func (m *Machine) emit(ctx context.Context, text string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			m.logger.Panic(recovered)
		}
	}()
	if err := m.emitter.EmitKeystrokes(ctx, text); err != nil {
		m.logger.WithError(err).Warn("Keystroke emission failed", "barcode", text)
	}
}

// classify runs the best-effort container classification. A result is only
// installed if no later scan has touched the candidate state in the
// meantime; late results are discarded, never applied retroactively.
func (m *Machine) classify(ctx context.Context, scan domain.ScanEvent) {
	defer m.wg.Done()
	defer func() {
		if recovered := recover(); recovered != nil {
			m.logger.Panic(recovered)
		}
	}()

	classifyCtx, cancel := context.WithTimeout(ctx, m.config.ClassifyTimeout)
	defer cancel()

	payload, err := m.classifier.ClassifyContainer(classifyCtx, scan.Barcode)
	if err != nil {
		m.logger.WithScan(scan.Barcode, scan.Sequence).WithError(err).Debug("Classification failed, scan not treated as container")
		return
	}
	if payload == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if scan.Sequence <= m.stateSeq {
		// A later scan already replaced or consumed the candidate
		m.logger.WithScan(scan.Barcode, scan.Sequence).Debug("Discarding stale classification result")
		return
	}

	m.candidate = payload
	m.stateSeq = scan.Sequence
	m.logger.WithScan(scan.Barcode, scan.Sequence).Info("Container candidate pending",
		"containerId", payload.ContainerID,
		"orders", len(payload.Orders),
	)
}

func (m *Machine) link(ctx context.Context, attempt domain.LinkAttempt) {
	defer m.wg.Done()

	var success bool
	var reason string

	defer func() {
		if recovered := recover(); recovered != nil {
			m.logger.Panic(recovered)
			success = false
			reason = "panic during link attempt"
		}
		if success {
			m.assignments.Add(1)
		} else {
			m.failures.Add(1)
		}
		m.notifier.Emit(&domain.AssignmentCompletedEvent{
			ContainerID: attempt.Container.ContainerID,
			TagCode:     attempt.Tag,
			Orders:      attempt.Container.Orders,
			Success:     success,
			Reason:      reason,
			At:          time.Now().UTC(),
		})
	}()

	linkCtx, cancel := context.WithTimeout(ctx, m.config.LinkTimeout)
	defer cancel()

	if err := m.linker.LinkContainerToTag(linkCtx, attempt.Container, attempt.Tag); err != nil {
		reason = err.Error()
		m.logger.WithError(err).Warn("Link attempt failed",
			"containerId", attempt.Container.ContainerID,
			"tag", attempt.Tag,
		)
		return
	}

	success = true
	m.logger.Info("Container linked to tag",
		"containerId", attempt.Container.ContainerID,
		"tag", attempt.Tag,
		"duration", time.Since(attempt.StartedAt).String(),
	)
}
