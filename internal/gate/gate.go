// Package gate wraps one barcode-processing pipeline so that at most one
// scan is in flight at a time. Concurrent arrivals are rejected and counted,
// never queued.
package gate

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/pkg/logging"
)

// Config holds single-flight gate configuration
type Config struct {
	// LookupPrefix selects scans that need a remote lookup before being
	// replayed. Scans without the prefix bypass the remote call entirely.
	LookupPrefix string

	// LookupTimeout bounds the remote lookup. Expiry means silence, not a
	// retry.
	LookupTimeout time.Duration
}

// DefaultConfig returns sensible gate defaults
func DefaultConfig() Config {
	return Config{
		LookupPrefix:  "LPN-",
		LookupTimeout: 3 * time.Second,
	}
}

// Gate owns the processing slot. The slot is acquired with a compare-and-swap
// and released in a deferred block on every completion path, so a panicking
// pipeline cannot leak it.
type Gate struct {
	config   Config
	busy     atomic.Bool
	rejected atomic.Uint64

	resolver domain.TagResolver
	emitter  domain.KeystrokeEmitter
	notifier *notify.Notifier
	logger   *logging.Logger
}

// New creates a Gate
func New(config Config, resolver domain.TagResolver, emitter domain.KeystrokeEmitter, notifier *notify.Notifier, logger *logging.Logger) *Gate {
	return &Gate{
		config:   config,
		resolver: resolver,
		emitter:  emitter,
		notifier: notifier,
		logger:   logger.WithComponent("gate"),
	}
}

// Submit offers a scan to the gate without blocking. If the slot is free the
// pipeline runs asynchronously and Submit returns true. If the slot is
// occupied the scan is dropped, the rejection counter is incremented, a
// ScanRejected event is emitted, and Submit returns false.
func (g *Gate) Submit(ctx context.Context, scan domain.ScanEvent) bool {
	if !g.busy.CompareAndSwap(false, true) {
		g.rejected.Add(1)
		g.logger.WithScan(scan.Barcode, scan.Sequence).Warn("Scan rejected, pipeline busy")
		g.notifier.Emit(&domain.ScanRejectedEvent{
			Barcode:  scan.Barcode,
			Sequence: scan.Sequence,
			At:       time.Now().UTC(),
		})
		return false
	}

	g.notifier.Emit(&domain.ProcessingStateChangedEvent{Busy: true, At: time.Now().UTC()})

	go g.run(ctx, scan)
	return true
}

// Busy reports slot occupancy for status display
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// Rejected returns the cumulative rejection count
func (g *Gate) Rejected() uint64 {
	return g.rejected.Load()
}

// ResetRejected clears the rejection counter
func (g *Gate) ResetRejected() {
	g.rejected.Store(0)
}

func (g *Gate) run(ctx context.Context, scan domain.ScanEvent) {
	defer func() {
		if recovered := recover(); recovered != nil {
			g.logger.Panic(recovered)
		}
		g.busy.Store(false)
		g.notifier.Emit(&domain.ProcessingStateChangedEvent{Busy: false, At: time.Now().UTC()})
	}()

	log := g.logger.WithScan(scan.Barcode, scan.Sequence)

	if g.config.LookupPrefix == "" || !strings.HasPrefix(scan.Barcode, g.config.LookupPrefix) {
		// No remote resolution required, forward unmodified
		if err := g.emitter.EmitKeystrokes(ctx, scan.Barcode); err != nil {
			log.WithError(err).Warn("Keystroke emission failed")
		}
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.config.LookupTimeout)
	defer cancel()

	text, err := g.resolver.LookupTag(lookupCtx, scan.Barcode)
	if err != nil {
		// Fail silent: a malfunctioning remote service must never cause
		// duplicate or garbage keyboard input.
		log.WithError(err).Warn("Lookup yielded no result, forwarding nothing")
		return
	}
	if text == "" {
		log.Debug("Lookup returned empty text, forwarding nothing")
		return
	}

	if err := g.emitter.EmitKeystrokes(ctx, text); err != nil {
		log.WithError(err).Warn("Keystroke emission failed")
	}
}
