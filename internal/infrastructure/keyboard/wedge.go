// Package keyboard implements keystroke replay. The OS-level injection
// primitive lives behind an io.Writer so the host wires the platform wedge;
// this package owns pacing and terminator handling.
package keyboard

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
)

// Config holds keystroke emission configuration
type Config struct {
	// InterKeyDelay paces individual keystrokes so slow foreground
	// applications do not drop input.
	InterKeyDelay time.Duration

	// AppendTerminator appends Terminator after the replayed text
	AppendTerminator bool

	// Terminator defaults to "\n" when AppendTerminator is set
	Terminator string
}

// DefaultConfig returns sensible wedge defaults
func DefaultConfig() Config {
	return Config{
		InterKeyDelay:    10 * time.Millisecond,
		AppendTerminator: true,
		Terminator:       "\n",
	}
}

// WedgeEmitter replays text one keystroke at a time to the underlying
// writer. A mutex serializes emissions so two concurrent replays cannot
// interleave their keystrokes.
type WedgeEmitter struct {
	config  Config
	mu      sync.Mutex
	w       io.Writer
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New creates a WedgeEmitter targeting w. metrics may be nil.
func New(config Config, w io.Writer, logger *logging.Logger, m *metrics.Metrics) *WedgeEmitter {
	if config.AppendTerminator && config.Terminator == "" {
		config.Terminator = "\n"
	}
	return &WedgeEmitter{
		config:  config,
		w:       w,
		logger:  logger.WithComponent("keyboard"),
		metrics: m,
	}
}

// EmitKeystrokes replays text to the wedge target. Replay is all-or-nothing
// with respect to cancellation: an already-canceled context yields no output,
// and a replay that has started runs to completion. A truncated barcode
// prefix typed into the foreground target is worse than silence.
func (e *WedgeEmitter) EmitKeystrokes(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := ctx.Err()
	if err == nil {
		err = e.write(text)
		if err == nil && e.config.AppendTerminator {
			err = e.write(e.config.Terminator)
		}
	}

	if e.metrics != nil {
		e.metrics.RecordKeystrokeEmit(err == nil)
	}
	if err != nil {
		e.logger.WithError(err).Warn("Keystroke replay failed")
	}
	return err
}

func (e *WedgeEmitter) write(text string) error {
	for _, r := range text {
		if _, err := io.WriteString(e.w, string(r)); err != nil {
			return err
		}
		if e.config.InterKeyDelay > 0 {
			time.Sleep(e.config.InterKeyDelay)
		}
	}
	return nil
}
