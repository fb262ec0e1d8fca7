// Package serialport owns the COM-port connection to the barcode scanner.
// Exactly one connection is open at a time; reconnect is explicit
// disconnect-then-connect, never implicit.
package serialport

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/framing"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
)

// Config holds serial connection configuration
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultConfig returns sensible serial defaults
func DefaultConfig() Config {
	return Config{
		Port:        "",
		BaudRate:    9600,
		ReadTimeout: 250 * time.Millisecond,
	}
}

// LineHandler receives each complete framed line
type LineHandler func(ctx context.Context, line string)

// Reader reads raw chunks from the serial device, frames them, and hands
// complete lines to the handler. Read errors surface as DeviceError events
// and do not halt the loop.
type Reader struct {
	config   Config
	handler  LineHandler
	notifier *notify.Notifier
	logger   *logging.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	port   serial.Port
	framer *framing.Framer
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Reader. metrics may be nil.
func New(config Config, handler LineHandler, notifier *notify.Notifier, logger *logging.Logger, m *metrics.Metrics) *Reader {
	return &Reader{
		config:   config,
		handler:  handler,
		notifier: notifier,
		logger:   logger.WithComponent("serialport"),
		metrics:  m,
		framer:   framing.New(),
	}
}

// Connect opens the serial port and starts the read loop. Returns
// domain.ErrAlreadyOpen if a connection is already open.
func (r *Reader) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.port != nil {
		return domain.ErrAlreadyOpen
	}
	if r.config.Port == "" {
		return domain.ErrNotConnected
	}

	mode := &serial.Mode{BaudRate: r.config.BaudRate}
	port, err := serial.Open(r.config.Port, mode)
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(r.config.ReadTimeout); err != nil {
		port.Close()
		return err
	}

	// A fresh connection must not inherit a half-read barcode
	r.framer.Reset()

	loopCtx, cancel := context.WithCancel(ctx)
	r.port = port
	r.cancel = cancel
	r.done = make(chan struct{})

	if r.metrics != nil {
		r.metrics.SetSerialConnected(true)
	}
	r.logger.Info("Scanner connected", "port", r.config.Port, "baudRate", r.config.BaudRate)

	go r.readLoop(loopCtx, port, r.done)
	return nil
}

// Disconnect closes the port and stops the read loop
func (r *Reader) Disconnect() error {
	r.mu.Lock()
	port := r.port
	cancel := r.cancel
	done := r.done
	r.port = nil
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if port == nil {
		return domain.ErrNotConnected
	}

	cancel()
	err := port.Close()
	<-done

	if r.metrics != nil {
		r.metrics.SetSerialConnected(false)
	}
	r.logger.Info("Scanner disconnected", "port", r.config.Port)
	return err
}

// Connected reports whether the port is open
func (r *Reader) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port != nil
}

func (r *Reader) readLoop(ctx context.Context, port serial.Port, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := port.Read(buf)
		if err != nil {
			var portErr *serial.PortError
			if ctx.Err() != nil || (errors.As(err, &portErr) && portErr.Code() == serial.PortClosed) {
				return
			}
			// Device-level errors are observable but never halt intake
			r.logger.WithError(err).Warn("Serial read error")
			if r.metrics != nil {
				r.metrics.RecordDeviceError()
			}
			r.notifier.Emit(&domain.DeviceErrorEvent{
				Port:  r.config.Port,
				Error: err.Error(),
				At:    time.Now().UTC(),
			})
			continue
		}
		if n == 0 {
			// Read timeout with no data
			continue
		}

		if r.metrics != nil {
			r.metrics.RecordSerialBytes(n)
		}

		for _, line := range r.framer.Push(string(buf[:n])) {
			if r.metrics != nil {
				r.metrics.RecordFramedLine()
			}
			// The forward call for one scan is issued before the next
			// chunk is read; arrival order is preserved.
			r.handler(ctx, line)
		}
	}
}
