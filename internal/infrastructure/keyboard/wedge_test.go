package keyboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scan-gateway/pkg/logging"
)

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEmitKeystrokes(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		text   string
		want   string
	}{
		{
			name:   "terminator appended",
			config: Config{AppendTerminator: true, Terminator: "\n"},
			text:   "LPN-00123",
			want:   "LPN-00123\n",
		},
		{
			name:   "no terminator",
			config: Config{AppendTerminator: false},
			text:   "LPN-00123",
			want:   "LPN-00123",
		},
		{
			name:   "empty text writes nothing",
			config: Config{AppendTerminator: true, Terminator: "\n"},
			text:   "",
			want:   "",
		},
		{
			name:   "unicode survives rune-wise replay",
			config: Config{},
			text:   "ZÖNE-Ä1",
			want:   "ZÖNE-Ä1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &safeBuffer{}
			e := New(tt.config, buf, testLogger(), nil)

			err := e.EmitKeystrokes(context.Background(), tt.text)

			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestEmitKeystrokesCanceledBeforeStart(t *testing.T) {
	buf := &safeBuffer{}
	e := New(Config{AppendTerminator: true, Terminator: "\n"}, buf, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.EmitKeystrokes(ctx, "PLAIN-123456")

	// Cancellation before the first keystroke means silence, not a prefix
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

func TestEmitKeystrokesRunsToCompletionDespiteCancel(t *testing.T) {
	buf := &safeBuffer{}
	config := Config{InterKeyDelay: 5 * time.Millisecond, AppendTerminator: true, Terminator: "\n"}
	e := New(config, buf, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	err := e.EmitKeystrokes(ctx, "PLAIN-123456")

	// A replay that has started must never leave a truncated barcode
	require.NoError(t, err)
	assert.Equal(t, "PLAIN-123456\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("wedge unavailable")
}

func TestEmitKeystrokesWriterError(t *testing.T) {
	e := New(Config{}, failingWriter{}, testLogger(), nil)

	err := e.EmitKeystrokes(context.Background(), "X")
	assert.Error(t, err)
}

func TestConcurrentEmissionsDoNotInterleave(t *testing.T) {
	buf := &safeBuffer{}
	e := New(Config{AppendTerminator: true, Terminator: "\n"}, buf, testLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, e.EmitKeystrokes(context.Background(), "AAAA"))
		}()
	}
	wg.Wait()

	// Each line must be one intact emission
	assert.Equal(t, "AAAA\nAAAA\nAAAA\nAAAA\nAAAA\n", buf.String())
}
