package gate

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	testhelpers "github.com/wms-platform/scan-gateway/pkg/testing"
)

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

type fakeResolver struct {
	mu      sync.Mutex
	text    string
	err     error
	block   chan struct{}
	calls   int
	lastArg string
}

func (r *fakeResolver) LookupTag(ctx context.Context, code string) (string, error) {
	r.mu.Lock()
	r.calls++
	r.lastArg = code
	block := r.block
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.text, r.err
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeResolver) lastCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastArg
}

type fakeEmitter struct {
	mu    sync.Mutex
	texts []string
}

func (e *fakeEmitter) EmitKeystrokes(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	return nil
}

func (e *fakeEmitter) emitted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

func scan(barcode string, seq uint64) domain.ScanEvent {
	return domain.ScanEvent{Barcode: barcode, Sequence: seq, At: time.Now().UTC()}
}

func TestSubmitResolvesAndEmits(t *testing.T) {
	resolver := &fakeResolver{text: "BIN A4 / 3 ORDERS"}
	emitter := &fakeEmitter{}
	g := New(DefaultConfig(), resolver, emitter, notify.New(testLogger()), testLogger())

	accepted := g.Submit(context.Background(), scan("LPN-00123", 1))
	require.True(t, accepted)

	testhelpers.AssertEventually(t, func() bool {
		return len(emitter.emitted()) == 1
	}, time.Second, "resolved text emitted")
	assert.Equal(t, []string{"BIN A4 / 3 ORDERS"}, emitter.emitted())
	assert.Equal(t, "LPN-00123", resolver.lastCode())
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	resolver := &fakeResolver{text: "X", block: release}
	emitter := &fakeEmitter{}
	g := New(DefaultConfig(), resolver, emitter, notify.New(testLogger()), testLogger())

	require.True(t, g.Submit(context.Background(), scan("LPN-1", 1)))
	testhelpers.AssertEventually(t, func() bool { return resolver.callCount() == 1 }, time.Second, "first lookup started")

	// Everything arriving while the slot is held is dropped, not queued
	assert.False(t, g.Submit(context.Background(), scan("LPN-2", 2)))
	assert.False(t, g.Submit(context.Background(), scan("LPN-3", 3)))
	assert.Equal(t, uint64(2), g.Rejected())
	assert.True(t, g.Busy())

	close(release)

	testhelpers.AssertEventually(t, func() bool { return !g.Busy() }, time.Second, "slot released after completion")

	// Rejected scans are gone for good; only the first result was emitted
	assert.Equal(t, []string{"X"}, emitter.emitted())
	assert.Equal(t, 1, resolver.callCount())

	// The gate accepts again
	require.True(t, g.Submit(context.Background(), scan("LPN-4", 4)))
}

func TestSubmitLookupErrorEmitsNothing(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrNoResult}
	emitter := &fakeEmitter{}
	g := New(DefaultConfig(), resolver, emitter, notify.New(testLogger()), testLogger())

	require.True(t, g.Submit(context.Background(), scan("LPN-00123", 1)))

	testhelpers.AssertEventually(t, func() bool { return !g.Busy() }, time.Second, "slot released after failure")
	assert.Empty(t, emitter.emitted())
}

func TestSubmitLookupTimeoutEmitsNothing(t *testing.T) {
	resolver := &fakeResolver{text: "late", block: make(chan struct{})}
	emitter := &fakeEmitter{}

	config := DefaultConfig()
	config.LookupTimeout = 20 * time.Millisecond
	g := New(config, resolver, emitter, notify.New(testLogger()), testLogger())

	require.True(t, g.Submit(context.Background(), scan("LPN-00123", 1)))

	testhelpers.AssertEventually(t, func() bool { return !g.Busy() }, time.Second, "slot released on timeout")
	assert.Empty(t, emitter.emitted())
}

func TestSubmitNonPrefixedBypassesLookup(t *testing.T) {
	resolver := &fakeResolver{text: "should not be used"}
	emitter := &fakeEmitter{}
	g := New(DefaultConfig(), resolver, emitter, notify.New(testLogger()), testLogger())

	require.True(t, g.Submit(context.Background(), scan("PLAIN-42", 1)))

	testhelpers.AssertEventually(t, func() bool {
		return len(emitter.emitted()) == 1
	}, time.Second, "barcode forwarded unmodified")
	assert.Equal(t, []string{"PLAIN-42"}, emitter.emitted())
	assert.Equal(t, 0, resolver.callCount())
}

func TestRejectionEmitsEvent(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	resolver := &fakeResolver{text: "X", block: release}
	notifier := notify.New(testLogger())

	var mu sync.Mutex
	var rejected []string
	notifier.Subscribe(func(event domain.Event) {
		if e, ok := event.(*domain.ScanRejectedEvent); ok {
			mu.Lock()
			rejected = append(rejected, e.Barcode)
			mu.Unlock()
		}
	})

	g := New(DefaultConfig(), resolver, &fakeEmitter{}, notifier, testLogger())

	require.True(t, g.Submit(context.Background(), scan("LPN-1", 1)))
	require.False(t, g.Submit(context.Background(), scan("LPN-2", 2)))

	testhelpers.AssertEventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(rejected) == 1 && rejected[0] == "LPN-2"
	}, time.Second, "rejection event carries the dropped barcode")
}

func TestResetRejected(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	g := New(DefaultConfig(), &fakeResolver{block: release}, &fakeEmitter{}, notify.New(testLogger()), testLogger())

	require.True(t, g.Submit(context.Background(), scan("LPN-1", 1)))
	g.Submit(context.Background(), scan("LPN-2", 2))
	require.Equal(t, uint64(1), g.Rejected())

	g.ResetRejected()
	assert.Equal(t, uint64(0), g.Rejected())
}
