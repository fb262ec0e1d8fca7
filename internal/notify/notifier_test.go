package notify

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	testhelpers "github.com/wms-platform/scan-gateway/pkg/testing"
)

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

func TestEmitDeliversToAllSubscribers(t *testing.T) {
	n := New(testLogger())

	var first, second atomic.Int32
	n.Subscribe(func(event domain.Event) { first.Add(1) })
	n.Subscribe(func(event domain.Event) { second.Add(1) })

	n.Emit(&domain.ScanRejectedEvent{Barcode: "LPN-1", Sequence: 1, At: time.Now()})

	testhelpers.AssertEventually(t, func() bool {
		return first.Load() == 1 && second.Load() == 1
	}, time.Second, "both subscribers receive the event")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := New(testLogger())

	var count atomic.Int32
	unsubscribe := n.Subscribe(func(event domain.Event) { count.Add(1) })

	n.Emit(&domain.DeviceErrorEvent{Port: "COM3", Error: "boom", At: time.Now()})
	testhelpers.AssertEventually(t, func() bool { return count.Load() == 1 }, time.Second, "first event delivered")

	unsubscribe()
	n.Emit(&domain.DeviceErrorEvent{Port: "COM3", Error: "boom", At: time.Now()})

	testhelpers.AssertNever(t, func() bool { return count.Load() > 1 }, 50*time.Millisecond, "no delivery after unsubscribe")
}

func TestPanickingSubscriberDoesNotAffectOthers(t *testing.T) {
	n := New(testLogger())

	var count atomic.Int32
	n.Subscribe(func(event domain.Event) { panic("subscriber bug") })
	n.Subscribe(func(event domain.Event) { count.Add(1) })

	n.Emit(&domain.ProcessingStateChangedEvent{Busy: true, At: time.Now()})

	testhelpers.AssertEventually(t, func() bool { return count.Load() == 1 }, time.Second, "healthy subscriber still served")
}

func TestEmitWithoutSubscribers(t *testing.T) {
	n := New(testLogger())
	assert.NotPanics(t, func() {
		n.Emit(&domain.ProcessingStateChangedEvent{Busy: false, At: time.Now()})
	})
}
