package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scan-gateway/internal/application"
	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/gate"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/internal/pairing"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
	testhelpers "github.com/wms-platform/scan-gateway/pkg/testing"
)

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

// slowRemote resolves after a delay so the pipeline is still running when the
// HTTP handler has long since returned
type slowRemote struct{}

func (slowRemote) LookupTag(ctx context.Context, code string) (string, error) {
	select {
	case <-time.After(50 * time.Millisecond):
		return "RESOLVED " + code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (slowRemote) ClassifyContainer(ctx context.Context, code string) (*domain.ContainerPayload, error) {
	return nil, nil
}

func (slowRemote) LinkContainerToTag(ctx context.Context, container domain.ContainerPayload, tag string) error {
	return nil
}

type recordingEmitter struct {
	mu    sync.Mutex
	texts []string
}

func (e *recordingEmitter) EmitKeystrokes(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	return nil
}

func (e *recordingEmitter) emitted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

func TestInjectScanOutlivesRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	logger := testLogger()
	notifier := notify.New(logger)
	emitter := &recordingEmitter{}
	remote := slowRemote{}

	g := gate.New(gate.DefaultConfig(), remote, emitter, notifier, logger)
	p := pairing.New(pairing.DefaultConfig(), remote, remote, emitter, notifier, logger)
	p.Start(context.Background())
	t.Cleanup(p.Stop)

	service, err := application.NewScanService(
		domain.ModeLookup, g, p, emitter, notifier, logger,
		metrics.New(metrics.DefaultConfig("test")),
	)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/api/v1/scan", injectScanHandler(service))

	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan",
		strings.NewReader(`{"line":"LPN-00123"}`)).WithContext(reqCtx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	// The request context dies the moment the response is written. The
	// lookup still in flight must not die with it.
	cancel()

	testhelpers.AssertEventually(t, func() bool {
		got := emitter.emitted()
		return len(got) == 1 && got[0] == "RESOLVED LPN-00123"
	}, time.Second, "injected scan resolves and emits after the request ends")
}
