package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/pkg/logging"
)

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("test")
	config.Output = io.Discard
	return logging.New(config)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(&Config{BaseURL: server.URL, RequestTimeout: time.Second}, testLogger(), nil)
}

func TestClassifyContainer(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		wantPayload *domain.ContainerPayload
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"containerId":"C-1","orders":["O-1","O-2"],"zone":"A"}`,
			wantPayload: &domain.ContainerPayload{
				ContainerID: "C-1",
				Orders:      []string{"O-1", "O-2"},
				Zone:        "A",
			},
		},
		{
			name:    "not found means not a container",
			status:  http.StatusNotFound,
			body:    `{"code":"RESOURCE_NOT_FOUND"}`,
			wantErr: domain.ErrNoResult,
		},
		{
			name:    "missing containerId",
			status:  http.StatusOK,
			body:    `{"orders":["O-1"]}`,
			wantErr: domain.ErrNoResult,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"containerId":`,
			wantErr: errAny,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `boom`,
			wantErr: errAny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/containers/BIN-1", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			payload, err := client.ClassifyContainer(context.Background(), "BIN-1")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, payload)
				if tt.wantErr != errAny {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPayload, payload)
		})
	}
}

// errAny marks table rows that only require some error
var errAny = errors.New("any error")

func TestLookupTag(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantText string
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     `{"displayText":"BIN A4 / 3 ORDERS"}`,
			wantText: "BIN A4 / 3 ORDERS",
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{}`,
			wantErr: domain.ErrNoResult,
		},
		{
			name:    "missing displayText",
			status:  http.StatusOK,
			body:    `{"other":"field"}`,
			wantErr: domain.ErrNoResult,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: errAny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/tags/LPN-1", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			text, err := client.LookupTag(context.Background(), "LPN-1")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Empty(t, text)
				if tt.wantErr != errAny {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestLookupTagTimeout(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	text, err := client.LookupTag(ctx, "LPN-1")
	require.Error(t, err)
	assert.Empty(t, text)
}

func TestLinkContainerToTag(t *testing.T) {
	t.Run("success posts tag and orders", func(t *testing.T) {
		var received struct {
			TagCode string   `json:"tagCode"`
			Orders  []string `json:"orders"`
		}
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/containers/C-1/assignments", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
		}))

		container := domain.ContainerPayload{ContainerID: "C-1", Orders: []string{"O-1"}}
		err := client.LinkContainerToTag(context.Background(), container, "TAG-9")

		require.NoError(t, err)
		assert.Equal(t, "TAG-9", received.TagCode)
		assert.Equal(t, []string{"O-1"}, received.Orders)
	})

	t.Run("rejection wraps ErrLinkFailed", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))

		err := client.LinkContainerToTag(context.Background(), domain.ContainerPayload{ContainerID: "C-1"}, "TAG-9")
		assert.ErrorIs(t, err, domain.ErrLinkFailed)
	})
}
