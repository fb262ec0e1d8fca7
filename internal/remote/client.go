// Package remote implements the bounded-time lookup and link calls against
// the WMS services. Every failure mode — transport error, timeout, non-2xx,
// malformed payload, missing field — collapses into a clean absence or
// failure signal; callers never see partial data and nothing is retried.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
	"github.com/wms-platform/scan-gateway/pkg/resilience"
)

// Config holds remote client configuration
type Config struct {
	// BaseURL of the WMS lookup/link API, e.g. http://wes-service:8020
	BaseURL string

	// RequestTimeout is a hard per-request ceiling applied by the HTTP
	// client in addition to the caller's context deadline.
	RequestTimeout time.Duration
}

// DefaultConfig returns sensible remote defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8020",
		RequestTimeout: 10 * time.Second,
	}
}

// Client implements domain.ContainerClassifier, domain.TagResolver and
// domain.ContainerLinker over HTTP, behind a shared circuit breaker.
type Client struct {
	config  *Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New creates a Client. metrics may be nil.
func New(config *Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	log := logger.WithComponent("remote")

	var observer resilience.StateObserver
	if m != nil {
		observer = func(name string, from, to gobreaker.State) {
			m.SetCircuitBreakerState(name, int(to))
			if to == gobreaker.StateOpen {
				m.RecordCircuitBreakerTrip(name)
			}
		}
	}

	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("wms-remote"),
		log.Logger,
		observer,
	)

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.RequestTimeout},
		breaker: breaker,
		logger:  log,
		metrics: m,
		tracer:  otel.Tracer("scan-gateway/remote"),
	}
}

type containerResponse struct {
	ContainerID string   `json:"containerId"`
	Orders      []string `json:"orders"`
	Zone        string   `json:"zone"`
}

type tagResponse struct {
	DisplayText string `json:"displayText"`
}

type linkRequest struct {
	TagCode string   `json:"tagCode"`
	Orders  []string `json:"orders,omitempty"`
}

// ClassifyContainer resolves a scanned code to a container payload. A 404 or
// any failure returns (nil, error); callers treat both as "not a container".
func (c *Client) ClassifyContainer(ctx context.Context, code string) (*domain.ContainerPayload, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "ClassifyContainer",
		trace.WithAttributes(attribute.String("scan.code", code)))
	defer span.End()

	body, err := c.get(ctx, "/api/v1/containers/"+url.PathEscape(code))
	if err != nil {
		c.observe(ctx, span, "classify", start, err)
		return nil, err
	}

	var resp containerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		err = fmt.Errorf("malformed container response: %w", err)
		c.observe(ctx, span, "classify", start, err)
		return nil, err
	}
	if resp.ContainerID == "" {
		err = fmt.Errorf("container response missing containerId: %w", domain.ErrNoResult)
		c.observe(ctx, span, "classify", start, err)
		return nil, err
	}

	c.observe(ctx, span, "classify", start, nil)
	return &domain.ContainerPayload{
		ContainerID: resp.ContainerID,
		Orders:      resp.Orders,
		Zone:        resp.Zone,
	}, nil
}

// LookupTag resolves a tag code to the display text to replay. Absence is an
// error wrapping domain.ErrNoResult.
func (c *Client) LookupTag(ctx context.Context, code string) (string, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "LookupTag",
		trace.WithAttributes(attribute.String("scan.code", code)))
	defer span.End()

	body, err := c.get(ctx, "/api/v1/tags/"+url.PathEscape(code))
	if err != nil {
		c.observe(ctx, span, "lookup", start, err)
		return "", err
	}

	var resp tagResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		err = fmt.Errorf("malformed tag response: %w", err)
		c.observe(ctx, span, "lookup", start, err)
		return "", err
	}
	if resp.DisplayText == "" {
		err = fmt.Errorf("tag response missing displayText: %w", domain.ErrNoResult)
		c.observe(ctx, span, "lookup", start, err)
		return "", err
	}

	c.observe(ctx, span, "lookup", start, nil)
	return resp.DisplayText, nil
}

// LinkContainerToTag performs the remote pairing mutation
func (c *Client) LinkContainerToTag(ctx context.Context, container domain.ContainerPayload, tag string) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "LinkContainerToTag",
		trace.WithAttributes(
			attribute.String("container.id", container.ContainerID),
			attribute.String("tag.code", tag),
		))
	defer span.End()

	payload, err := json.Marshal(linkRequest{TagCode: tag, Orders: container.Orders})
	if err != nil {
		c.observe(ctx, span, "link", start, err)
		return err
	}

	path := "/api/v1/containers/" + url.PathEscape(container.ContainerID) + "/assignments"
	_, err = c.post(ctx, path, payload)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrLinkFailed, err)
	}
	c.observe(ctx, span, "link", start, err)
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s %s: %w", method, path, domain.ErrNoResult)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) observe(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	duration := time.Since(start)
	outcome := "success"
	reason := ""

	if err != nil {
		outcome = "failure"
		reason = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if c.metrics != nil {
		c.metrics.RecordRemoteCall(operation, outcome, duration)
	}
	c.logger.RemoteCall(ctx, operation, duration, err == nil, reason)
}
