package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

const maxErrorBody = 4 << 10

// ErrRejected is wrapped by every non-2xx response.
var ErrRejected = errors.New("submission rejected")

// Submitter posts step payloads to an HTTP endpoint. The idempotency key of
// the request travels in the Idempotency-Key header so the server can
// recognise retries.
//
// Responses are classified as follows: 2xx commits; 409 and 412 are blocking
// (the server's view of the upstream selection changed); every other status
// and transport error is retryable.
type Submitter struct {
	endpoint string
	client   *http.Client
	headers  http.Header
	logger   *slog.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) {
		s.client = c
	}
}

// WithHeader adds a header to every request, e.g. Authorization.
func WithHeader(key, value string) Option {
	return func(s *Submitter) {
		s.headers.Add(key, value)
	}
}

// WithLogger sets the submitter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// New creates a Submitter posting to endpoint. Step ids are appended as the
// last path segment: POST {endpoint}/{step_id}.
func New(endpoint string, opts ...Option) *Submitter {
	s := &Submitter{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		headers:  make(http.Header),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type submitBody struct {
	SessionKey     string          `json:"session_key"`
	StepID         string          `json:"step_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	Upstream       domain.Payloads `json:"upstream"`
}

type submitResponse struct {
	Committed any    `json:"committed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubmitStep implements ports.Submitter.
func (s *Submitter) SubmitStep(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
	payload, err := domain.EncodePayload(req.Payload)
	if err != nil {
		return ports.SubmitResult{}, domain.Blocking(fmt.Errorf("encode payload: %w", err))
	}
	body, err := json.Marshal(submitBody{
		SessionKey:     req.SessionKey,
		StepID:         req.StepID,
		IdempotencyKey: req.IdempotencyKey,
		Payload:        payload,
		Upstream:       req.Upstream,
	})
	if err != nil {
		return ports.SubmitResult{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/"+req.StepID, bytes.NewReader(body))
	if err != nil {
		return ports.SubmitResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(domain.HeaderIdempotency, req.IdempotencyKey)
	}
	for k, vs := range s.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.logger.Warn("Submit request failed", "step_id", req.StepID, "err", err)
		return ports.SubmitResult{}, fmt.Errorf("request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Debug("Failed to close response body", "err", err)
		}
	}()
	s.logger.Debug("Submit response",
		"step_id", req.StepID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out submitResponse
		if resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
				return ports.SubmitResult{}, fmt.Errorf("decode response: %w", err)
			}
		}
		return ports.SubmitResult{Committed: out.Committed}, nil
	}

	return ports.SubmitResult{}, classify(resp)
}

func classify(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var out submitResponse
	if json.Unmarshal(raw, &out) == nil && out.Error != "" {
		msg = out.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	err := fmt.Errorf("%w (status %d): %s", ErrRejected, resp.StatusCode, msg)
	switch resp.StatusCode {
	case http.StatusConflict, http.StatusPreconditionFailed:
		return domain.Blocking(err)
	default:
		return err
	}
}
