// Package hostelcore is the HTTP client for the primary hostel-core backend.
// Transport-level failures are distinguished from application errors so the
// submission pipeline can decide when the degraded write path applies.
package hostelcore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/dto"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/config"
)

// CodeMalformedResponse marks a response hostel-core delivered but the client
// could not decode. The request reached the backend and may have been applied
// there, so it must never count as unreachable.
const CodeMalformedResponse = "MALFORMED_RESPONSE"

// UpstreamError is an application-level response from hostel-core: either a
// non-2xx status or a 2xx body the client could not decode. It never triggers
// the fallback write path.
type UpstreamError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hostel-core %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("hostel-core returned status %d", e.StatusCode)
}

// IsUnreachable reports whether err is a network-level failure (the request
// never produced an HTTP response). Application errors return false.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	return !errors.As(err, &ue)
}

// PingResult captures an upstream health probe outcome.
type PingResult struct {
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
	ObservedAt time.Time     `json:"observed_at"`
}

// Client talks to the hostel-core backend on behalf of the caller, forwarding
// the caller's bearer credential on every request.
type Client struct {
	baseURL    string
	healthPath string
	http       *http.Client
	logger     *zap.Logger
}

// New builds a hostel-core client.
func New(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		healthPath: healthPath,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type quotaPayload struct {
	Count      int  `json:"count"`
	Limit      int  `json:"limit"`
	Remaining  int  `json:"remaining"`
	CanRequest bool `json:"can_request"`
}

// WeeklyQuota fetches the caller's rolling weekly quota.
func (c *Client) WeeklyQuota(ctx context.Context, token string) (*models.WeeklyQuota, error) {
	var payload quotaPayload
	if err := c.do(ctx, http.MethodGet, "/outpass/weekly-quota", token, nil, &payload); err != nil {
		return nil, err
	}
	quota := models.NewWeeklyQuota(payload.Count, payload.Limit, time.Now().UTC())
	return quota, nil
}

// CheckRoomAllocation reports whether the caller holds an active room
// allocation. Only the status signals eligibility; the body is ignored.
func (c *Client) CheckRoomAllocation(ctx context.Context, token string) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/outpass/check-room-allocation", token, nil, nil)
	if err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) && (ue.StatusCode == http.StatusNotFound || ue.StatusCode == http.StatusPreconditionFailed || ue.StatusCode == http.StatusForbidden) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateRequest submits a new outpass request.
func (c *Client) CreateRequest(ctx context.Context, token string, form dto.OutpassForm) (*models.OutpassRequest, error) {
	var record models.OutpassRequest
	if err := c.do(ctx, http.MethodPost, "/outpass/create-request", token, form, &record); err != nil {
		return nil, err
	}
	record.Origin = models.OriginServer
	return &record, nil
}

// CreateRequestAs submits a record on behalf of a student using the service
// credential. Used by the reconcile worker, which no longer holds the
// student's own bearer token.
func (c *Client) CreateRequestAs(ctx context.Context, serviceToken, studentID string, form dto.OutpassForm) (*models.OutpassRequest, error) {
	payload := struct {
		dto.OutpassForm
		StudentID string `json:"studentId"`
	}{OutpassForm: form, StudentID: studentID}

	var record models.OutpassRequest
	if err := c.do(ctx, http.MethodPost, "/outpass/create-request", serviceToken, payload, &record); err != nil {
		return nil, err
	}
	record.Origin = models.OriginServer
	return &record, nil
}

// UpdateRequest edits an existing request. Legal server-side only while the
// record is pending or rejected.
func (c *Client) UpdateRequest(ctx context.Context, token, id string, form dto.OutpassForm) (*models.OutpassRequest, error) {
	var record models.OutpassRequest
	path := fmt.Sprintf("/outpass/update-request/%s", id)
	if err := c.do(ctx, http.MethodPut, path, token, form, &record); err != nil {
		return nil, err
	}
	record.Origin = models.OriginServer
	return &record, nil
}

// ExtendRequest creates a linked pending extension of an approved request.
func (c *Client) ExtendRequest(ctx context.Context, token, id string, form dto.ExtendOutpassForm) (*models.OutpassRequest, error) {
	var record models.OutpassRequest
	path := fmt.Sprintf("/outpass/extend-request/%s", id)
	if err := c.do(ctx, http.MethodPost, path, token, form, &record); err != nil {
		return nil, err
	}
	record.Origin = models.OriginServer
	return &record, nil
}

// CancelRequest transitions a pending request to cancelled.
func (c *Client) CancelRequest(ctx context.Context, token, id string) (*models.OutpassRequest, error) {
	var record models.OutpassRequest
	path := fmt.Sprintf("/outpass/cancel-request/%s", id)
	if err := c.do(ctx, http.MethodPut, path, token, nil, &record); err != nil {
		return nil, err
	}
	record.Origin = models.OriginServer
	return &record, nil
}

// MyRequests returns the caller's full request history.
func (c *Client) MyRequests(ctx context.Context, token string) ([]models.OutpassRequest, error) {
	var records []models.OutpassRequest
	if err := c.do(ctx, http.MethodGet, "/outpass/my-requests", token, nil, &records); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Origin = models.OriginServer
	}
	return records, nil
}

// Ping probes the upstream health endpoint.
func (c *Client) Ping(ctx context.Context) (PingResult, error) {
	result := PingResult{ObservedAt: time.Now().UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Reachable = resp.StatusCode < http.StatusInternalServerError
	if !result.Reachable {
		result.Error = fmt.Sprintf("received status %d", resp.StatusCode)
		return result, fmt.Errorf("hostel-core health check failed: %s", result.Error)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		ue := &UpstreamError{
			StatusCode: resp.StatusCode,
			Code:       extractCode(raw),
			Message:    extractMessage(raw),
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn("hostel-core server error",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode))
		}
		return ue
	}

	if dest == nil || len(raw) == 0 {
		return nil
	}

	// Some endpoints wrap the record in a data envelope.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("hostel-core returned an undecodable body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Code:       CodeMalformedResponse,
			Message:    fmt.Sprintf("undecodable response for %s %s", method, path),
		}
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func extractMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return body.Message
}

func extractCode(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != nil && body.Error.Code != "" {
		return body.Error.Code
	}
	return body.Code
}
