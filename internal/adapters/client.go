// Remote HTTP client shared by all entity adapters.
//
// The client owns the cross-cutting concerns of talking to the backend:
// per-call timeouts, an outbound token bucket so a deep queue cannot flood
// the API, the Idempotency-Key header, and classification of responses into
// the engine's error taxonomy (success / conflict / transient / permanent).
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerOwnerID        = "X-Owner-ID"

	// maxErrorBody caps how much of an error response is kept for logs and
	// DLQ records.
	maxErrorBody = 4 << 10
)

// RemoteClient performs entity CRUD calls against the sync backend.
type RemoteClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger
}

// NewRemoteClient constructs a client for baseURL. Each call is bounded by
// callTimeout and gated by a token bucket of rps/burst.
func NewRemoteClient(baseURL string, callTimeout time.Duration, rps float64, burst int, log zerolog.Logger) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: callTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		timeout: callTimeout,
		log:     log.With().Str("component", "remote_client").Logger(),
	}
}

// apply issues the HTTP call for one queue item against the entity
// collection mounted at path (e.g. "/v1/mood-entries"):
//
//	create -> POST   {path}
//	update -> PUT    {path}/{entity id}
//	delete -> DELETE {path}/{entity id}
//
// It returns the remote record id on success. Responses map to the engine
// taxonomy: 2xx ok; 404 on delete ok (tombstone for a record the remote
// never saw); 409 -> *ConflictError with the remote document; 408/429/5xx
// and transport errors -> transient *RemoteError; remaining 4xx ->
// permanent *RemoteError.
func (c *RemoteClient) apply(ctx context.Context, path string, item *domain.SyncQueueItem, entityID string, body string, force bool) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &RemoteError{Transient: true, Msg: "rate limiter: " + err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var method, url string
	var reqBody io.Reader
	switch item.OperationKind {
	case domain.OpCreate:
		method, url = http.MethodPost, c.baseURL+path
		reqBody = bytes.NewReader([]byte(body))
	case domain.OpUpdate:
		method, url = http.MethodPut, c.baseURL+path+"/"+entityID
		if force {
			url += "?force=true"
		}
		reqBody = bytes.NewReader([]byte(body))
	case domain.OpDelete:
		method, url = http.MethodDelete, c.baseURL+path+"/"+entityID
	default:
		return "", &RemoteError{Msg: "unsupported operation " + string(item.OperationKind)}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return "", &RemoteError{Msg: err.Error()}
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerIdempotencyKey, item.ID)
	req.Header.Set(headerOwnerID, item.OwnerID)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures and timeouts are indistinguishable from a
		// mid-flight success; retry with the same idempotency key.
		return "", &RemoteError{Transient: true, Msg: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return remoteID(raw, entityID), nil

	case resp.StatusCode == http.StatusNotFound && item.OperationKind == domain.OpDelete:
		// Already deleted remotely; the tombstone is satisfied.
		return entityID, nil

	case resp.StatusCode == http.StatusConflict:
		return "", &ConflictError{RemoteDoc: string(raw)}

	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return "", &RemoteError{Status: resp.StatusCode, Transient: true, Msg: string(raw)}

	default:
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("item_id", item.ID).
			Str("entity_kind", string(item.EntityKind)).
			Msg("permanent remote rejection")
		return "", &RemoteError{Status: resp.StatusCode, Msg: string(raw)}
	}
}

// remoteID extracts the record id from a success body, falling back to the
// entity id sent (DELETE and empty-body responses).
func remoteID(raw []byte, fallback string) string {
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err == nil && out.ID != "" {
		return out.ID
	}
	return fallback
}
