// Queue HTTP handlers.
//
// This file exposes REST endpoints for the durable mutation queue:
//   - GET  /queue        (list pending items, dispatch order, paginated)
//   - POST /queue        (enqueue one mutation)
//   - POST /queue/batch  (enqueue several same-kind mutations atomically)
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/services"
	"github.com/moodpulse/go-sync-engine/internal/utils"
)

//
// DTOs
//

// EnqueueItemRequest is the JSON payload for enqueueing one mutation.
type EnqueueItemRequest struct {
	OwnerID       string          `json:"owner_id" binding:"required"`
	EntityKind    string          `json:"entity_kind" binding:"required"`
	OperationKind string          `json:"operation_kind" binding:"required"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
}

// EnqueueBatchRequest wraps several mutations of the same entity kind.
type EnqueueBatchRequest struct {
	Items []EnqueueItemRequest `json:"items" binding:"required"`
}

// EnqueueBatchResponse reports the shared batch id plus the stored items.
type EnqueueBatchResponse struct {
	BatchID string                  `json:"batch_id"`
	Items   []*domain.SyncQueueItem `json:"items"`
}

// ListQueueResponse wraps a page of pending items in dispatch order.
type ListQueueResponse struct {
	Items      []domain.SyncQueueItem `json:"items"`
	Pagination Pagination             `json:"pagination"`
}

func (r EnqueueItemRequest) toService() services.EnqueueRequest {
	return services.EnqueueRequest{
		OwnerID:       strings.TrimSpace(r.OwnerID),
		EntityKind:    domain.EntityKind(strings.TrimSpace(r.EntityKind)),
		OperationKind: domain.OperationKind(strings.TrimSpace(r.OperationKind)),
		Payload:       r.Payload,
	}
}

// enqueueStatus maps queue service errors onto HTTP status + code pairs.
func enqueueStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrMissingOwner),
		errors.Is(err, services.ErrUnknownEntityKind),
		errors.Is(err, services.ErrUnknownOperation),
		errors.Is(err, services.ErrInvalidPayload),
		errors.Is(err, services.ErrEmptyBatch),
		errors.Is(err, services.ErrMixedBatch):
		return http.StatusBadRequest, ErrCodeBadRequest
	default:
		return http.StatusInternalServerError, ErrCodeEnqueueFailed
	}
}

//
// Handlers
//

// Enqueue validates and persists a single mutation, returning the stored
// item. Re-sending an id already in the queue is answered with the existing
// item, keeping client retries idempotent.
func (h *Handlers) Enqueue(c *gin.Context) {
	var req EnqueueItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	item, err := h.queue.Enqueue(c.Request.Context(), req.toService())
	if err != nil {
		status, code := enqueueStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	ok(c, http.StatusCreated, item)
}

// EnqueueBatch persists several mutations of one entity kind atomically
// under a shared batch id. Mixed kinds or an empty list are rejected.
func (h *Handlers) EnqueueBatch(c *gin.Context) {
	var req EnqueueBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	reqs := make([]services.EnqueueRequest, 0, len(req.Items))
	for _, it := range req.Items {
		reqs = append(reqs, it.toService())
	}

	batchID, items, err := h.queue.EnqueueBatch(c.Request.Context(), reqs)
	if err != nil {
		status, code := enqueueStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	ok(c, http.StatusCreated, EnqueueBatchResponse{BatchID: batchID, Items: items})
}

// ListQueue returns a page of pending items in dispatch order (priority
// descending, enqueue time ascending).
func (h *Handlers) ListQueue(c *gin.Context) {
	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"), 20, 100)

	items, total, err := h.queue.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListQueueResponse{
		Items:      items,
		Pagination: paginate(page, pageSize, total),
	})
}
