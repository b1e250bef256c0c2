// Dead letter queue HTTP handlers.
//
// This file exposes REST endpoints for inspecting and recovering items that
// exhausted their retries:
//   - GET    /dlq            (list archived items, paginated)
//   - POST   /dlq/:id/replay (move an item back into the live queue)
//   - DELETE /dlq            (purge, optionally only items older than N hours)
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/services"
	"github.com/moodpulse/go-sync-engine/internal/utils"
)

// ListDLQResponse wraps a page of dead letter items, newest first.
type ListDLQResponse struct {
	Items      []domain.DeadLetterItem `json:"items"`
	Pagination Pagination              `json:"pagination"`
}

// PurgeDLQResponse reports how many archived items were removed.
type PurgeDLQResponse struct {
	Purged int64 `json:"purged"`
}

// ListDLQ returns a page of archived items.
func (h *Handlers) ListDLQ(c *gin.Context) {
	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"), 20, 100)

	items, total, err := h.dlq.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListDLQResponse{
		Items:      items,
		Pagination: paginate(page, pageSize, total),
	})
}

// ReplayDLQ moves one archived item back into the live queue with its retry
// state reset, returning the requeued item.
func (h *Handlers) ReplayDLQ(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "dead letter id must be a UUID")
		return
	}

	item, err := h.dlq.Replay(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "dead letter item not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeReplayFailed, err.Error())
	default:
		ok(c, http.StatusOK, item)
	}
}

// PurgeDLQ deletes archived items. With older_than_hours=N only items
// archived more than N hours ago are removed; the default purges everything.
func (h *Handlers) PurgeDLQ(c *gin.Context) {
	hours := utils.AtoiDefault(c.Query("older_than_hours"), 0)
	if hours < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "older_than_hours must be >= 0")
		return
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	n, err := h.dlq.Purge(c.Request.Context(), cutoff)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodePurgeFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, PurgeDLQResponse{Purged: n})
}
