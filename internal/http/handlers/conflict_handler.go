// Conflict record HTTP handlers.
//
// Conflicts detected during dispatch are persisted so the local/remote
// divergence stays inspectable after the queue item is gone. This file
// exposes:
//   - GET /conflicts (list records, ?unresolved_only=true to filter)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/repo"
	"github.com/moodpulse/go-sync-engine/internal/sysutil"
	"github.com/moodpulse/go-sync-engine/internal/utils"
)

// ListConflictsResponse wraps a page of conflict records, newest first.
type ListConflictsResponse struct {
	Conflicts  []domain.ConflictRecord `json:"conflicts"`
	Pagination Pagination              `json:"pagination"`
}

// ListConflicts returns persisted conflict records. unresolved_only=true
// restricts the listing to records awaiting manual follow-up.
func (h *Handlers) ListConflicts(c *gin.Context) {
	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"), 20, 100)
	unresolvedOnly := sysutil.IsTruthy(c.Query("unresolved_only"))

	ctx := c.Request.Context()
	records, err := repo.ListConflicts(ctx, h.db, unresolvedOnly, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	total, err := repo.CountConflicts(ctx, h.db, unresolvedOnly)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListConflictsResponse{
		Conflicts:  records,
		Pagination: paginate(page, pageSize, total),
	})
}
