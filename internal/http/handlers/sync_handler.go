// Sync control HTTP handlers.
//
// This file exposes the sync engine's control surface:
//   - GET  /sync/status   (connectivity, breaker state, depths, last pass)
//   - POST /sync/run      (run one pass now, returns the pass summary)
//
// Handlers are transport-thin: they validate input, call the engine, and
// translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/services"
)

//
// Service contracts (context-aware)
//

// SyncRunner drives sync passes. Implementations must be safe for concurrent
// use and honor the provided context.
type SyncRunner interface {
	// RunSyncPass drains eligible queue items once; returns
	// services.ErrPassInProgress when a pass is already running.
	RunSyncPass(ctx context.Context) (*services.PassResult, error)
	// LastPass returns the most recent pass summary, nil before the first.
	LastPass() *services.PassResult
	// BreakerState reports the circuit breaker state.
	BreakerState() services.BreakerState
}

// QueueAdmitter admits mutations into the durable queue and reports on it.
type QueueAdmitter interface {
	Enqueue(ctx context.Context, req services.EnqueueRequest) (*domain.SyncQueueItem, error)
	EnqueueBatch(ctx context.Context, reqs []services.EnqueueRequest) (string, []*domain.SyncQueueItem, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.SyncQueueItem, int64, error)
	Snapshot(ctx context.Context) (*services.QueueSnapshot, error)
}

// DeadLetterAdmin inspects and manipulates the dead letter queue.
type DeadLetterAdmin interface {
	ListPage(ctx context.Context, page, pageSize int) ([]domain.DeadLetterItem, int64, error)
	Replay(ctx context.Context, id string) (*domain.SyncQueueItem, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// ConnectivityProbe reports the last observed reachability of the backend.
type ConnectivityProbe interface {
	Online() bool
}

//
// Handler wiring
//

// Handlers groups the admin API endpoints. It depends on abstract contracts
// so transport stays separate from engine logic; the conflicts listing reads
// the store directly through db.
type Handlers struct {
	syncer  SyncRunner
	queue   QueueAdmitter
	dlq     DeadLetterAdmin
	monitor ConnectivityProbe
	db      *gorm.DB
}

// New constructs a Handlers instance bound to the given engine components.
func New(syncer SyncRunner, queue QueueAdmitter, dlq DeadLetterAdmin, monitor ConnectivityProbe, db *gorm.DB) *Handlers {
	return &Handlers{syncer: syncer, queue: queue, dlq: dlq, monitor: monitor, db: db}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// SyncStatusResponse summarizes the engine for dashboards and debugging.
type SyncStatusResponse struct {
	Online       bool                    `json:"online"`
	BreakerState string                  `json:"breaker_state"`
	Queue        *services.QueueSnapshot `json:"queue"`
	LastPass     *services.PassResult    `json:"last_pass,omitempty"`
}

//
// Handlers
//

// SyncStatus returns connectivity, breaker state, queue depths grouped by
// entity kind, and the last pass summary.
func (h *Handlers) SyncStatus(c *gin.Context) {
	snap, err := h.queue.Snapshot(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SyncStatusResponse{
		Online:       h.monitor.Online(),
		BreakerState: h.syncer.BreakerState().String(),
		Queue:        snap,
		LastPass:     h.syncer.LastPass(),
	})
}

// RunSync runs a sync pass immediately and returns its summary. A pass
// already in flight yields 409 so callers can distinguish "busy" from
// failure.
func (h *Handlers) RunSync(c *gin.Context) {
	res, err := h.syncer.RunSyncPass(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrPassInProgress):
		fail(c, http.StatusConflict, ErrCodeSyncInProgress, "a sync pass is already running")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeSyncFailed, err.Error())
	default:
		ok(c, http.StatusOK, res)
	}
}
