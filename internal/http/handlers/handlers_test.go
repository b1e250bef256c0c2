package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/repo"
	"github.com/moodpulse/go-sync-engine/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

//
// Stub engine components
//

type stubSyncer struct {
	res   *services.PassResult
	err   error
	last  *services.PassResult
	state services.BreakerState
}

func (s *stubSyncer) RunSyncPass(context.Context) (*services.PassResult, error) { return s.res, s.err }
func (s *stubSyncer) LastPass() *services.PassResult                            { return s.last }
func (s *stubSyncer) BreakerState() services.BreakerState                       { return s.state }

type stubQueue struct {
	item     *domain.SyncQueueItem
	enqueued []services.EnqueueRequest
	err      error

	batchID string
	items   []domain.SyncQueueItem
	total   int64
	snap    *services.QueueSnapshot
}

func (s *stubQueue) Enqueue(_ context.Context, req services.EnqueueRequest) (*domain.SyncQueueItem, error) {
	s.enqueued = append(s.enqueued, req)
	return s.item, s.err
}

func (s *stubQueue) EnqueueBatch(_ context.Context, reqs []services.EnqueueRequest) (string, []*domain.SyncQueueItem, error) {
	s.enqueued = append(s.enqueued, reqs...)
	if s.err != nil {
		return "", nil, s.err
	}
	out := make([]*domain.SyncQueueItem, len(reqs))
	for i := range out {
		out[i] = s.item
	}
	return s.batchID, out, nil
}

func (s *stubQueue) ListPage(context.Context, int, int) ([]domain.SyncQueueItem, int64, error) {
	return s.items, s.total, s.err
}

func (s *stubQueue) Snapshot(context.Context) (*services.QueueSnapshot, error) {
	return s.snap, s.err
}

type stubDLQ struct {
	items  []domain.DeadLetterItem
	total  int64
	item   *domain.SyncQueueItem
	purged int64
	err    error

	purgeCutoff time.Time
}

func (s *stubDLQ) ListPage(context.Context, int, int) ([]domain.DeadLetterItem, int64, error) {
	return s.items, s.total, s.err
}

func (s *stubDLQ) Replay(context.Context, string) (*domain.SyncQueueItem, error) {
	return s.item, s.err
}

func (s *stubDLQ) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	s.purgeCutoff = olderThan
	return s.purged, s.err
}

type stubProbe struct{ online bool }

func (s *stubProbe) Online() bool { return s.online }

//
// Harness
//

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.SyncQueueItem{}, &domain.DeadLetterItem{}, &domain.ConflictRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.GET("/sync/status", h.SyncStatus)
	r.POST("/sync/run", h.RunSync)
	r.GET("/queue", h.ListQueue)
	r.POST("/queue", h.Enqueue)
	r.POST("/queue/batch", h.EnqueueBatch)
	r.GET("/dlq", h.ListDLQ)
	r.POST("/dlq/:id/replay", h.ReplayDLQ)
	r.DELETE("/dlq", h.PurgeDLQ)
	r.GET("/conflicts", h.ListConflicts)
	return r
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

//
// Sync endpoints
//

func TestSyncStatus(t *testing.T) {
	syncer := &stubSyncer{
		state: services.BreakerOpen,
		last:  &services.PassResult{Succeeded: 4},
	}
	queue := &stubQueue{snap: &services.QueueSnapshot{
		Pending:       7,
		PendingByKind: map[domain.EntityKind]int64{domain.KindMoodEntry: 7},
		TakenAt:       time.Now().UTC(),
	}}
	h := New(syncer, queue, &stubDLQ{}, &stubProbe{online: true}, nil)

	w := do(newRouter(h), http.MethodGet, "/sync/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp SyncStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Online || resp.BreakerState != "open" || resp.Queue.Pending != 7 {
		t.Fatalf("response wrong: %+v", resp)
	}
	if resp.LastPass == nil || resp.LastPass.Succeeded != 4 {
		t.Fatalf("last pass wrong: %+v", resp.LastPass)
	}
}

func TestRunSync(t *testing.T) {
	h := New(&stubSyncer{res: &services.PassResult{Succeeded: 2}}, &stubQueue{}, &stubDLQ{}, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodPost, "/sync/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var res services.PassResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Succeeded != 2 {
		t.Fatalf("pass result wrong: %+v", res)
	}
}

func TestRunSync_Busy(t *testing.T) {
	h := New(&stubSyncer{err: services.ErrPassInProgress}, &stubQueue{}, &stubDLQ{}, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodPost, "/sync/run", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d; want 409", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrCodeSyncInProgress {
		t.Fatalf("code = %q", resp.Code)
	}
}

//
// Queue endpoints
//

func TestEnqueue(t *testing.T) {
	queue := &stubQueue{item: &domain.SyncQueueItem{
		ID:         "00000000-0000-0000-0000-000000000801",
		OwnerID:    "owner-1",
		EntityKind: domain.KindMoodEntry,
		Priority:   domain.PriorityHigh,
	}}
	h := New(&stubSyncer{}, queue, &stubDLQ{}, &stubProbe{}, nil)

	body := `{"owner_id":" owner-1 ","entity_kind":"mood-entry","operation_kind":"create","payload":{"id":"e1"}}`
	w := do(newRouter(h), http.MethodPost, "/queue", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued calls = %d", len(queue.enqueued))
	}
	got := queue.enqueued[0]
	if got.OwnerID != "owner-1" || got.EntityKind != domain.KindMoodEntry || got.OperationKind != domain.OpCreate {
		t.Fatalf("request not normalized: %+v", got)
	}
}

func TestEnqueue_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
	}{
		{"invalid json", `{`, nil},
		{"missing fields", `{"owner_id":"o1"}`, nil},
		{"missing owner", `{"owner_id":"x","entity_kind":"mood-entry","operation_kind":"create","payload":{}}`, services.ErrMissingOwner},
		{"unknown kind", `{"owner_id":"x","entity_kind":"grocery-list","operation_kind":"create","payload":{}}`, services.ErrUnknownEntityKind},
		{"bad payload", `{"owner_id":"x","entity_kind":"mood-entry","operation_kind":"create","payload":{}}`, services.ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&stubSyncer{}, &stubQueue{err: tc.err}, &stubDLQ{}, &stubProbe{}, nil)
			w := do(newRouter(h), http.MethodPost, "/queue", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want 400 (body %s)", w.Code, w.Body)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != ErrCodeBadRequest {
				t.Fatalf("code = %q", resp.Code)
			}
		})
	}
}

func TestEnqueueBatch(t *testing.T) {
	queue := &stubQueue{
		batchID: "00000000-0000-0000-0000-000000000811",
		item:    &domain.SyncQueueItem{ID: "00000000-0000-0000-0000-000000000812"},
	}
	h := New(&stubSyncer{}, queue, &stubDLQ{}, &stubProbe{}, nil)

	body := `{"items":[
		{"owner_id":"o1","entity_kind":"mood-entry","operation_kind":"create","payload":{"id":"e1"}},
		{"owner_id":"o2","entity_kind":"mood-entry","operation_kind":"create","payload":{"id":"e2"}}
	]}`
	w := do(newRouter(h), http.MethodPost, "/queue/batch", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp EnqueueBatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BatchID != queue.batchID || len(resp.Items) != 2 {
		t.Fatalf("response wrong: %+v", resp)
	}
}

func TestEnqueueBatch_Mixed(t *testing.T) {
	h := New(&stubSyncer{}, &stubQueue{err: services.ErrMixedBatch}, &stubDLQ{}, &stubProbe{}, nil)

	body := `{"items":[{"owner_id":"o1","entity_kind":"mood-entry","operation_kind":"create","payload":{}}]}`
	w := do(newRouter(h), http.MethodPost, "/queue/batch", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

func TestListQueue(t *testing.T) {
	queue := &stubQueue{
		items: []domain.SyncQueueItem{
			{ID: "00000000-0000-0000-0000-000000000821"},
			{ID: "00000000-0000-0000-0000-000000000822"},
		},
		total: 45,
	}
	h := New(&stubSyncer{}, queue, &stubDLQ{}, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodGet, "/queue?page=2&page_size=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp ListQueueResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Page != 2 || resp.Pagination.Total != 45 || resp.Pagination.TotalPages != 23 {
		t.Fatalf("pagination wrong: %+v", resp.Pagination)
	}
	if !resp.Pagination.HasNext {
		t.Fatal("page 2 of 23 must have a next page")
	}
}

//
// DLQ endpoints
//

func TestListDLQ(t *testing.T) {
	dlq := &stubDLQ{
		items: []domain.DeadLetterItem{{ID: "00000000-0000-0000-0000-000000000831"}},
		total: 1,
	}
	h := New(&stubSyncer{}, &stubQueue{}, dlq, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodGet, "/dlq", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListDLQResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Pagination.Total != 1 {
		t.Fatalf("response wrong: %+v", resp)
	}
}

func TestReplayDLQ(t *testing.T) {
	dlq := &stubDLQ{item: &domain.SyncQueueItem{ID: "00000000-0000-0000-0000-000000000841"}}
	h := New(&stubSyncer{}, &stubQueue{}, dlq, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodPost, "/dlq/00000000-0000-0000-0000-000000000841/replay", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
}

func TestReplayDLQ_InvalidID(t *testing.T) {
	h := New(&stubSyncer{}, &stubQueue{}, &stubDLQ{}, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodPost, "/dlq/not-a-uuid/replay", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

func TestReplayDLQ_NotFound(t *testing.T) {
	h := New(&stubSyncer{}, &stubQueue{}, &stubDLQ{err: services.ErrItemNotFound}, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodPost, "/dlq/00000000-0000-0000-0000-000000000851/replay", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPurgeDLQ(t *testing.T) {
	dlq := &stubDLQ{purged: 3}
	h := New(&stubSyncer{}, &stubQueue{}, dlq, &stubProbe{}, nil)

	before := time.Now().UTC().Add(-48 * time.Hour)
	w := do(newRouter(h), http.MethodDelete, "/dlq?older_than_hours=48", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp PurgeDLQResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Purged != 3 {
		t.Fatalf("purged = %d", resp.Purged)
	}
	// Cutoff is 48h back, give or take test runtime.
	if dlq.purgeCutoff.Before(before.Add(-time.Minute)) || dlq.purgeCutoff.After(before.Add(time.Minute)) {
		t.Fatalf("cutoff = %v; want about %v", dlq.purgeCutoff, before)
	}
}

func TestPurgeDLQ_NegativeHours(t *testing.T) {
	h := New(&stubSyncer{}, &stubQueue{}, &stubDLQ{}, &stubProbe{}, nil)

	w := do(newRouter(h), http.MethodDelete, "/dlq?older_than_hours=-1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

//
// Conflict endpoints
//

func TestListConflicts(t *testing.T) {
	db := newHandlerDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, rec := range []*domain.ConflictRecord{
		{ID: "00000000-0000-0000-0000-000000000861", OwnerID: "o1", EntityKind: domain.KindMoodEntry,
			EntityID: "e1", Strategy: "FIELD_MERGE", LocalDoc: "{}", RemoteDoc: "{}", Resolved: true},
		{ID: "00000000-0000-0000-0000-000000000862", OwnerID: "o1", EntityKind: domain.KindMoodEntry,
			EntityID: "e2", Strategy: "FIELD_MERGE", LocalDoc: "{}", RemoteDoc: "{}", Resolved: false},
	} {
		rec.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		if err := repo.InsertConflict(ctx, db, rec); err != nil {
			t.Fatalf("insert conflict: %v", err)
		}
	}

	h := New(&stubSyncer{}, &stubQueue{}, &stubDLQ{}, &stubProbe{}, db)
	r := newRouter(h)

	w := do(r, http.MethodGet, "/conflicts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp ListConflictsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Conflicts) != 2 || resp.Pagination.Total != 2 {
		t.Fatalf("response wrong: %+v", resp)
	}

	w = do(r, http.MethodGet, "/conflicts?unresolved_only=true", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode filtered: %v", err)
	}
	if len(resp.Conflicts) != 1 || resp.Conflicts[0].EntityID != "e2" {
		t.Fatalf("filter wrong: %+v", resp.Conflicts)
	}
}
