// Package services – Coordinator
//
// The coordinator orchestrates the whole engine: it drains the queue in
// passes, dispatching scheduler batches through the circuit breaker to the
// entity adapters on a small fixed worker pool. Successes leave the store
// and fan out cache-invalidation signals; failures are rescheduled with
// exponential backoff or promoted to the dead letter queue; conflicts are
// routed through the resolver. A pass never raises for a single item's
// failure: outcomes are contained per item and reported in the PassResult.
//
// Observability: passes and item dispatches are OpenTelemetry-instrumented,
// and every outcome feeds the Prometheus collectors in metrics.go.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moodpulse/go-sync-engine/internal/adapters"
	"github.com/moodpulse/go-sync-engine/internal/config"
	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/netmon"
	"github.com/moodpulse/go-sync-engine/internal/repo"
)

// PassResult summarizes one sync pass for callers and the status API.
type PassResult struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Attempted    int           `json:"attempted"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Conflicts    int           `json:"conflicts"`
	Skipped      int           `json:"skipped"` // breaker refusals, no attempt made
	DeadLettered int           `json:"dead_lettered"`
	AvgLatency   time.Duration `json:"avg_latency"` // mean remote-call latency over the pass
}

// Invalidation tells downstream caches which of an owner's entity kinds
// changed remotely during a pass.
type Invalidation struct {
	OwnerID string              `json:"owner_id"`
	Kinds   []domain.EntityKind `json:"kinds"`
}

// Coordinator drives sync passes over the queue store. Construct with
// NewCoordinator; the zero value is not usable.
type Coordinator struct {
	DB        *gorm.DB
	Scheduler *Scheduler
	Adapters  adapters.Registry
	Breaker   *CircuitBreaker
	Backoff   *Backoff
	Optimizer *BatchOptimizer
	Resolver  *Resolver
	Log       zerolog.Logger

	workers          int
	retryCeiling     int
	permanentCeiling int

	mu       sync.Mutex
	running  bool
	inflight map[string]bool // owners with an item being dispatched
	lastPass *PassResult

	trigger       chan struct{}
	invalidations chan Invalidation
}

// NewCoordinator wires a coordinator from its dependencies and the engine
// tunables. Lifecycle is owned by the caller: start the main loop with Run,
// or invoke RunSyncPass directly.
func NewCoordinator(db *gorm.DB, reg adapters.Registry, resolver *Resolver, cfg config.SyncConfig, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		DB:        db,
		Scheduler: NewScheduler(db),
		Adapters:  reg,
		Breaker:   NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerWindow, cfg.BreakerCooldown, cfg.BreakerCooldownMax),
		Backoff:   NewBackoff(cfg.BackoffBase, cfg.BackoffCap, cfg.JitterFraction),
		Optimizer: NewBatchOptimizer(cfg.BatchMin, cfg.BatchMax, cfg.BatchInitial),
		Resolver:  resolver,
		Log:       log.With().Str("component", "coordinator").Logger(),

		workers:          cfg.Workers,
		retryCeiling:     cfg.RetryCeiling,
		permanentCeiling: cfg.PermanentCeiling,

		inflight:      make(map[string]bool),
		trigger:       make(chan struct{}, 1),
		invalidations: make(chan Invalidation, 64),
	}
}

// Invalidations returns the stream of per-owner cache invalidation signals
// emitted after successful passes. Signals are dropped when the consumer
// lags; they are hints, not state.
func (c *Coordinator) Invalidations() <-chan Invalidation { return c.invalidations }

// LastPass returns a copy of the most recent pass summary, or nil before
// the first pass.
func (c *Coordinator) LastPass() *PassResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPass == nil {
		return nil
	}
	cp := *c.lastPass
	return &cp
}

// BreakerState reports the circuit breaker's current state for the status
// API.
func (c *Coordinator) BreakerState() BreakerState { return c.Breaker.State() }

// TriggerSync requests an on-demand pass from the main loop. Non-blocking;
// a pending trigger coalesces with new ones.
func (c *Coordinator) TriggerSync() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run is the coordinator's main loop: it consumes connectivity transitions,
// fires a pass on the offline->online edge, on the periodic interval while
// online, and on demand via TriggerSync. Returns when ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, events <-chan netmon.Event, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	online := false
	pass := func(reason string) {
		res, err := c.RunSyncPass(ctx)
		switch {
		case errors.Is(err, ErrPassInProgress):
			// A triggered pass overlapped the periodic one; fine.
		case err != nil:
			c.Log.Error().Err(err).Str("reason", reason).Msg("sync pass failed")
		default:
			c.Log.Info().
				Str("reason", reason).
				Int("succeeded", res.Succeeded).
				Int("failed", res.Failed).
				Int("conflicts", res.Conflicts).
				Dur("duration", res.Duration).
				Msg("sync pass complete")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			wasOnline := online
			online = ev.Online
			if ev.Online && !wasOnline {
				pass("reconnect")
			}
		case <-t.C:
			if online {
				pass("interval")
			}
		case <-c.trigger:
			pass("manual")
		}
	}
}

// RunSyncPass drains eligible work from the queue: scheduler rounds feed
// the worker pool until no eligible item remains or ctx is cancelled.
// Per-item failures are contained; the returned error is reserved for
// store-level faults that stop the pass from making progress at all.
func (c *Coordinator) RunSyncPass(ctx context.Context) (*PassResult, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrPassInProgress
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "RunSyncPass")
	defer span.End()

	start := time.Now()
	st := &passState{changed: make(map[string]map[domain.EntityKind]bool)}

	for {
		if err := ctx.Err(); err != nil {
			break // cancelled between items; in-flight work already drained
		}

		batch, err := c.Scheduler.NextBatch(ctx, c.Optimizer.Recommend(), c.inflightSnapshot(), time.Now().UTC())
		if err != nil {
			return nil, err // store fault: fatal for this pass
		}
		if len(batch) == 0 {
			break
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, c.workers)
		for i := range batch {
			if ctx.Err() != nil {
				break
			}
			item := batch[i]
			c.setInflight(item.OwnerID, true)
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer func() {
					c.setInflight(item.OwnerID, false)
					<-sem
					wg.Done()
				}()
				c.processItem(ctx, tr, item, st)
			}()
		}
		wg.Wait()
	}

	res := st.result(start)
	c.mu.Lock()
	c.lastPass = &res
	c.mu.Unlock()

	c.Optimizer.Observe(res.Attempted, res.Failed, res.AvgLatency)
	c.emitInvalidations(st)
	c.refreshGauges(ctx)
	syncPassDur.Observe(res.Duration.Seconds())

	span.SetAttributes(
		attribute.Int("sync.succeeded", res.Succeeded),
		attribute.Int("sync.failed", res.Failed),
		attribute.Int("sync.conflicts", res.Conflicts),
	)
	return &res, nil
}

// processItem dispatches one item through the breaker to its adapter and
// applies the outcome to the stores.
func (c *Coordinator) processItem(ctx context.Context, tr trace.Tracer, item domain.SyncQueueItem, st *passState) {
	ctx, span := tr.Start(ctx, "DispatchItem",
		trace.WithAttributes(
			attribute.String("item.id", item.ID),
			attribute.String("item.entity_kind", string(item.EntityKind)),
			attribute.String("item.operation", string(item.OperationKind)),
		),
	)
	defer span.End()

	adapter, err := c.Adapters.Get(item.EntityKind)
	if err != nil {
		// Only reachable for rows written by an unknown schema version.
		c.handleFailure(ctx, item, err, false, st)
		return
	}

	if !c.Breaker.Allow() {
		// Fail fast with zero network traffic. Not an attempt: the retry
		// count stays put and the item comes back after a short delay.
		if err := repo.Reschedule(ctx, c.DB, item.ID, time.Now().UTC().Add(c.Backoff.Base)); err != nil {
			c.Log.Error().Err(err).Str("item_id", item.ID).Msg("breaker reschedule failed")
		}
		st.add(func(r *PassResult) { r.Skipped++ })
		return
	}

	callStart := time.Now()
	_, err = adapter.Apply(ctx, &item)
	elapsed := time.Since(callStart)
	syncCallLat.WithLabelValues(string(item.EntityKind)).Observe(elapsed.Seconds())
	st.recordCall(elapsed)

	var conflict *adapters.ConflictError
	switch {
	case err == nil:
		c.Breaker.Success()
		c.handleSuccess(ctx, item, st)
	case errors.As(err, &conflict):
		// The endpoint answered coherently; a conflict is not a breaker
		// failure.
		c.Breaker.Success()
		c.handleConflict(ctx, adapter, item, conflict.RemoteDoc, st)
	default:
		c.Breaker.Failure()
		c.handleFailure(ctx, item, err, adapters.IsTransient(err), st)
	}
}

func (c *Coordinator) handleSuccess(ctx context.Context, item domain.SyncQueueItem, st *passState) {
	if err := repo.DeleteItems(ctx, c.DB, []string{item.ID}); err != nil {
		c.Log.Error().Err(err).Str("item_id", item.ID).Msg("dequeue after success failed")
		st.add(func(r *PassResult) { r.Attempted++; r.Failed++ })
		return
	}
	syncItems.WithLabelValues(string(item.EntityKind), "success").Inc()
	st.markChanged(item.OwnerID, item.EntityKind)
	st.add(func(r *PassResult) { r.Attempted++; r.Succeeded++ })
}

// handleConflict reconciles the local and remote documents. Resolved output
// that differs from the remote copy is force-written back; either way the
// divergence is recorded and the item leaves the live queue. Unresolvable
// pairs persist an unresolved ConflictRecord for manual follow-up.
func (c *Coordinator) handleConflict(ctx context.Context, adapter adapters.Adapter, item domain.SyncQueueItem, remoteDoc string, st *passState) {
	res, rerr := c.Resolver.Resolve(item.EntityKind, item.Payload, remoteDoc)

	rec := &domain.ConflictRecord{
		ID:         uuid.NewString(),
		OwnerID:    item.OwnerID,
		EntityKind: item.EntityKind,
		EntityID:   payloadID(item.Payload),
		LocalDoc:   item.Payload,
		RemoteDoc:  remoteDoc,
		CreatedAt:  time.Now().UTC(),
	}

	if rerr != nil {
		rec.Strategy = string(c.Resolver.PolicyFor(item.EntityKind))
		rec.Resolved = false
		c.finishConflict(ctx, item, rec, st)
		c.Log.Warn().
			Str("item_id", item.ID).
			Str("entity_kind", string(item.EntityKind)).
			Msg("conflict recorded unresolved")
		return
	}

	if res.ResolvedDoc != remoteDoc {
		if err := adapter.ForceApply(ctx, &item, res.ResolvedDoc); err != nil {
			// The resolved write itself failed; keep the item and let the
			// normal retry path take over.
			c.Breaker.Failure()
			c.handleFailure(ctx, item, err, adapters.IsTransient(err), st)
			return
		}
		st.markChanged(item.OwnerID, item.EntityKind)
	}

	rec.Strategy = string(res.Policy)
	rec.Resolved = true
	rec.ResolvedDoc = res.ResolvedDoc
	c.finishConflict(ctx, item, rec, st)
}

func (c *Coordinator) finishConflict(ctx context.Context, item domain.SyncQueueItem, rec *domain.ConflictRecord, st *passState) {
	if err := repo.InsertConflict(ctx, c.DB, rec); err != nil {
		c.Log.Error().Err(err).Str("item_id", item.ID).Msg("conflict record insert failed")
	}
	if err := repo.DeleteItems(ctx, c.DB, []string{item.ID}); err != nil {
		c.Log.Error().Err(err).Str("item_id", item.ID).Msg("dequeue after conflict failed")
	}
	syncItems.WithLabelValues(string(item.EntityKind), "conflict").Inc()
	st.add(func(r *PassResult) { r.Attempted++; r.Conflicts++ })
}

// handleFailure applies retry bookkeeping: reschedule with backoff below
// the ceiling, dead-letter at it. Permanent (non-transient) errors run on
// the shorter ceiling since more retries rarely change a 4xx.
func (c *Coordinator) handleFailure(ctx context.Context, item domain.SyncQueueItem, cause error, transient bool, st *passState) {
	ceiling := c.permanentCeiling
	if transient {
		ceiling = c.retryCeiling
	}

	now := time.Now().UTC()
	attempts := item.RetryCount + 1

	if attempts >= ceiling {
		// The attempt that exhausted the ceiling counts too.
		item.RetryCount = attempts
		if _, err := repo.ArchiveDeadLetter(ctx, c.DB, &item, cause.Error(), now); err != nil {
			c.Log.Error().Err(err).Str("item_id", item.ID).Msg("dead letter archive failed")
			st.add(func(r *PassResult) { r.Attempted++; r.Failed++ })
			return
		}
		syncItems.WithLabelValues(string(item.EntityKind), "dead_letter").Inc()
		c.Log.Warn().
			Str("item_id", item.ID).
			Str("entity_kind", string(item.EntityKind)).
			Int("attempts", attempts).
			Str("cause", cause.Error()).
			Msg("item dead-lettered")
		st.add(func(r *PassResult) { r.Attempted++; r.Failed++; r.DeadLettered++ })
		return
	}

	delay := c.Backoff.Delay(attempts)
	if err := repo.MarkAttempt(ctx, c.DB, item.ID, now, now.Add(delay), cause.Error()); err != nil {
		c.Log.Error().Err(err).Str("item_id", item.ID).Msg("retry bookkeeping failed")
	}
	retries.WithLabelValues(string(item.EntityKind)).Inc()
	syncItems.WithLabelValues(string(item.EntityKind), "failure").Inc()
	st.add(func(r *PassResult) { r.Attempted++; r.Failed++ })
}

func (c *Coordinator) setInflight(owner string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v {
		c.inflight[owner] = true
	} else {
		delete(c.inflight, owner)
	}
}

func (c *Coordinator) inflightSnapshot() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make(map[string]bool, len(c.inflight))
	for k := range c.inflight {
		snap[k] = true
	}
	return snap
}

func (c *Coordinator) emitInvalidations(st *passState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for owner, kinds := range st.changed {
		inv := Invalidation{OwnerID: owner, Kinds: make([]domain.EntityKind, 0, len(kinds))}
		for _, k := range domain.EntityKinds { // stable order
			if kinds[k] {
				inv.Kinds = append(inv.Kinds, k)
			}
		}
		select {
		case c.invalidations <- inv:
		default:
		}
	}
}

func (c *Coordinator) refreshGauges(ctx context.Context) {
	if n, err := repo.CountPending(ctx, c.DB); err == nil {
		queueDepth.Set(float64(n))
	}
	if n, err := repo.CountDeadLetters(ctx, c.DB); err == nil {
		dlqDepth.Set(float64(n))
	}
	breakerState.Set(float64(c.Breaker.State()))
}

// passState accumulates a pass's outcome across workers.
type passState struct {
	mu       sync.Mutex
	res      PassResult
	callTime time.Duration // summed remote-call latency
	calls    int
	changed  map[string]map[domain.EntityKind]bool
}

func (s *passState) add(f func(*PassResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.res)
}

func (s *passState) recordCall(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callTime += d
	s.calls++
}

func (s *passState) markChanged(owner string, kind domain.EntityKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.changed[owner] == nil {
		s.changed[owner] = make(map[domain.EntityKind]bool)
	}
	s.changed[owner][kind] = true
}

func (s *passState) result(start time.Time) PassResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.res
	r.StartedAt = start.UTC()
	r.Duration = time.Since(start)
	if s.calls > 0 {
		r.AvgLatency = s.callTime / time.Duration(s.calls)
	}
	return r
}

// payloadID extracts the entity id from a payload document; empty when the
// document has none.
func payloadID(doc string) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(doc), &probe); err != nil {
		return ""
	}
	return probe.ID
}
