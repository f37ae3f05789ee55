package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

type ReconcilerConfig struct {
	// Window caps how many of the newest indices are walked per controller.
	// 0 walks the whole ring buffer.
	Window int

	// Now overrides the insert-time clock; nil means time.Now.
	Now func() time.Time
}

// EventReconciler mirrors controller ring buffers into the durable event log.
type EventReconciler struct {
	registry  *ControllerRegistry
	source    EventSource
	log       store.EventLogStore
	members   store.MemberDirectory
	publisher EventPublisher
	metrics   *ReconcileMetrics
	window    int
	now       func() time.Time
	logger    logrus.FieldLogger
}

func NewEventReconciler(
	reg *ControllerRegistry,
	src EventSource,
	log store.EventLogStore,
	members store.MemberDirectory,
	pub EventPublisher,
	metrics *ReconcileMetrics,
	cfg ReconcilerConfig,
	logger logrus.FieldLogger,
) *EventReconciler {
	if pub == nil {
		pub = nopPublisher{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &EventReconciler{
		registry:  reg,
		source:    src,
		log:       log,
		members:   members,
		publisher: pub,
		metrics:   metrics,
		window:    cfg.Window,
		now:       cfg.Now,
		logger:    logger.WithField("component", "reconciler"),
	}
}

// ReconcileAll reconciles every registered controller in ascending id order.
// A failing controller does not stop the others.
func (r *EventReconciler) ReconcileAll(ctx context.Context) []types.ReconcileResult {
	controllers := r.registry.List()
	sort.Slice(controllers, func(i, j int) bool { return controllers[i].ID < controllers[j].ID })

	results := make([]types.ReconcileResult, 0, len(controllers))
	for _, c := range controllers {
		if ctx.Err() != nil {
			results = append(results, types.ReconcileResult{
				ControllerID: c.ID,
				RunID:        uuid.NewString(),
				StartedAt:    r.now().UTC(),
				Err:          ctx.Err().Error(),
			})
			continue
		}
		results = append(results, r.Reconcile(ctx, c.ID))
	}
	return results
}

// Reconcile pulls the controller's retained events, newest first, and appends
// those not already in the log for known members. Nothing is committed
// unless every event was fetched.
func (r *EventReconciler) Reconcile(ctx context.Context, controllerID uint32) types.ReconcileResult {
	res := types.ReconcileResult{
		ControllerID: controllerID,
		RunID:        uuid.NewString(),
		StartedAt:    r.now().UTC(),
	}
	log := r.logger.WithFields(logrus.Fields{"controller_id": controllerID, "run_id": res.RunID})

	inserted, err := r.reconcile(ctx, controllerID, &res, log)
	if err != nil {
		res.Err = err.Error()
		res.Inserted, res.SkippedDuplicate, res.SkippedUnknown, res.Errors = 0, 0, 0, 0
		log.WithError(err).Error("reconcile aborted")
		r.metrics.observe(res)
		return res
	}

	if len(inserted) > 0 {
		if err := r.publisher.PublishEvents(ctx, controllerID, inserted); err != nil {
			log.WithError(err).Warn("publish inserted events failed")
		}
	}

	log.WithFields(logrus.Fields{
		"fetched":           res.Fetched,
		"inserted":          res.Inserted,
		"skipped_duplicate": res.SkippedDuplicate,
		"skipped_unknown":   res.SkippedUnknown,
		"errors":            res.Errors,
	}).Info("reconcile complete")
	r.metrics.observe(res)
	return res
}

type fetchedEvent struct {
	index uint32
	event types.GatewayEvent
}

func (r *EventReconciler) reconcile(ctx context.Context, controllerID uint32, res *types.ReconcileResult, log logrus.FieldLogger) ([]types.EventRecord, error) {
	if _, err := r.registry.Get(controllerID); err != nil {
		return nil, err
	}

	rng, err := r.source.EventRange(ctx, controllerID)
	if err != nil {
		return nil, fmt.Errorf("event range: %w", err)
	}
	if rng.Empty() {
		log.Debug("no events retained")
		return nil, nil
	}

	indices := backwardIndices(rng, r.window)
	fetched := make([]fetchedEvent, 0, len(indices))
	for _, idx := range indices {
		ev, err := r.source.Event(ctx, controllerID, idx)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", idx, err)
		}
		fetched = append(fetched, fetchedEvent{index: idx, event: ev})
	}
	res.Fetched = len(fetched)

	// One snapshot per run: every row of the run sees the same directory.
	snap, err := r.members.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("member snapshot: %w", err)
	}

	loc := r.registry.Location(controllerID)
	insertedAt := r.now().UTC()

	var inserted []types.EventRecord
	err = r.log.Batch(ctx, func(ctx context.Context, b store.EventLogBatch) error {
		inserted = inserted[:0]
		res.Inserted, res.SkippedDuplicate, res.SkippedUnknown, res.Errors = 0, 0, 0, 0

		for _, f := range fetched {
			dup, err := b.Exists(ctx, f.event.Identity(controllerID))
			if err != nil {
				return err
			}
			if dup {
				res.SkippedDuplicate++
				continue
			}

			member, known := snap[f.event.CardNumber]
			if !known {
				res.SkippedUnknown++
				continue
			}

			tsUTC, err := ParseControllerTimestamp(f.event.Timestamp, loc)
			if err != nil {
				res.Errors++
				log.WithError(err).WithField("index", f.index).Warn("event skipped")
				continue
			}

			rec := newEventRecord(controllerID, f.event, member, tsUTC, insertedAt)
			id, err := b.Insert(ctx, rec)
			if err != nil {
				return err
			}
			rec.ID = id
			inserted = append(inserted, rec)
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func newEventRecord(controllerID uint32, ev types.GatewayEvent, m types.Member, tsUTC, insertedAt time.Time) types.EventRecord {
	return types.EventRecord{
		ControllerID:       controllerID,
		EventID:            ev.EventID,
		Timestamp:          ev.Timestamp,
		TimestampUTC:       &tsUTC,
		CardNumber:         ev.CardNumber,
		EventType:          ev.EventType,
		EventTypeText:      ev.EventTypeText,
		AccessGranted:      ev.AccessGranted,
		DoorID:             ev.DoorID,
		Direction:          ev.Direction,
		DirectionText:      ev.DirectionText,
		EventReason:        ev.EventReason,
		EventReasonText:    ev.EventReasonText,
		InsertTimestampUTC: &insertedAt,
		Name:               m.Name,
		Email:              m.Email,
		MembershipType:     m.MembershipType,
	}
}
