package activation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"innerlab/internal/docstore"
)

const (
	usersCollection  = "users"
	eventsCollection = "events"
	marksCollection  = "activation_marks"
)

// Event kinds written to the events collection.
const (
	EventLabEntrySaved     = "lab_entry_saved"
	EventActivationReached = "activation_reached"
	EventRouteAccessed     = "route_accessed"
)

var (
	eventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innerlab",
			Name:      "events_emitted_total",
			Help:      "Total number of analytics events written.",
		},
		[]string{"kind", "environment"},
	)
	eventWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "innerlab",
			Name:      "event_write_failures_total",
			Help:      "Analytics event writes that failed and were dropped.",
		},
	)
	activationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "innerlab",
			Name:      "activations_total",
			Help:      "Users promoted to activated.",
		},
	)
)

// RegisterMetrics registers the pipeline's Prometheus collectors on the
// default registry. Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(eventsEmitted, eventWriteFailures, activationsTotal)
}

// Event is one immutable analytics record. Created once, never mutated.
type Event struct {
	Kind        string
	UserID      string
	SessionID   string
	LabID       string
	SizeBucket  string
	Success     bool
	Environment string
	ErrorKind   string
	Fingerprint string
}

// ActivationMeta is the context attached to the derived activation event.
type ActivationMeta struct {
	SessionID  string
	LabID      string
	SizeBucket string
}

// SaveAction is a user's lab submission as seen by the pipeline. The
// caller passes the resolved user id explicitly; the pipeline never
// reads ambient request state.
type SaveAction struct {
	UserID    string
	SessionID string
	LabID     string
	Parts     []string
}

// Result is returned to the caller for logging and response payloads.
// The pipeline's correctness does not depend on the caller using it.
type Result struct {
	Metrics             ContentMetrics
	ActivationTriggered bool
}

// Pipeline owns event records and activation marks in the document
// store. It reads the user document and writes its activation flag
// once, under transaction; it never mutates other user fields.
type Pipeline struct {
	store docstore.Store
	log   *zap.Logger
	env   string
	now   func() time.Time
}

func NewPipeline(store docstore.Store, log *zap.Logger, environment string) *Pipeline {
	return &Pipeline{
		store: store,
		log:   log,
		env:   environment,
		now:   time.Now,
	}
}

// ProcessSave records the save as an event and, when the content clears
// the meaningful bar, attempts the once-per-fingerprint activation.
// All storage failures here are logged and swallowed; the caller's
// primary write has already succeeded and must not be invalidated.
func (p *Pipeline) ProcessSave(ctx context.Context, save SaveAction) Result {
	metrics := BuildContentMetrics(save.Parts)

	p.EmitEvent(ctx, Event{
		Kind:        EventLabEntrySaved,
		UserID:      save.UserID,
		SessionID:   save.SessionID,
		LabID:       save.LabID,
		SizeBucket:  metrics.SizeBucket,
		Success:     true,
		Environment: p.env,
		Fingerprint: metrics.Fingerprint,
	})

	triggered := false
	if metrics.Meaningful {
		var err error
		triggered, err = p.RecordActivationOnce(ctx, save.UserID, metrics.Fingerprint, ActivationMeta{
			SessionID:  save.SessionID,
			LabID:      save.LabID,
			SizeBucket: metrics.SizeBucket,
		})
		if err != nil {
			p.log.Warn("activation record failed",
				zap.String("user_id", save.UserID),
				zap.String("lab_id", save.LabID),
				zap.Error(err))
		}
	}

	return Result{Metrics: metrics, ActivationTriggered: triggered}
}

// EmitEvent appends an event record. Best-effort: a failed write is
// counted, logged with enough context to reconstruct it, and dropped.
// It deliberately returns nothing so a failure cannot propagate into
// the caller's primary result.
func (p *Pipeline) EmitEvent(ctx context.Context, ev Event) {
	if ev.Environment == "" {
		ev.Environment = p.env
	}
	fields := docstore.Fields{
		"kind":        ev.Kind,
		"user_id":     ev.UserID,
		"session_id":  ev.SessionID,
		"lab_id":      ev.LabID,
		"size_bucket": ev.SizeBucket,
		"success":     ev.Success,
		"environment": ev.Environment,
		"error_kind":  ev.ErrorKind,
		"fingerprint": ev.Fingerprint,
		"created_at":  p.now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := p.store.Add(ctx, eventsCollection, fields); err != nil {
		eventWriteFailures.Inc()
		p.log.Warn("event write failed",
			zap.String("kind", ev.Kind),
			zap.String("user_id", ev.UserID),
			zap.String("lab_id", ev.LabID),
			zap.Error(err))
		return
	}
	eventsEmitted.WithLabelValues(ev.Kind, ev.Environment).Inc()
}

// RecordActivationOnce counts one distinct meaningful submission for a
// user. The per-fingerprint mark is the dedup guard: present means
// already counted. The user-level activated flag is set inside a store
// transaction so that of any number of concurrent qualifying
// submissions exactly one write survives. Returns true only when this
// call freshly recorded the fingerprint.
func (p *Pipeline) RecordActivationOnce(ctx context.Context, userID, fp string, meta ActivationMeta) (bool, error) {
	markID := userID + ":" + fp

	_, err := p.store.Get(ctx, marksCollection, markID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return false, err
	}

	// Narrow race: two concurrent saves of the same content can both
	// reach this write. Over-counting one fingerprint is acceptable;
	// the transaction below is what enforces the user-level invariant.
	err = p.store.Set(ctx, marksCollection, markID, docstore.Fields{
		"user_id":     userID,
		"fingerprint": fp,
		"lab_id":      meta.LabID,
		"recorded_at": p.now().UTC().Format(time.RFC3339Nano),
	}, false)
	if err != nil {
		return false, err
	}

	flagSet := false
	err = p.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, err := tx.Get(usersCollection, userID)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		if doc != nil {
			if _, ok := doc["activated_at"]; ok {
				return nil
			}
		}
		if err := tx.Set(usersCollection, userID, docstore.Fields{
			"activated_at": p.now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return err
		}
		flagSet = true
		return nil
	})
	if err != nil {
		// The mark is already written; the flag will be retried by the
		// user's next distinct meaningful submission.
		p.log.Warn("activation flag transaction failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	if flagSet {
		activationsTotal.Inc()
	}

	p.EmitEvent(ctx, Event{
		Kind:        EventActivationReached,
		UserID:      userID,
		SessionID:   meta.SessionID,
		LabID:       meta.LabID,
		SizeBucket:  meta.SizeBucket,
		Success:     true,
		Environment: p.env,
		Fingerprint: fp,
	})

	return true, nil
}
