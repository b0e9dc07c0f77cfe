package telemetry

import (
	"context"
	"time"

	"debugdiary/internal/models"
	"debugdiary/internal/repositories"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const storageScopeName = "debugdiary/storage"

// storageInstruments are shared by the instrumented repositories.
type storageInstruments struct {
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

func newStorageInstruments() *storageInstruments {
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("diary.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("diary.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("diary.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &storageInstruments{
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (s *storageInstruments) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (s *storageInstruments) done(ctx context.Context, span trace.Span, start time.Time, err error) {
	s.dur.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1)
	}
	span.End()
}

// WrapStore decorates the store's repositories with spans and metrics.
// When telemetry is disabled the store is left untouched.
func WrapStore(store *repositories.Store, enabled bool) {
	if !enabled {
		return
	}
	inst := newStorageInstruments()
	store.Users = &instrumentedUsers{inner: store.Users, inst: inst}
	store.Bugs = &instrumentedBugs{inner: store.Bugs, inst: inst}
}

type instrumentedUsers struct {
	inner repositories.UserRepository
	inst  *storageInstruments
}

func (r *instrumentedUsers) Create(ctx context.Context, user *models.User) error {
	ctx, span, t := r.inst.op(ctx, "users.Create")
	err := r.inner.Create(ctx, user)
	r.inst.done(ctx, span, t, err)
	return err
}

func (r *instrumentedUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span, t := r.inst.op(ctx, "users.GetByEmail")
	u, err := r.inner.GetByEmail(ctx, email)
	r.inst.done(ctx, span, t, err)
	return u, err
}

func (r *instrumentedUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, span, t := r.inst.op(ctx, "users.GetByID", attribute.String("diary.user.id", id))
	u, err := r.inner.GetByID(ctx, id)
	r.inst.done(ctx, span, t, err)
	return u, err
}

func (r *instrumentedUsers) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) error {
	ctx, span, t := r.inst.op(ctx, "users.ConsumeVerificationToken")
	err := r.inner.ConsumeVerificationToken(ctx, token, now)
	r.inst.done(ctx, span, t, err)
	return err
}

func (r *instrumentedUsers) Delete(ctx context.Context, id string) error {
	ctx, span, t := r.inst.op(ctx, "users.Delete", attribute.String("diary.user.id", id))
	err := r.inner.Delete(ctx, id)
	r.inst.done(ctx, span, t, err)
	return err
}

type instrumentedBugs struct {
	inner repositories.BugRepository
	inst  *storageInstruments
}

func (r *instrumentedBugs) Create(ctx context.Context, bug *models.BugEntry) error {
	ctx, span, t := r.inst.op(ctx, "bugs.Create", attribute.Int("diary.tag.count", len(bug.Tags)))
	err := r.inner.Create(ctx, bug)
	r.inst.done(ctx, span, t, err)
	return err
}

func (r *instrumentedBugs) GetByID(ctx context.Context, ownerID, id string) (*models.BugEntry, error) {
	ctx, span, t := r.inst.op(ctx, "bugs.GetByID", attribute.String("diary.bug.id", id))
	b, err := r.inner.GetByID(ctx, ownerID, id)
	r.inst.done(ctx, span, t, err)
	return b, err
}

func (r *instrumentedBugs) Find(ctx context.Context, q repositories.BugQuery) ([]models.BugEntry, error) {
	ctx, span, t := r.inst.op(ctx, "bugs.Find", attribute.Int("diary.predicate.count", len(q.Predicates)))
	bugs, err := r.inner.Find(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Int("diary.result.count", len(bugs)))
	}
	r.inst.done(ctx, span, t, err)
	return bugs, err
}

func (r *instrumentedBugs) Update(ctx context.Context, ownerID, id string, patch models.BugPatch, now time.Time) (*models.BugEntry, error) {
	ctx, span, t := r.inst.op(ctx, "bugs.Update", attribute.String("diary.bug.id", id))
	b, err := r.inner.Update(ctx, ownerID, id, patch, now)
	r.inst.done(ctx, span, t, err)
	return b, err
}

func (r *instrumentedBugs) Delete(ctx context.Context, ownerID, id string) error {
	ctx, span, t := r.inst.op(ctx, "bugs.Delete", attribute.String("diary.bug.id", id))
	err := r.inner.Delete(ctx, ownerID, id)
	r.inst.done(ctx, span, t, err)
	return err
}
