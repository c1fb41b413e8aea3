// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// DefaultTxTimeout bounds every transaction a service opens.
const DefaultTxTimeout = 10 * time.Second

// Transactor runs fn inside one database transaction. Store calls made with
// the ctx handed to fn join that transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventStore persists events. Missing rows yield repository.ErrNotFound.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Event, error)
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id int64) error
}

// RegistrationStore persists registrations. Insert and Update report a
// (event, phone) collision as repository.ErrUniqueViolation.
type RegistrationStore interface {
	Count(ctx context.Context, eventID int64) (int, error)
	FindByPhone(ctx context.Context, eventID int64, phone string) (*model.Registration, error)
	GetByID(ctx context.Context, eventID, id int64) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID int64) ([]model.Registration, error)
	Insert(ctx context.Context, eventID int64, name, phone string) (*model.Registration, error)
	Update(ctx context.Context, reg *model.Registration) error
	Delete(ctx context.Context, id int64) error
}

// Notifier fans registration facts out to listeners. Publish must not block.
type Notifier interface {
	Publish(n model.Notification)
}

// Auditor appends audit records.
type Auditor interface {
	Log(ctx context.Context, rec model.AuditRecord) error
}

// Option configures the side effects and limits shared by the services.
type Option func(*deps)

// WithTxTimeout overrides DefaultTxTimeout.
func WithTxTimeout(d time.Duration) Option {
	return func(s *deps) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

// WithNotifier sets the sink for registration facts.
func WithNotifier(n Notifier) Option {
	return func(s *deps) { s.notifier = n }
}

// WithAuditor sets the audit sink.
func WithAuditor(a Auditor) Option {
	return func(s *deps) { s.auditor = a }
}

// WithLogger sets the logger used for swallowed side-effect failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *deps) { s.log = l }
}

// WithTracer sets the tracer for service spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *deps) { s.tracer = t }
}

// WithClock overrides time.Now for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *deps) { s.now = now }
}

type deps struct {
	tx        Transactor
	txTimeout time.Duration
	notifier  Notifier
	auditor   Auditor
	log       *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func newDeps(tx Transactor, opts []Option) deps {
	d := deps{
		tx:        tx,
		txTimeout: DefaultTxTimeout,
		log:       zap.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer("service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// inTx runs fn in one transaction bounded by txTimeout. A deadline hit is
// reported as ErrTimeout unless fn already failed with a classified error.
func (d *deps) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, cancel := context.WithTimeout(ctx, d.txTimeout)
	defer cancel()

	err := d.tx.WithTx(txCtx, fn)
	if err == nil || isClassified(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(txCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, d.txTimeout, err)
	}
	return err
}

// audit writes rec and swallows failures; the primary operation has
// already committed.
func (d *deps) audit(ctx context.Context, rec model.AuditRecord) {
	if d.auditor == nil {
		return
	}
	// The request may be cancelled right after the response is written.
	if err := d.auditor.Log(context.WithoutCancel(ctx), rec); err != nil {
		d.log.Warn("audit log write failed",
			zap.String("action", string(rec.Action)),
			zap.String("entity_type", rec.EntityType),
			zap.Int64("entity_id", rec.EntityID),
			zap.Error(err),
		)
	}
}

func (d *deps) notify(n model.Notification) {
	if d.notifier == nil {
		return
	}
	d.notifier.Publish(n)
}
