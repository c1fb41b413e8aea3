package service

import (
	"context"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
)

// memDB is an in-memory stand-in for Postgres. WithTx serialises
// transactions the way the event row lock does and restores the previous
// state when fn fails.
type memDB struct {
	txMu sync.Mutex

	mu     sync.Mutex
	events map[int64]model.Event
	regs   map[int64]model.Registration
	nextID int64

	insertErr error
}

type inTxKey struct{}

func newMemDB() *memDB {
	return &memDB{
		events: map[int64]model.Event{},
		regs:   map[int64]model.Registration{},
	}
}

func (db *memDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	events := cloneMap(db.events)
	regs := cloneMap(db.regs)
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		db.mu.Lock()
		db.events, db.regs = events, regs
		db.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) count(eventID int64) int {
	n := 0
	for _, r := range db.regs {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

// seedEvent stores an event and n registrations with generated phones.
func (db *memDB) seedEvent(capacity int, status model.EventStatus, n int) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	id := db.id()
	db.events[id] = model.Event{ID: id, Title: "Workshop", Capacity: capacity, Status: status}
	for i := 0; i < n; i++ {
		rid := db.id()
		db.regs[rid] = model.Registration{
			ID:      rid,
			EventID: id,
			Name:    "Seed",
			Phone:   seedPhone(i),
		}
	}
	return id
}

func seedPhone(i int) string {
	return "(11) 90000-" + pad4(i)
}

func pad4(i int) string {
	s := []byte("0000")
	for p := 3; p >= 0 && i > 0; p-- {
		s[p] = byte('0' + i%10)
		i /= 10
	}
	return string(s)
}

// ─── EventStore ───────────────────────────────────────────────────────────────

type memEvents struct{ db *memDB }

func (s memEvents) Create(_ context.Context, e *model.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = s.db.id()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	s.db.events[e.ID] = *e
	return nil
}

func (s memEvents) List(context.Context) ([]model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Event
	for _, e := range s.db.events {
		e.TotalInscriptions = s.db.count(e.ID)
		out = append(out, e)
	}
	return out, nil
}

func (s memEvents) GetByID(_ context.Context, id int64) (*model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e.TotalInscriptions = s.db.count(id)
	return &e, nil
}

func (s memEvents) GetForUpdate(_ context.Context, id int64) (*model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s memEvents) Update(_ context.Context, e *model.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.events[e.ID]; !ok {
		return repository.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	stored := *e
	stored.TotalInscriptions = 0
	s.db.events[e.ID] = stored
	return nil
}

func (s memEvents) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.events, id)
	for rid, r := range s.db.regs {
		if r.EventID == id {
			delete(s.db.regs, rid)
		}
	}
	return nil
}

// ─── RegistrationStore ────────────────────────────────────────────────────────

type memRegs struct{ db *memDB }

func (s memRegs) Count(_ context.Context, eventID int64) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.count(eventID), nil
}

func (s memRegs) FindByPhone(_ context.Context, eventID int64, phone string) (*model.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.regs {
		if r.EventID == eventID && r.Phone == phone {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memRegs) GetByID(_ context.Context, eventID, id int64) (*model.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.regs[id]
	if !ok || r.EventID != eventID {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s memRegs) ListByEvent(_ context.Context, eventID int64) ([]model.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Registration
	for _, r := range s.db.regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s memRegs) Insert(_ context.Context, eventID int64, name, phone string) (*model.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.insertErr != nil {
		return nil, s.db.insertErr
	}
	if _, ok := s.db.events[eventID]; !ok {
		return nil, repository.ErrNotFound
	}
	for _, r := range s.db.regs {
		if r.EventID == eventID && r.Phone == phone {
			return nil, repository.ErrUniqueViolation
		}
	}
	now := time.Now()
	r := model.Registration{ID: s.db.id(), EventID: eventID, Name: name, Phone: phone, CreatedAt: now, UpdatedAt: now}
	s.db.regs[r.ID] = r
	return &r, nil
}

func (s memRegs) Update(_ context.Context, reg *model.Registration) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.regs[reg.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range s.db.regs {
		if r.ID != reg.ID && r.EventID == reg.EventID && r.Phone == reg.Phone {
			return repository.ErrUniqueViolation
		}
	}
	reg.UpdatedAt = time.Now()
	s.db.regs[reg.ID] = *reg
	return nil
}

func (s memRegs) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.regs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.regs, id)
	return nil
}

// ─── Side effects ─────────────────────────────────────────────────────────────

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (n *recordingNotifier) Publish(m model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
}

func (n *recordingNotifier) all() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notification(nil), n.sent...)
}

type recordingAuditor struct {
	mu      sync.Mutex
	records []model.AuditRecord
	err     error
}

func (a *recordingAuditor) Log(_ context.Context, rec model.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, rec)
	return nil
}

func (a *recordingAuditor) actions() []model.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AuditAction, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, r.Action)
	}
	return out
}

// stallingTx never runs fn; it waits for the transaction deadline.
type stallingTx struct{}

func (stallingTx) WithTx(ctx context.Context, _ func(ctx context.Context) error) error {
	<-ctx.Done()
	return ctx.Err()
}
