// Package testutil provides in-memory ticketing repositories and stubs for tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

// Store is an in-memory database. WithTx serializes transactions and restores a
// snapshot when fn fails.
type Store struct {
	mu         sync.Mutex
	EventRows  map[string]domain.Event
	TierRows   map[string]domain.PricingTier
	CouponRows map[string]domain.Coupon
	TicketRows map[string]domain.Ticket

	FailCreateBatch error
	FailIncrement   error
}

type txKey struct{}

func NewStore() *Store {
	return &Store{
		EventRows:  map[string]domain.Event{},
		TierRows:   map[string]domain.PricingTier{},
		CouponRows: map[string]domain.Coupon{},
		TicketRows: map[string]domain.Ticket{},
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	events, tiers, coupons, tickets := cloneMap(s.EventRows), cloneMap(s.TierRows), cloneMap(s.CouponRows), cloneMap(s.TicketRows)
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.EventRows, s.TierRows, s.CouponRows, s.TicketRows = events, tiers, coupons, tickets
		return err
	}
	return nil
}

func (s *Store) do(ctx context.Context, fn func()) {
	if ctx.Value(txKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn()
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) ticketCount(pred func(domain.Ticket) bool) int {
	n := 0
	for _, t := range s.TicketRows {
		if pred(t) {
			n++
		}
	}
	return n
}

// Events, Tiers, Coupons and Tickets implement the domain repositories over one Store.
type Events struct{ *Store }

func (r Events) Create(ctx context.Context, e *domain.Event) error {
	r.do(ctx, func() { r.EventRows[e.ID] = *e })
	return nil
}

func (r Events) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	var (
		e  domain.Event
		ok bool
	)
	r.do(ctx, func() { e, ok = r.EventRows[id] })
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return &e, nil
}

func (r Events) FindByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.FindByID(ctx, id)
}

func (r Events) List(ctx context.Context, f domain.EventFilter) ([]*domain.Event, error) {
	var out []*domain.Event
	r.do(ctx, func() {
		for _, e := range r.EventRows {
			if f.Type != "" && e.Type != f.Type {
				continue
			}
			if f.ManagerID != "" && e.ManagerID != f.ManagerID {
				continue
			}
			e := e
			out = append(out, &e)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r Events) Update(ctx context.Context, e *domain.Event) error {
	r.do(ctx, func() { r.EventRows[e.ID] = *e })
	return nil
}

func (r Events) Delete(ctx context.Context, id string) error {
	r.do(ctx, func() {
		delete(r.EventRows, id)
		for tid, t := range r.TierRows {
			if t.EventID == id {
				delete(r.TierRows, tid)
			}
		}
		for cid, c := range r.CouponRows {
			if c.EventID == id {
				delete(r.CouponRows, cid)
			}
		}
	})
	return nil
}

type Tiers struct{ *Store }

func (r Tiers) Create(ctx context.Context, t *domain.PricingTier) error {
	r.do(ctx, func() { r.TierRows[t.ID] = *t })
	return nil
}

func (r Tiers) FindByID(ctx context.Context, id string) (*domain.PricingTier, error) {
	var (
		t  domain.PricingTier
		ok bool
	)
	r.do(ctx, func() { t, ok = r.TierRows[id] })
	if !ok {
		return nil, domain.ErrTierNotFound
	}
	return &t, nil
}

func (r Tiers) FindByIDForUpdate(ctx context.Context, id string) (*domain.PricingTier, error) {
	return r.FindByID(ctx, id)
}

func (r Tiers) ListByEvent(ctx context.Context, eventID string) ([]*domain.PricingTier, error) {
	var out []*domain.PricingTier
	r.do(ctx, func() {
		for _, t := range r.TierRows {
			if t.EventID == eventID {
				t := t
				out = append(out, &t)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r Tiers) Update(ctx context.Context, t *domain.PricingTier) error {
	r.do(ctx, func() { r.TierRows[t.ID] = *t })
	return nil
}

func (r Tiers) Delete(ctx context.Context, id string) error {
	r.do(ctx, func() {
		delete(r.TierRows, id)
		for cid, c := range r.CouponRows {
			if c.TierID == id {
				delete(r.CouponRows, cid)
			}
		}
	})
	return nil
}

func (r Tiers) SumAllocated(ctx context.Context, eventID, excludeTierID string) (int, error) {
	sum := 0
	r.do(ctx, func() {
		for _, t := range r.TierRows {
			if t.EventID == eventID && t.ID != excludeTierID {
				sum += t.Count
			}
		}
	})
	return sum, nil
}

type Coupons struct{ *Store }

func (r Coupons) Create(ctx context.Context, c *domain.Coupon) error {
	r.do(ctx, func() { r.CouponRows[c.ID] = *c })
	return nil
}

func (r Coupons) FindByID(ctx context.Context, id string) (*domain.Coupon, error) {
	var (
		c  domain.Coupon
		ok bool
	)
	r.do(ctx, func() { c, ok = r.CouponRows[id] })
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	return &c, nil
}

func (r Coupons) FindByIDForUpdate(ctx context.Context, id string) (*domain.Coupon, error) {
	return r.FindByID(ctx, id)
}

func (r Coupons) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var found *domain.Coupon
	r.do(ctx, func() {
		for _, c := range r.CouponRows {
			if c.Code == code {
				c := c
				found = &c
			}
		}
	})
	if found == nil {
		return nil, domain.ErrCouponNotFound
	}
	return found, nil
}

func (r Coupons) FindByCodeForUpdate(ctx context.Context, code, eventID string) (*domain.Coupon, error) {
	c, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c.EventID != eventID {
		return nil, domain.ErrCouponNotFound
	}
	return c, nil
}

func (r Coupons) ListByEvent(ctx context.Context, eventID string) ([]*domain.Coupon, error) {
	var out []*domain.Coupon
	r.do(ctx, func() {
		for _, c := range r.CouponRows {
			if c.EventID == eventID {
				c := c
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

func (r Coupons) Update(ctx context.Context, c *domain.Coupon) error {
	r.do(ctx, func() { r.CouponRows[c.ID] = *c })
	return nil
}

func (r Coupons) Delete(ctx context.Context, id string) error {
	r.do(ctx, func() { delete(r.CouponRows, id) })
	return nil
}

func (r Coupons) IncrementUsage(ctx context.Context, id string) (bool, error) {
	if r.FailIncrement != nil {
		return false, r.FailIncrement
	}
	changed := false
	r.do(ctx, func() {
		c, ok := r.CouponRows[id]
		if ok && c.TimesUsed < c.UsageLimit {
			c.TimesUsed++
			r.CouponRows[id] = c
			changed = true
		}
	})
	return changed, nil
}

type Tickets struct{ *Store }

func (r Tickets) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	if r.FailCreateBatch != nil {
		return r.FailCreateBatch
	}
	r.do(ctx, func() {
		for _, t := range tickets {
			r.TicketRows[t.ID] = *t
		}
	})
	return nil
}

func (r Tickets) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var (
		t  domain.Ticket
		ok bool
	)
	r.do(ctx, func() { t, ok = r.TicketRows[id] })
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return &t, nil
}

func (r Tickets) ListByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	var out []*domain.Ticket
	r.do(ctx, func() {
		for _, t := range r.TicketRows {
			if t.EventID == eventID {
				t := t
				out = append(out, &t)
			}
		}
	})
	return out, nil
}

func (r Tickets) Update(ctx context.Context, t *domain.Ticket) error {
	r.do(ctx, func() { r.TicketRows[t.ID] = *t })
	return nil
}

func (r Tickets) Delete(ctx context.Context, id string) error {
	var ok bool
	r.do(ctx, func() {
		_, ok = r.TicketRows[id]
		delete(r.TicketRows, id)
	})
	if !ok {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r Tickets) CountByEventAndUser(ctx context.Context, eventID, userID string) (n int, _ error) {
	r.do(ctx, func() {
		n = r.ticketCount(func(t domain.Ticket) bool { return t.EventID == eventID && t.UserID == userID })
	})
	return n, nil
}

func (r Tickets) CountByTier(ctx context.Context, tierID string) (n int, _ error) {
	r.do(ctx, func() { n = r.ticketCount(func(t domain.Ticket) bool { return t.TierID == tierID }) })
	return n, nil
}

func (r Tickets) CountByEvent(ctx context.Context, eventID string) (n int, _ error) {
	r.do(ctx, func() { n = r.ticketCount(func(t domain.Ticket) bool { return t.EventID == eventID }) })
	return n, nil
}

func (r Tickets) CountByCoupon(ctx context.Context, code string) (n int, _ error) {
	r.do(ctx, func() { n = r.ticketCount(func(t domain.Ticket) bool { return t.CouponCode == code }) })
	return n, nil
}

func (r Tickets) IssuedByTier(ctx context.Context, eventID string) (map[string]int, error) {
	out := map[string]int{}
	r.do(ctx, func() {
		for _, t := range r.TicketRows {
			if t.EventID == eventID {
				out[t.TierID]++
			}
		}
	})
	return out, nil
}

func (r Tickets) LockPurchaser(context.Context, string, string) error { return nil }

type StubConditions struct {
	Allow      bool
	CompileErr error
}

func (s StubConditions) Compile(string) error { return s.CompileErr }

func (s StubConditions) Evaluate(context.Context, string, port.ConditionFacts) (bool, error) {
	return s.Allow, nil
}

// RecordingPublisher keeps every published event and fails with Err when set.
type RecordingPublisher struct {
	mu        sync.Mutex
	Published []domain.TicketsIssued
	Err       error
}

func (p *RecordingPublisher) PublishTicketsIssued(_ context.Context, e domain.TicketsIssued) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, e)
	return p.Err
}

type MemIdempotency struct {
	mu      sync.Mutex
	pending map[string]bool
	done    map[string][]byte
}

func NewMemIdempotency() *MemIdempotency {
	return &MemIdempotency{pending: map[string]bool{}, done: map[string][]byte{}}
}

func (m *MemIdempotency) Begin(_ context.Context, scope, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + "/" + key
	if v, ok := m.done[k]; ok {
		return v, nil
	}
	if m.pending[k] {
		return nil, domain.NewConflict("idempotency_in_flight", "request in flight")
	}
	m.pending[k] = true
	return nil, nil
}

func (m *MemIdempotency) Complete(_ context.Context, scope, key string, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + "/" + key
	delete(m.pending, k)
	m.done[k] = result
	return nil
}

func (m *MemIdempotency) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, scope+"/"+key)
	return nil
}

