package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
)

// In-memory ports for the use case tests. The store mirrors the MySQL
// adapter's semantics: Transition is a status-guarded compare-and-set.

type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[string]*domain.Order)}
}

func (s *memOrderStore) Create(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *memOrderStore) Get(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (s *memOrderStore) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (s *memOrderStore) Transition(_ context.Context, id string, from, to domain.Status, set TransitionSet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	// mirrors the unique key on ext_payment_id
	if set.PaymentRef != nil {
		for oid, other := range s.orders {
			if oid != id && other.PaymentRef != nil && other.PaymentRef.ExternalPaymentID == set.PaymentRef.ExternalPaymentID {
				return false, &ConflictError{OrderID: id, Reason: "payment " + set.PaymentRef.ExternalPaymentID + " already committed to another order"}
			}
		}
	}
	o.Status = to
	if set.PaymentRef != nil {
		ref := *set.PaymentRef
		o.PaymentRef = &ref
	}
	if set.ReconcileNeeded != nil {
		o.InventoryReconciliationNeeded = *set.ReconcileNeeded
	}
	return true, nil
}

func (s *memOrderStore) MarkReconcileNeeded(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.InventoryReconciliationNeeded = true
	return nil
}

type memLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

func newMemLedger(stock map[string]int) *memLedger {
	cp := make(map[string]int, len(stock))
	for k, v := range stock {
		cp[k] = v
	}
	return &memLedger{stock: cp}
}

func (l *memLedger) Decrement(_ context.Context, productID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stock[productID] < qty {
		return ErrInsufficientStock
	}
	l.stock[productID] -= qty
	return nil
}

func (l *memLedger) DecrementClamped(_ context.Context, productID string, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.stock[productID]
	if !ok {
		return false, fmt.Errorf("unknown product %s: %w", productID, ErrNotFound)
	}
	if cur < qty {
		l.stock[productID] = 0
		return true, nil
	}
	l.stock[productID] -= qty
	return false, nil
}

func (l *memLedger) level(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[productID]
}

type stubVerifier struct{}

func stubSignature(externalOrderID, externalPaymentID string) string {
	return "sig:" + externalOrderID + "|" + externalPaymentID
}

func (stubVerifier) Verify(externalOrderID, externalPaymentID, signature string) error {
	if signature != stubSignature(externalOrderID, externalPaymentID) {
		return ErrProofInvalid
	}
	return nil
}

type stubCatalog struct {
	prices map[string]int64
	err    error
}

func (c *stubCatalog) Price(_ context.Context, productID string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	p, ok := c.prices[productID]
	if !ok {
		return 0, ErrNotFound
	}
	return p, nil
}

type memCommitCache struct {
	mu       sync.Mutex
	commits  map[string]string
	statuses map[string]string
}

func newMemCommitCache() *memCommitCache {
	return &memCommitCache{commits: make(map[string]string), statuses: make(map[string]string)}
}

func (c *memCommitCache) RememberCommit(_ context.Context, externalPaymentID, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits[externalPaymentID] = orderID
	return nil
}

func (c *memCommitCache) RecallCommit(_ context.Context, externalPaymentID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.commits[externalPaymentID]
	return id, ok, nil
}

func (c *memCommitCache) SetStatus(_ context.Context, orderID, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[orderID] = status
	return nil
}

type capturingPublisher struct {
	mu        sync.Mutex
	created   []OrderCreatedMsg
	paid      []OrderPaidMsg
	reconcile []ReconcileMsg
	err       error
}

func (p *capturingPublisher) PublishOrderCreated(_ context.Context, msg OrderCreatedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.created = append(p.created, msg)
	return nil
}

func (p *capturingPublisher) PublishOrderPaid(_ context.Context, msg OrderPaidMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.paid = append(p.paid, msg)
	return nil
}

func (p *capturingPublisher) PublishReconcile(_ context.Context, msg ReconcileMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reconcile = append(p.reconcile, msg)
	return nil
}

type memOutbox struct {
	mu    sync.Mutex
	tasks [][]byte
}

func (o *memOutbox) InsertReconcileTask(_ context.Context, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tasks = append(o.tasks, payload)
	return nil
}

// unavailableCache fails every operation, as when redis is down.
type unavailableCache struct{}

var errCacheDown = errors.New("cache down")

func (unavailableCache) RememberCommit(context.Context, string, string) error { return errCacheDown }
func (unavailableCache) RecallCommit(context.Context, string) (string, bool, error) {
	return "", false, errCacheDown
}
func (unavailableCache) SetStatus(context.Context, string, string) error { return errCacheDown }

type stubGateway struct {
	mu       sync.Mutex
	intents  []domain.Intent
	payments map[string]*domain.PaymentDetails
	err      error
}

func (g *stubGateway) CreateIntent(_ context.Context, amount int64, currency, receipt string) (*domain.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	in := domain.Intent{
		ExternalOrderID: "extord_" + receipt,
		Amount:          amount,
		Currency:        currency,
		Receipt:         receipt,
	}
	g.intents = append(g.intents, in)
	return &in, nil
}

func (g *stubGateway) FetchPayment(_ context.Context, externalPaymentID string) (*domain.PaymentDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.payments[externalPaymentID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}
