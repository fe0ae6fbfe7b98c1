package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
)

type submitFixture struct {
	uc     *SubmitProof
	store  *memOrderStore
	ledger *memLedger
	cache  *memCommitCache
	pub    *capturingPublisher
	outbox *memOutbox
}

func newSubmitFixture(t *testing.T, stock map[string]int) *submitFixture {
	t.Helper()
	f := &submitFixture{
		store:  newMemOrderStore(),
		ledger: newMemLedger(stock),
		cache:  newMemCommitCache(),
		pub:    &capturingPublisher{},
		outbox: &memOutbox{},
	}
	catalog := &stubCatalog{prices: map[string]int64{"p1": 500, "p2": 150}}
	f.uc = NewSubmitProof(f.store, f.ledger, stubVerifier{}, catalog, f.cache, f.pub, f.outbox, "INR")
	return f
}

func (f *submitFixture) seedPending(t *testing.T, id string, items []domain.LineItem) *domain.Order {
	t.Helper()
	ord := &domain.Order{
		ID:          id,
		UserID:      "u1",
		LineItems:   items,
		TotalAmount: domain.LineTotal(items),
		Status:      domain.StatusPending,
	}
	require.NoError(t, f.store.Create(context.Background(), ord))
	return ord
}

func validProof(orderSuffix string) domain.Proof {
	extOrder := "extord_" + orderSuffix
	extPay := "pay_" + orderSuffix
	return domain.Proof{
		ExternalOrderID:   extOrder,
		ExternalPaymentID: extPay,
		Signature:         stubSignature(extOrder, extPay),
	}
}

func TestSubmitProof_Commit(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}})

	res, err := f.uc.Execute(context.Background(), "ord-1", validProof("1"))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, domain.StatusPaid, res.Order.Status)
	require.NotNil(t, res.Order.PaymentRef)
	assert.Equal(t, "pay_1", res.Order.PaymentRef.ExternalPaymentID)
	assert.False(t, res.Order.InventoryReconciliationNeeded)

	assert.Equal(t, 8, f.ledger.level("p1"))

	persisted, err := f.store.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, persisted.Status)

	require.Len(t, f.pub.paid, 1)
	assert.Equal(t, "ord-1", f.pub.paid[0].OrderID)
	assert.Empty(t, f.pub.reconcile)
	assert.Empty(t, f.outbox.tasks)
}

func TestSubmitProof_TamperedSignature(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}})

	proof := validProof("1")
	proof.Signature = proof.Signature + "tampered"

	_, err := f.uc.Execute(context.Background(), "ord-1", proof)
	assert.ErrorIs(t, err, ErrProofInvalid)

	// nothing mutated
	cur, gerr := f.store.Get(context.Background(), "ord-1")
	require.NoError(t, gerr)
	assert.Equal(t, domain.StatusPending, cur.Status)
	assert.Equal(t, 10, f.ledger.level("p1"))
}

func TestSubmitProof_ReplayIsIdempotent(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}})
	proof := validProof("1")

	first, err := f.uc.Execute(context.Background(), "ord-1", proof)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := f.uc.Execute(context.Background(), "ord-1", proof)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, domain.StatusPaid, second.Order.Status)

	// exactly one decrement and one paid event despite two submissions
	assert.Equal(t, 8, f.ledger.level("p1"))
	assert.Len(t, f.pub.paid, 1)
}

func TestSubmitProof_SamePaymentCannotPayTwoOrders(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 500}})
	f.seedPending(t, "ord-2", []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 500}})
	proof := validProof("1")

	_, err := f.uc.Execute(context.Background(), "ord-1", proof)
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), "ord-2", proof)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestSubmitProof_PaymentReuseBlockedWhenCacheDown(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.uc.commits = unavailableCache{}
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 500}})
	f.seedPending(t, "ord-2", []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 500}})
	proof := validProof("1")

	first, err := f.uc.Execute(context.Background(), "ord-1", proof)
	require.NoError(t, err, "cache outage must not block the commit itself")
	assert.Equal(t, domain.StatusPaid, first.Order.Status)

	// the store's unique payment key must hold without the cache
	_, err = f.uc.Execute(context.Background(), "ord-2", proof)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)

	cur, gerr := f.store.Get(context.Background(), "ord-2")
	require.NoError(t, gerr)
	assert.Equal(t, domain.StatusPending, cur.Status)
	assert.Equal(t, 9, f.ledger.level("p1"), "inventory decremented for one order only")
}

func TestSubmitProof_UnknownProductFlagsReconcile(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "ghost", Quantity: 1, UnitPrice: 500}})

	res, err := f.uc.Execute(context.Background(), "ord-1", validProof("1"))
	require.NoError(t, err, "paid commit must not be blocked by a missing inventory row")
	assert.Equal(t, domain.StatusPaid, res.Order.Status)
	assert.True(t, res.Order.InventoryReconciliationNeeded)

	require.Len(t, f.pub.reconcile, 1)
	assert.Equal(t, "decrement_failed", f.pub.reconcile[0].Reason)
	require.Len(t, f.outbox.tasks, 1)
}

func TestSubmitProof_PaidOrderRejectsDifferentPayment(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 500}})

	_, err := f.uc.Execute(context.Background(), "ord-1", validProof("1"))
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), "ord-1", validProof("other"))
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 9, f.ledger.level("p1"))
}

func TestSubmitProof_FailedOrderRejectsPayment(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	ord := f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 500}})
	applied, err := f.store.Transition(context.Background(), ord.ID, domain.StatusPending, domain.StatusFailed, TransitionSet{})
	require.NoError(t, err)
	require.True(t, applied)

	_, err = f.uc.Execute(context.Background(), ord.ID, validProof("1"))
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestSubmitProof_UnknownOrder(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{})
	_, err := f.uc.Execute(context.Background(), "ghost", validProof("1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitProof_MissingProofFields(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 500}})

	_, err := f.uc.Execute(context.Background(), "ord-1", domain.Proof{ExternalOrderID: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSubmitProof_OversellClampsAndFlags(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 1})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}})

	res, err := f.uc.Execute(context.Background(), "ord-1", validProof("1"))
	require.NoError(t, err, "paid commit must not be blocked by stock")
	assert.Equal(t, domain.StatusPaid, res.Order.Status)
	assert.True(t, res.Order.InventoryReconciliationNeeded)

	assert.Equal(t, 0, f.ledger.level("p1"), "stock clamped at zero")

	persisted, err := f.store.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.True(t, persisted.InventoryReconciliationNeeded)

	require.Len(t, f.pub.reconcile, 1)
	assert.Equal(t, "clamped", f.pub.reconcile[0].Reason)
	require.Len(t, f.outbox.tasks, 1)
}

func TestSubmitProof_CommitTimePriceMismatchAborts(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}})

	// price changed between creation and commit
	f.uc.catalog = &stubCatalog{prices: map[string]int64{"p1": 999}}

	_, err := f.uc.Execute(context.Background(), "ord-1", validProof("1"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	cur, gerr := f.store.Get(context.Background(), "ord-1")
	require.NoError(t, gerr)
	assert.Equal(t, domain.StatusPending, cur.Status)
	assert.Equal(t, 10, f.ledger.level("p1"))
}

func TestSubmitProof_CatalogOutageDoesNotBlockCommit(t *testing.T) {
	f := newSubmitFixture(t, map[string]int{"p1": 10})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}})

	f.uc.catalog = &stubCatalog{err: assert.AnError}

	res, err := f.uc.Execute(context.Background(), "ord-1", validProof("1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, res.Order.Status)
}

func TestSubmitProof_ConcurrentCallersSingleCommit(t *testing.T) {
	const callers = 16

	f := newSubmitFixture(t, map[string]int{"p1": 100})
	f.seedPending(t, "ord-1", []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}})
	proof := validProof("1")

	var wg sync.WaitGroup
	results := make([]CommitResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.uc.Execute(context.Background(), "ord-1", proof)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		require.NotNil(t, results[i].Order)
		assert.Equal(t, domain.StatusPaid, results[i].Order.Status)
		if !results[i].Replayed {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller performs the commit")
	assert.Equal(t, 98, f.ledger.level("p1"), "inventory decremented exactly once")
	assert.Len(t, f.pub.paid, 1)
}

func TestLedger_ConcurrentDecrementsNoLostUpdates(t *testing.T) {
	const workers = 20

	ledger := newMemLedger(map[string]int{"p1": 100})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ledger.Decrement(context.Background(), "p1", 3)
		}()
	}
	wg.Wait()

	// 20 workers x 3 units from 100: 33 full decrements fit, so all 20
	// succeed; the result must match serial execution exactly.
	assert.Equal(t, 40, ledger.level("p1"))
}
