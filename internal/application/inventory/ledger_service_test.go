package inventory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memScope runs units of work against the in-memory store
type memScope struct{ store *testutil.Store }

func (m memScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return m.store.Atomically(func() error { return fn(m) })
}

func (m memScope) BalanceRepo() inventory.StockBalanceRepository { return m.store.Balances() }
func (m memScope) LedgerRepo() inventory.LedgerRepository { return m.store.Ledger() }

var base = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

// steppingClock returns base, base+1m, base+2m, ...
func steppingClock() func() time.Time {
	var n int64
	return func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&n, 1)-1) * time.Minute)
	}
}

type ledgerFixture struct {
	store   *testutil.Store
	service *LedgerService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := testutil.NewStore()
	testutil.SeedItem(t, store, "C", catalog.ItemCategoryComponent)
	testutil.SeedItem(t, store, "D", catalog.ItemCategoryComponent)
	testutil.SeedWarehouse(t, store, "WA")
	testutil.SeedWarehouse(t, store, "WB")

	recorder := NewMovementRecorder().WithClock(steppingClock())
	svc := NewLedgerService(memScope{store}, store.Balances(), store.Ledger(), store.Items(), store.Warehouses(), recorder, zap.NewNop())
	return &ledgerFixture{store: store, service: svc}
}

func postReq(item, warehouse, qty, ref string) PostStockRequest {
	return PostStockRequest{ItemCode: item, WarehouseCode: warehouse, Quantity: testutil.Dec(qty), RefNo: ref}
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("unseen pair reports zero", func(t *testing.T) {
		f := newLedgerFixture(t)
		b, err := f.service.GetBalance(ctx, "C", "WA")
		require.NoError(t, err)
		assert.True(t, b.OnHand.IsZero())
		assert.True(t, b.Allocated.IsZero())
		assert.True(t, b.Available.IsZero())
		assert.Nil(t, b.UpdatedAt)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.GetBalance(ctx, "NOPE", "WA")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown warehouse", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.GetBalance(ctx, "C", "WZ")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("reports stored quantities", func(t *testing.T) {
		f := newLedgerFixture(t)
		testutil.SeedStock(t, f.store, "C", "WA", "12.5")
		b, err := f.service.GetBalance(ctx, "C", "WA")
		require.NoError(t, err)
		assert.Equal(t, "12.5", b.OnHand.String())
		assert.Equal(t, "12.5", b.Available.String())
	})
}

func TestLedgerService_PostInbound(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	req := postReq("C", "WA", "10", "PO-1")
	req.CounterpartCode = "V001"
	entry, err := f.service.PostInbound(ctx, testutil.TestActor, req)
	require.NoError(t, err)

	assert.Equal(t, "IN", entry.MovementType)
	assert.Equal(t, "PURCHASE_ORDER", entry.RefTable)
	assert.Equal(t, "V001", entry.CounterpartCode)
	assert.Equal(t, "WA", entry.ToWarehouse)
	assert.Empty(t, entry.FromWarehouse)
	assert.Equal(t, testutil.TestActor.ID, entry.ActorID)
	testutil.AssertBalance(t, f.store, "C", "WA", "10", "0")
	testutil.AssertLedgerConsistent(t, f.store)

	t.Run("rejects production references", func(t *testing.T) {
		bad := postReq("C", "WA", "1", "P1")
		bad.RefTable = string(inventory.RefProductionOrder)
		_, err := f.service.PostInbound(ctx, testutil.TestActor, bad)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := f.service.PostInbound(ctx, testutil.TestActor, postReq("C", "WA", "0", "PO-2"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		testutil.AssertBalance(t, f.store, "C", "WA", "10", "0")
	})

	t.Run("rejects quantity finer than four places", func(t *testing.T) {
		_, err := f.service.PostInbound(ctx, testutil.TestActor, postReq("C", "WA", "0.00004", "PO-4"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		testutil.AssertBalance(t, f.store, "C", "WA", "10", "0")
	})

	t.Run("requires an actor", func(t *testing.T) {
		_, err := f.service.PostInbound(ctx, shared.Actor{}, postReq("C", "WA", "1", "PO-3"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestLedgerService_PostOutbound(t *testing.T) {
	ctx := context.Background()

	t.Run("ships available stock", func(t *testing.T) {
		f := newLedgerFixture(t)
		testutil.SeedStock(t, f.store, "C", "WA", "10")
		entry, err := f.service.PostOutbound(ctx, testutil.TestActor, postReq("C", "WA", "4", "SO-1"))
		require.NoError(t, err)
		assert.Equal(t, "OUT", entry.MovementType)
		assert.Equal(t, "SALES_ORDER", entry.RefTable)
		assert.Equal(t, "WA", entry.FromWarehouse)
		assert.Equal(t, "-4", entry.QuantityDelta.String())
		testutil.AssertBalance(t, f.store, "C", "WA", "6", "0")
		testutil.AssertLedgerConsistent(t, f.store)
	})

	t.Run("never dips into allocated stock", func(t *testing.T) {
		f := newLedgerFixture(t)
		testutil.SeedStock(t, f.store, "C", "WA", "10")
		b, _ := f.store.Balance("C", "WA")
		b.Allocated = testutil.Dec("7")
		f.store.PutBalance(b)

		_, err := f.service.PostOutbound(ctx, testutil.TestActor, postReq("C", "WA", "4", "SO-1"))
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		testutil.AssertBalance(t, f.store, "C", "WA", "10", "7")
	})

	t.Run("missing balance row", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.PostOutbound(ctx, testutil.TestActor, postReq("C", "WA", "1", "SO-1"))
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		_, exists := f.store.Balance("C", "WA")
		assert.False(t, exists)
	})
}

func TestLedgerService_GetLedgerHistory(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	for _, p := range []PostStockRequest{
		postReq("C", "WA", "10", "PO-1"), // base
		postReq("C", "WB", "5", "PO-2"),  // base+1m
		postReq("D", "WA", "3", "PO-3"),  // base+2m
	} {
		_, err := f.service.PostInbound(ctx, testutil.TestActor, p)
		require.NoError(t, err)
	}
	_, err := f.service.PostOutbound(ctx, testutil.TestActor, postReq("C", "WA", "4", "SO-1")) // base+3m
	require.NoError(t, err)

	t.Run("by item keeps a running balance per warehouse", func(t *testing.T) {
		lines, err := f.service.GetLedgerHistory(ctx, LedgerHistoryQuery{ItemCode: "C"})
		require.NoError(t, err)
		require.Len(t, lines, 3)
		assert.Equal(t, "WA", lines[0].WarehouseCode)
		assert.Equal(t, "10", lines[0].RunningOnHand.String())
		assert.Equal(t, "WB", lines[1].WarehouseCode)
		assert.Equal(t, "5", lines[1].RunningOnHand.String())
		assert.Equal(t, "WA", lines[2].WarehouseCode)
		assert.Equal(t, "6", lines[2].RunningOnHand.String())
	})

	t.Run("by warehouse", func(t *testing.T) {
		lines, err := f.service.GetLedgerHistory(ctx, LedgerHistoryQuery{WarehouseCode: "WA"})
		require.NoError(t, err)
		require.Len(t, lines, 3)
		assert.Equal(t, []string{"C", "D", "C"}, []string{lines[0].ItemCode, lines[1].ItemCode, lines[2].ItemCode})
	})

	t.Run("from keeps the opening balance", func(t *testing.T) {
		from := base.Add(2 * time.Minute)
		lines, err := f.service.GetLedgerHistory(ctx, LedgerHistoryQuery{ItemCode: "C", WarehouseCode: "WA", From: &from})
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, "OUT", lines[0].MovementType)
		assert.Equal(t, "6", lines[0].RunningOnHand.String())
	})

	t.Run("to is inclusive", func(t *testing.T) {
		to := base.Add(time.Minute)
		lines, err := f.service.GetLedgerHistory(ctx, LedgerHistoryQuery{ItemCode: "C", To: &to})
		require.NoError(t, err)
		assert.Len(t, lines, 2)
	})

	t.Run("requires item or warehouse", func(t *testing.T) {
		_, err := f.service.GetLedgerHistory(ctx, LedgerHistoryQuery{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		from, to := base.Add(time.Hour), base
		_, err := f.service.GetLedgerHistory(ctx, LedgerHistoryQuery{ItemCode: "C", From: &from, To: &to})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestLedgerService_Consistency(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent key", func(t *testing.T) {
		f := newLedgerFixture(t)
		testutil.SeedStock(t, f.store, "C", "WA", "10")
		report, err := f.service.VerifyConsistency(ctx, "C", "WA")
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.False(t, report.Quarantined)
		assert.Equal(t, 1, report.Entries)
	})

	t.Run("mismatch quarantines the key until repaired", func(t *testing.T) {
		f := newLedgerFixture(t)
		testutil.SeedStock(t, f.store, "C", "WA", "10")
		corrupt, _ := f.store.Balance("C", "WA")
		corrupt.OnHand = testutil.Dec("11")
		f.store.PutBalance(corrupt)

		report, err := f.service.VerifyConsistency(ctx, "C", "WA")
		require.NoError(t, err)
		assert.False(t, report.Consistent)
		assert.True(t, report.Quarantined)
		assert.Equal(t, "11", report.StoredOnHand.String())
		assert.Equal(t, "10", report.ReplayedOnHand.String())

		_, err = f.service.GetBalance(ctx, "C", "WA")
		assert.ErrorIs(t, err, shared.ErrLedgerInconsistent)

		_, err = f.service.PostInbound(ctx, testutil.TestActor, postReq("C", "WA", "1", "PO-9"))
		assert.ErrorIs(t, err, shared.ErrLedgerInconsistent)

		_, err = f.service.ReleaseQuarantine(ctx, testutil.TestActor, "C", "WA")
		assert.ErrorIs(t, err, shared.ErrLedgerInconsistent)

		fixed, _ := f.store.Balance("C", "WA")
		fixed.OnHand = testutil.Dec("10")
		f.store.PutBalance(fixed)

		released, err := f.service.ReleaseQuarantine(ctx, testutil.TestActor, "C", "WA")
		require.NoError(t, err)
		assert.False(t, released.Quarantined)

		_, err = f.service.PostInbound(ctx, testutil.TestActor, postReq("C", "WA", "1", "PO-9"))
		require.NoError(t, err)
		testutil.AssertLedgerConsistent(t, f.store)
	})

	t.Run("verify on read", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.service.SetVerifyOnRead(true)
		testutil.SeedStock(t, f.store, "C", "WA", "10")

		_, err := f.service.GetBalance(ctx, "C", "WA")
		require.NoError(t, err)

		corrupt, _ := f.store.Balance("C", "WA")
		corrupt.Allocated = testutil.Dec("2")
		f.store.PutBalance(corrupt)

		_, err = f.service.GetBalance(ctx, "C", "WA")
		assert.ErrorIs(t, err, shared.ErrLedgerInconsistent)
		stored, _ := f.store.Balance("C", "WA")
		assert.True(t, stored.Quarantined)
	})
}
