package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/partner"
	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestActor is the actor most tests run as
var TestActor = shared.Actor{ID: "u-100", Name: "Line Planner"}

// Dec parses a decimal literal and panics on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedItem stores an item
func SeedItem(t *testing.T, s *Store, code string, category catalog.ItemCategory) {
	t.Helper()
	item, err := catalog.NewItem(code, code+" name", category, "ea")
	require.NoError(t, err)
	require.NoError(t, s.Items().Save(context.Background(), item))
}

// SeedWarehouse stores an active warehouse
func SeedWarehouse(t *testing.T, s *Store, code string) {
	t.Helper()
	wh, err := partner.NewWarehouse(code, code+" warehouse", partner.WarehouseTypeGeneral)
	require.NoError(t, err)
	require.NoError(t, s.Warehouses().Save(context.Background(), wh))
}

// SeedBOM stores one BOM line
func SeedBOM(t *testing.T, s *Store, parent, component string, seq int, qtyPer string) {
	t.Helper()
	line, err := catalog.NewBOMLine(parent, component, seq, Dec(qtyPer))
	require.NoError(t, err)
	require.NoError(t, s.BOMs().Save(context.Background(), line))
}

// SeedStock books opening stock through an IN entry so the ledger and the
// balance agree from the start
func SeedStock(t *testing.T, s *Store, item, warehouse, qty string) {
	t.Helper()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	err := s.Atomically(func() error {
		b, err := s.Balances().FindByKey(context.Background(), item, warehouse)
		isNew := err != nil
		if isNew {
			b = inventory.NewStockBalance(item, warehouse)
		}
		m := inventory.Movement{
			Type:          inventory.MovementIn,
			ItemCode:      item,
			WarehouseCode: warehouse,
			Quantity:      Dec(qty),
			Reference:     inventory.Reference{Table: inventory.RefAdjustment, No: "OPENING"},
			Remark:        "opening stock",
			Actor:         shared.SystemActor,
		}
		d, err := b.Apply(m, now)
		if err != nil {
			return err
		}
		if isNew {
			err = s.Balances().Create(context.Background(), b)
		} else {
			err = s.Balances().SaveWithLock(context.Background(), b)
		}
		if err != nil {
			return err
		}
		return s.Ledger().Append(context.Background(), inventory.NewLedgerEntry(m, d, b, now))
	})
	require.NoError(t, err)
}

// AssertBalance checks the stored on-hand and allocated of a key
func AssertBalance(t *testing.T, s *Store, item, warehouse, onHand, allocated string) {
	t.Helper()
	b, ok := s.Balance(item, warehouse)
	require.True(t, ok, "no balance for %s/%s", item, warehouse)
	assert.True(t, b.OnHand.Equal(Dec(onHand)), "%s/%s on-hand: got %s want %s", item, warehouse, b.OnHand, onHand)
	assert.True(t, b.Allocated.Equal(Dec(allocated)), "%s/%s allocated: got %s want %s", item, warehouse, b.Allocated, allocated)
}

// AssertLedgerConsistent checks that every balance satisfies
// 0 <= allocated <= on-hand and equals the replay of its ledger
func AssertLedgerConsistent(t *testing.T, s *Store) {
	t.Helper()
	entries := s.LedgerEntries()
	totals := inventory.Replay(entries)
	for _, b := range s.AllBalances() {
		assert.False(t, b.Allocated.IsNegative(), "%s/%s allocated negative", b.ItemCode, b.WarehouseCode)
		assert.True(t, b.Allocated.LessThanOrEqual(b.OnHand), "%s/%s allocated above on-hand", b.ItemCode, b.WarehouseCode)
		assert.True(t, b.Matches(totals[b.Key()]), "%s/%s does not match its ledger", b.ItemCode, b.WarehouseCode)
		delete(totals, b.Key())
	}
	for key, tot := range totals {
		assert.True(t, tot.OnHand.IsZero() && tot.Allocated.IsZero(), "ledger has entries for %v without a balance row", key)
	}
}
