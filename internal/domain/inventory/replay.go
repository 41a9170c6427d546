package inventory

import (
	"sort"
	"time"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BalanceKey identifies one item in one warehouse
type BalanceKey struct {
	ItemCode      string
	WarehouseCode string
}

// Totals are the on-hand and allocated sums produced by replaying a ledger
type Totals struct {
	OnHand    decimal.Decimal
	Allocated decimal.Decimal
}

// LedgerLine is a ledger entry with the running balance of its key after it
type LedgerLine struct {
	LedgerEntry
	RunningOnHand    decimal.Decimal `json:"running_on_hand"`
	RunningAllocated decimal.Decimal `json:"running_allocated"`
}

// SortEntries orders entries by timestamp, then id
func SortEntries(entries []LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Before(&entries[j])
	})
}

// Replay sums deltas per key
func Replay(entries []LedgerEntry) map[BalanceKey]Totals {
	out := make(map[BalanceKey]Totals)
	for i := range entries {
		k := entries[i].Key()
		t := out[k]
		t.OnHand = t.OnHand.Add(entries[i].QuantityDelta)
		t.Allocated = t.Allocated.Add(entries[i].AllocationDelta)
		out[k] = t
	}
	return out
}

// VerifyBalance replays the entries of balance's key and fails with
// LEDGER_INCONSISTENT when the sums differ from the stored quantities.
// A balance row with no entries must be zero.
func VerifyBalance(balance *StockBalance, entries []LedgerEntry) error {
	totals := Replay(entries)[balance.Key()]
	if balance.Matches(totals) {
		return nil
	}
	return shared.ErrLedgerInconsistent.
		WithDetail("item", balance.ItemCode).
		WithDetail("warehouse", balance.WarehouseCode).
		WithDetail("stored_on_hand", balance.OnHand).
		WithDetail("stored_allocated", balance.Allocated).
		WithDetail("replayed_on_hand", totals.OnHand).
		WithDetail("replayed_allocated", totals.Allocated)
}

// RunningBalances sorts entries and annotates each with its key's running
// balance. Entries before from still contribute to the opening balance but
// are not returned.
func RunningBalances(entries []LedgerEntry, from *time.Time) []LedgerLine {
	SortEntries(entries)
	running := make(map[BalanceKey]Totals)
	lines := make([]LedgerLine, 0, len(entries))
	for _, e := range entries {
		k := e.Key()
		t := running[k]
		t.OnHand = t.OnHand.Add(e.QuantityDelta)
		t.Allocated = t.Allocated.Add(e.AllocationDelta)
		running[k] = t

		if from != nil && e.OccurredAt.Before(*from) {
			continue
		}
		lines = append(lines, LedgerLine{
			LedgerEntry:      e,
			RunningOnHand:    t.OnHand,
			RunningAllocated: t.Allocated,
		})
	}
	return lines
}
