// Package testutil provides common test utilities: an in-memory store
// implementing every repository, event recorders and HTTP helpers.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/erp/production/internal/domain/catalog"
	"github.com/erp/production/internal/domain/inventory"
	"github.com/erp/production/internal/domain/partner"
	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
)

type memData struct {
	items      map[string]catalog.Item
	boms       map[string][]catalog.BOMLine
	warehouses map[string]partner.Warehouse
	balances   map[inventory.BalanceKey]inventory.StockBalance
	ledger     []inventory.LedgerEntry
	orders     map[string]production.ProductionOrder
	results    map[string][]production.ProductionResult
}

func (d *memData) clone() *memData {
	c := &memData{
		items:      make(map[string]catalog.Item, len(d.items)),
		boms:       make(map[string][]catalog.BOMLine, len(d.boms)),
		warehouses: make(map[string]partner.Warehouse, len(d.warehouses)),
		balances:   make(map[inventory.BalanceKey]inventory.StockBalance, len(d.balances)),
		ledger:     append([]inventory.LedgerEntry(nil), d.ledger...),
		orders:     make(map[string]production.ProductionOrder, len(d.orders)),
		results:    make(map[string][]production.ProductionResult, len(d.results)),
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.boms {
		c.boms[k] = append([]catalog.BOMLine(nil), v...)
	}
	for k, v := range d.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range d.balances {
		c.balances[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.results {
		c.results[k] = append([]production.ProductionResult(nil), v...)
	}
	return c
}

// Store is an in-memory database. Atomically serializes units of work and
// restores the previous state when one fails, which gives repository users
// the same all-or-nothing behaviour as a real transaction.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *memData
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: (&memData{}).clone()}
}

// Atomically runs fn as one unit of work
func (s *Store) Atomically(fn func() error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Items returns the item repository
func (s *Store) Items() catalog.ItemRepository { return itemRepo{s} }

// BOMs returns the BOM repository
func (s *Store) BOMs() catalog.BOMRepository { return bomRepo{s} }

// Warehouses returns the warehouse repository
func (s *Store) Warehouses() partner.WarehouseRepository { return warehouseRepo{s} }

// Balances returns the balance repository
func (s *Store) Balances() inventory.StockBalanceRepository { return balanceRepo{s} }

// Ledger returns the ledger repository
func (s *Store) Ledger() inventory.LedgerRepository { return ledgerRepo{s} }

// Orders returns the production order repository
func (s *Store) Orders() production.ProductionOrderRepository { return orderRepo{s} }

// Results returns the production result repository
func (s *Store) Results() production.ProductionResultRepository { return resultRepo{s} }

// PutBalance overwrites a balance row without touching the ledger. Tests use
// it to seed stock or to simulate a corrupted balance.
func (s *Store) PutBalance(b inventory.StockBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.MarkPersisted()
	s.data.balances[b.Key()] = b
}

// Balance returns the stored balance row and whether it exists
func (s *Store) Balance(itemCode, warehouseCode string) (inventory.StockBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data.balances[inventory.BalanceKey{ItemCode: itemCode, WarehouseCode: warehouseCode}]
	return b, ok
}

// LedgerEntries returns a copy of every ledger entry in ledger order
func (s *Store) LedgerEntries() []inventory.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]inventory.LedgerEntry(nil), s.data.ledger...)
	inventory.SortEntries(out)
	return out
}

// AllBalances returns every balance row
func (s *Store) AllBalances() []inventory.StockBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.StockBalance, 0, len(s.data.balances))
	for _, b := range s.data.balances {
		out = append(out, b)
	}
	return out
}

// ==================== catalog ====================

type itemRepo struct{ s *Store }

func (r itemRepo) FindByCode(_ context.Context, code string) (*catalog.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.data.items[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &item, nil
}

func (r itemRepo) FindByCodes(_ context.Context, codes []string) ([]catalog.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]catalog.Item, 0, len(codes))
	for _, c := range codes {
		if item, ok := r.s.data.items[c]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r itemRepo) Save(_ context.Context, item *catalog.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.items[item.Code] = *item
	return nil
}

type bomRepo struct{ s *Store }

func (r bomRepo) FindByParent(_ context.Context, parentCode string) ([]catalog.BOMLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lines := append([]catalog.BOMLine(nil), r.s.data.boms[parentCode]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].Sequence < lines[j].Sequence })
	return lines, nil
}

func (r bomRepo) Save(_ context.Context, line *catalog.BOMLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.data.boms[line.ParentItemCode]
	for i := range lines {
		if lines[i].ComponentItemCode == line.ComponentItemCode && lines[i].Sequence == line.Sequence {
			lines[i] = *line
			return nil
		}
	}
	r.s.data.boms[line.ParentItemCode] = append(lines, *line)
	return nil
}

// ==================== partner ====================

type warehouseRepo struct{ s *Store }

func (r warehouseRepo) FindByCode(_ context.Context, code string) (*partner.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wh, ok := r.s.data.warehouses[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &wh, nil
}

func (r warehouseRepo) FindByCodes(_ context.Context, codes []string) ([]partner.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]partner.Warehouse, 0, len(codes))
	for _, c := range codes {
		if wh, ok := r.s.data.warehouses[c]; ok {
			out = append(out, wh)
		}
	}
	return out, nil
}

func (r warehouseRepo) Save(_ context.Context, wh *partner.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.warehouses[wh.Code] = *wh
	return nil
}

// ==================== inventory ====================

type balanceRepo struct{ s *Store }

func (r balanceRepo) FindByKey(_ context.Context, itemCode, warehouseCode string) (*inventory.StockBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.data.balances[inventory.BalanceKey{ItemCode: itemCode, WarehouseCode: warehouseCode}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (r balanceRepo) FindByKeyForUpdate(ctx context.Context, itemCode, warehouseCode string) (*inventory.StockBalance, error) {
	return r.FindByKey(ctx, itemCode, warehouseCode)
}

func (r balanceRepo) FindByItem(_ context.Context, itemCode string) ([]inventory.StockBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]inventory.StockBalance, 0)
	for k, b := range r.s.data.balances {
		if k.ItemCode == itemCode {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseCode < out[j].WarehouseCode })
	return out, nil
}

func (r balanceRepo) FindByItemForUpdate(ctx context.Context, itemCode string) ([]inventory.StockBalance, error) {
	return r.FindByItem(ctx, itemCode)
}

func (r balanceRepo) Create(_ context.Context, b *inventory.StockBalance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.data.balances[b.Key()]; exists {
		return shared.ErrAlreadyExists
	}
	b.MarkPersisted()
	r.s.data.balances[b.Key()] = *b
	return nil
}

func (r balanceRepo) SaveWithLock(_ context.Context, b *inventory.StockBalance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.balances[b.Key()]
	if !ok || stored.Version != b.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	b.MarkPersisted()
	r.s.data.balances[b.Key()] = *b
	return nil
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Append(_ context.Context, entries ...*inventory.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range entries {
		r.s.data.ledger = append(r.s.data.ledger, *e)
	}
	return nil
}

func (r ledgerRepo) filter(keep func(e *inventory.LedgerEntry) bool) []inventory.LedgerEntry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]inventory.LedgerEntry, 0)
	for i := range r.s.data.ledger {
		if keep(&r.s.data.ledger[i]) {
			out = append(out, r.s.data.ledger[i])
		}
	}
	inventory.SortEntries(out)
	return out
}

func (r ledgerRepo) FindByKey(_ context.Context, itemCode, warehouseCode string) ([]inventory.LedgerEntry, error) {
	return r.filter(func(e *inventory.LedgerEntry) bool {
		return e.ItemCode == itemCode && e.WarehouseCode == warehouseCode
	}), nil
}

func (r ledgerRepo) FindByReference(_ context.Context, table inventory.RefTable, refNo string, types ...inventory.MovementType) ([]inventory.LedgerEntry, error) {
	return r.filter(func(e *inventory.LedgerEntry) bool {
		if e.RefTable != table || e.RefNo != refNo {
			return false
		}
		if len(types) == 0 {
			return true
		}
		for _, t := range types {
			if e.MovementType == t {
				return true
			}
		}
		return false
	}), nil
}

func (r ledgerRepo) ExistsByReference(ctx context.Context, table inventory.RefTable, refNo string, t inventory.MovementType) (bool, error) {
	entries, err := r.FindByReference(ctx, table, refNo, t)
	return len(entries) > 0, err
}

func (r ledgerRepo) FindHistory(_ context.Context, q inventory.LedgerQuery) ([]inventory.LedgerEntry, error) {
	return r.filter(func(e *inventory.LedgerEntry) bool {
		if q.ItemCode != "" && e.ItemCode != q.ItemCode {
			return false
		}
		if q.WarehouseCode != "" && e.WarehouseCode != q.WarehouseCode {
			return false
		}
		return q.To == nil || !e.OccurredAt.After(*q.To)
	}), nil
}

// ==================== production ====================

type orderRepo struct{ s *Store }

func (r orderRepo) FindByOrderNo(_ context.Context, orderNo string) (*production.ProductionOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.data.orders[orderNo]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &o, nil
}

func (r orderRepo) FindByOrderNoForUpdate(ctx context.Context, orderNo string) (*production.ProductionOrder, error) {
	return r.FindByOrderNo(ctx, orderNo)
}

func (r orderRepo) FindAll(_ context.Context, f production.OrderFilter) ([]production.ProductionOrder, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]production.ProductionOrder, 0, len(r.s.data.orders))
	for _, o := range r.s.data.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.TargetItemCode != "" && o.TargetItemCode != f.TargetItemCode {
			continue
		}
		if f.PlannedFrom != nil && o.PlannedDate.Before(*f.PlannedFrom) {
			continue
		}
		if f.PlannedTo != nil && o.PlannedDate.After(*f.PlannedTo) {
			continue
		}
		all = append(all, o)
	}
	desc := strings.EqualFold(f.OrderDir, "desc")
	sort.Slice(all, func(i, j int) bool {
		if desc {
			return all[i].OrderNo > all[j].OrderNo
		}
		return all[i].OrderNo < all[j].OrderNo
	})

	total := int64(len(all))
	start := f.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r orderRepo) Create(_ context.Context, o *production.ProductionOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.data.orders[o.OrderNo]; exists {
		return shared.ErrAlreadyExists
	}
	o.MarkPersisted()
	stored := *o
	stored.PullEvents()
	r.s.data.orders[o.OrderNo] = stored
	return nil
}

func (r orderRepo) SaveWithLock(_ context.Context, o *production.ProductionOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.orders[o.OrderNo]
	if !ok || stored.Version != o.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	o.MarkPersisted()
	copyOf := *o
	copyOf.PullEvents()
	r.s.data.orders[o.OrderNo] = copyOf
	return nil
}

type resultRepo struct{ s *Store }

func (r resultRepo) FindByOrderNo(_ context.Context, orderNo string) ([]production.ProductionResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]production.ProductionResult(nil), r.s.data.results[orderNo]...), nil
}

func (r resultRepo) MaxSeq(_ context.Context, orderNo string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	max := 0
	for _, res := range r.s.data.results[orderNo] {
		if res.Seq > max {
			max = res.Seq
		}
	}
	return max, nil
}

func (r resultRepo) Create(_ context.Context, res *production.ProductionResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.results[res.OrderNo] {
		if existing.Seq == res.Seq {
			return shared.ErrAlreadyExists
		}
	}
	r.s.data.results[res.OrderNo] = append(r.s.data.results[res.OrderNo], *res)
	return nil
}
