package inventory

import (
	"sort"
	"strings"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TakeLine is one (warehouse, quantity) slice of an allocation
type TakeLine struct {
	WarehouseCode string          `json:"warehouse_code"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// PlanLine is an operator-supplied take for one component
type PlanLine struct {
	ItemCode      string
	WarehouseCode string
	Quantity      decimal.Decimal
}

// AllocationRequest is the input to an allocation strategy. Balances are the
// component's balance rows as read under lock.
type AllocationRequest struct {
	ItemCode string
	Required decimal.Decimal
	Balances []StockBalance
	Plan     []TakeLine
}

// AllocationStrategy produces take-lines for one component
type AllocationStrategy interface {
	Name() string
	Allocate(req AllocationRequest) ([]TakeLine, error)
}

// GreedyAllocation takes from the warehouse with the most available stock
// first, breaking ties by warehouse code. It never returns a partial result.
type GreedyAllocation struct{}

// Name returns the strategy name
func (GreedyAllocation) Name() string { return "greedy" }

// Allocate implements AllocationStrategy
func (GreedyAllocation) Allocate(req AllocationRequest) ([]TakeLine, error) {
	if !req.Required.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Required quantity must be positive").
			WithDetail("item", req.ItemCode)
	}

	candidates := make([]TakeLine, 0, len(req.Balances))
	total := decimal.Zero
	for i := range req.Balances {
		b := &req.Balances[i]
		if b.ItemCode != req.ItemCode || b.Quarantined {
			continue
		}
		avail := b.Available()
		if !avail.IsPositive() {
			continue
		}
		candidates = append(candidates, TakeLine{WarehouseCode: b.WarehouseCode, Quantity: avail})
		total = total.Add(avail)
	}

	if total.LessThan(req.Required) {
		return nil, shared.ErrInsufficientStock.
			WithDetail("item", req.ItemCode).
			WithDetail("required", req.Required).
			WithDetail("available", total).
			WithDetail("shortfall", req.Required.Sub(total))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].Quantity.Equal(candidates[j].Quantity) {
			return candidates[i].Quantity.GreaterThan(candidates[j].Quantity)
		}
		return candidates[i].WarehouseCode < candidates[j].WarehouseCode
	})

	remaining := req.Required
	lines := make([]TakeLine, 0, len(candidates))
	for _, c := range candidates {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(c.Quantity, remaining)
		lines = append(lines, TakeLine{WarehouseCode: c.WarehouseCode, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return lines, nil
}

// ManualAllocation validates an operator plan: the lines must add up to the
// requirement exactly and no warehouse may be asked for more than it has
// available. Lines naming the same warehouse are merged.
type ManualAllocation struct{}

// Name returns the strategy name
func (ManualAllocation) Name() string { return "manual" }

// Allocate implements AllocationStrategy
func (ManualAllocation) Allocate(req AllocationRequest) ([]TakeLine, error) {
	if !req.Required.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Required quantity must be positive").
			WithDetail("item", req.ItemCode)
	}

	merged := make([]TakeLine, 0, len(req.Plan))
	index := make(map[string]int, len(req.Plan))
	planned := decimal.Zero
	for _, p := range req.Plan {
		wh := strings.TrimSpace(p.WarehouseCode)
		if wh == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Plan line is missing a warehouse").
				WithDetail("item", req.ItemCode)
		}
		if !p.Quantity.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Plan quantity must be positive").
				WithDetail("item", req.ItemCode).
				WithDetail("warehouse", wh)
		}
		if err := shared.CheckQuantityScale("plan_quantity", p.Quantity); err != nil {
			return nil, err
		}
		planned = planned.Add(p.Quantity)
		if i, ok := index[wh]; ok {
			merged[i].Quantity = merged[i].Quantity.Add(p.Quantity)
			continue
		}
		index[wh] = len(merged)
		merged = append(merged, TakeLine{WarehouseCode: wh, Quantity: p.Quantity})
	}

	if !planned.Equal(req.Required) {
		return nil, shared.ErrAllocationMismatch.
			WithDetail("item", req.ItemCode).
			WithDetail("required", req.Required).
			WithDetail("planned", planned)
	}

	balances := make(map[string]*StockBalance, len(req.Balances))
	for i := range req.Balances {
		if req.Balances[i].ItemCode == req.ItemCode {
			balances[req.Balances[i].WarehouseCode] = &req.Balances[i]
		}
	}
	for _, line := range merged {
		available := decimal.Zero
		if b, ok := balances[line.WarehouseCode]; ok {
			if b.Quarantined {
				return nil, shared.ErrLedgerInconsistent.
					WithDetail("item", req.ItemCode).
					WithDetail("warehouse", line.WarehouseCode)
			}
			available = b.Available()
		}
		if line.Quantity.GreaterThan(available) {
			return nil, shared.ErrInsufficientStock.
				WithDetail("item", req.ItemCode).
				WithDetail("warehouse", line.WarehouseCode).
				WithDetail("requested", line.Quantity).
				WithDetail("available", available)
		}
	}
	return merged, nil
}

// AllocationEngine picks the manual strategy when a plan is supplied and the
// greedy strategy otherwise. Both return the same take-line shape.
type AllocationEngine struct {
	auto   AllocationStrategy
	manual AllocationStrategy
}

// NewAllocationEngine creates an engine with the default strategies
func NewAllocationEngine() *AllocationEngine {
	return &AllocationEngine{auto: GreedyAllocation{}, manual: ManualAllocation{}}
}

// Allocate produces take-lines for one component
func (e *AllocationEngine) Allocate(itemCode string, required decimal.Decimal, balances []StockBalance, plan []TakeLine) ([]TakeLine, error) {
	req := AllocationRequest{ItemCode: itemCode, Required: required, Balances: balances, Plan: plan}
	if len(plan) > 0 {
		return e.manual.Allocate(req)
	}
	return e.auto.Allocate(req)
}

// GroupPlan splits a multi-component plan into per-component take-lines
func GroupPlan(plan []PlanLine) (map[string][]TakeLine, error) {
	grouped := make(map[string][]TakeLine)
	for _, p := range plan {
		item := strings.TrimSpace(p.ItemCode)
		if item == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Plan line is missing an item code")
		}
		grouped[item] = append(grouped[item], TakeLine{WarehouseCode: p.WarehouseCode, Quantity: p.Quantity})
	}
	return grouped, nil
}
