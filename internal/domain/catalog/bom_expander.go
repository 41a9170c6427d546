package catalog

import (
	"context"
	"sort"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Requirements maps a component code to its net required quantity
type Requirements map[string]decimal.Decimal

// Components returns the component codes in ascending order
func (r Requirements) Components() []string {
	codes := make([]string, 0, len(r))
	for code := range r {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Total returns the sum of all requirements
func (r Requirements) Total() decimal.Decimal {
	total := decimal.Zero
	for _, qty := range r {
		total = total.Add(qty)
	}
	return total
}

// ExpandLines multiplies each BOM line by plannedQty and merges lines that
// share a component. Components whose net requirement is zero are dropped.
// Requirements are rounded up to the stored quantity scale.
func ExpandLines(lines []BOMLine, plannedQty decimal.Decimal) (Requirements, error) {
	if !plannedQty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Planned quantity must be positive").
			WithDetail("planned_qty", plannedQty)
	}

	req := make(Requirements)
	for _, line := range lines {
		if line.QuantityPer.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM quantity cannot be negative").
				WithDetail("component", line.ComponentItemCode).
				WithDetail("sequence", line.Sequence)
		}
		current := req[line.ComponentItemCode]
		req[line.ComponentItemCode] = current.Add(line.QuantityPer.Mul(plannedQty))
	}

	for code, qty := range req {
		if qty.IsZero() {
			delete(req, code)
			continue
		}
		req[code] = qty.RoundCeil(shared.QuantityScale)
	}
	return req, nil
}

// BOMExpander turns a finished item and a planned quantity into component requirements
type BOMExpander struct {
	boms  BOMRepository
	items ItemRepository
}

// NewBOMExpander creates a new BOMExpander
func NewBOMExpander(boms BOMRepository, items ItemRepository) *BOMExpander {
	return &BOMExpander{boms: boms, items: items}
}

// Expand loads the finished item's BOM and computes the net requirement per
// component. Every referenced component must exist in the item master.
func (e *BOMExpander) Expand(ctx context.Context, finishedItemCode string, plannedQty decimal.Decimal) (Requirements, error) {
	if !plannedQty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Planned quantity must be positive").
			WithDetail("planned_qty", plannedQty)
	}

	lines, err := e.boms.FindByParent(ctx, finishedItemCode)
	if err != nil {
		return nil, err
	}

	req, err := ExpandLines(lines, plannedQty)
	if err != nil {
		return nil, err
	}
	if len(req) == 0 {
		return req, nil
	}

	codes := req.Components()
	found, err := e.items.FindByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(found))
	for _, item := range found {
		known[item.Code] = struct{}{}
	}
	for _, code := range codes {
		if _, ok := known[code]; !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, "BOM component does not exist").
				WithDetail("component", code).
				WithDetail("parent", finishedItemCode)
		}
	}
	return req, nil
}
