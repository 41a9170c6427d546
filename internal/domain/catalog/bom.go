package catalog

import (
	"strings"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BOMLine is one line of a bill of materials: how much of a component one
// unit of the parent consumes. A parent may list the same component on
// several lines (different processes); requirements are summed.
type BOMLine struct {
	ParentItemCode    string          `gorm:"type:varchar(50);primaryKey"`
	ComponentItemCode string          `gorm:"type:varchar(50);primaryKey;index"`
	Sequence          int             `gorm:"primaryKey"`
	QuantityPer       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LossRate          decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"` // informational, not applied to requirements
	ProcessCode       string          `gorm:"type:varchar(20)"`
	Remark            string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BOMLine) TableName() string {
	return "bom_lines"
}

// NewBOMLine creates a validated BOM line
func NewBOMLine(parent, component string, seq int, quantityPer decimal.Decimal) (*BOMLine, error) {
	parent = strings.TrimSpace(parent)
	component = strings.TrimSpace(component)
	if parent == "" || component == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM parent and component codes are required")
	}
	if parent == component {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "An item cannot be its own component").WithDetail("item", parent)
	}
	if seq < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM sequence must start at 1")
	}
	if quantityPer.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM quantity cannot be negative").WithDetail("component", component)
	}
	if err := shared.CheckQuantityScale("quantity_per", quantityPer); err != nil {
		return nil, err
	}
	return &BOMLine{
		ParentItemCode:    parent,
		ComponentItemCode: component,
		Sequence:          seq,
		QuantityPer:       quantityPer,
		LossRate:          decimal.Zero,
	}, nil
}

// WithProcess sets the process code and loss rate
func (l *BOMLine) WithProcess(processCode string, lossRate decimal.Decimal) *BOMLine {
	l.ProcessCode = processCode
	l.LossRate = lossRate
	return l
}
