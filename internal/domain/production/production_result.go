package production

import (
	"strings"
	"time"

	"github.com/erp/production/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductionResult is one reported output line of an order. Sequence numbers
// start at 1 per order and grow by one with each report.
type ProductionResult struct {
	OrderNo       string          `gorm:"type:varchar(30);primaryKey"`
	Seq           int             `gorm:"primaryKey"`
	ResultDate    time.Time       `gorm:"type:date;not null"`
	WarehouseCode string          `gorm:"type:varchar(50);not null"`
	GoodQty       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BadQty        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BadReasonCode string          `gorm:"type:varchar(20)"`
	Remark        string          `gorm:"type:varchar(500)"`
	CreatedBy     string          `gorm:"type:varchar(50);not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductionResult) TableName() string {
	return "production_results"
}

// ResultInput carries the operator-reported figures for a result line
type ResultInput struct {
	ResultDate    time.Time
	WarehouseCode string
	GoodQty       decimal.Decimal
	BadQty        decimal.Decimal
	BadReasonCode string
	Remark        string
}

// NewProductionResult validates the input and builds result line seq
func NewProductionResult(orderNo string, seq int, in ResultInput, actor shared.Actor, now time.Time) (*ProductionResult, error) {
	if seq < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Result sequence must start at 1")
	}
	if strings.TrimSpace(in.WarehouseCode) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Result warehouse is required")
	}
	if in.GoodQty.IsNegative() || in.BadQty.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Result quantities cannot be negative").
			WithDetail("good_qty", in.GoodQty).
			WithDetail("bad_qty", in.BadQty)
	}
	if err := shared.CheckQuantityScale("good_qty", in.GoodQty); err != nil {
		return nil, err
	}
	if err := shared.CheckQuantityScale("bad_qty", in.BadQty); err != nil {
		return nil, err
	}
	if in.GoodQty.IsZero() && in.BadQty.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Result must report a good or bad quantity")
	}

	date := in.ResultDate
	if date.IsZero() {
		date = now
	}
	return &ProductionResult{
		OrderNo:       orderNo,
		Seq:           seq,
		ResultDate:    truncateToDate(date),
		WarehouseCode: strings.TrimSpace(in.WarehouseCode),
		GoodQty:       in.GoodQty,
		BadQty:        in.BadQty,
		BadReasonCode: in.BadReasonCode,
		Remark:        in.Remark,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
	}, nil
}
