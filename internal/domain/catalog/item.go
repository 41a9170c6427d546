package catalog

import (
	"strings"
	"time"

	"github.com/erp/production/internal/domain/shared"
)

// ItemCategory distinguishes purchased components from manufactured products
type ItemCategory string

const (
	ItemCategoryComponent ItemCategory = "component"
	ItemCategoryProduct   ItemCategory = "product"
)

// IsValid returns true if the category is known
func (c ItemCategory) IsValid() bool {
	switch c {
	case ItemCategoryComponent, ItemCategoryProduct:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category
func (c ItemCategory) String() string {
	return string(c)
}

// Item is a row of the item master. The production engine only reads it.
type Item struct {
	Code      string       `gorm:"type:varchar(50);primaryKey"`
	Name      string       `gorm:"type:varchar(200);not null"`
	Category  ItemCategory `gorm:"type:varchar(20);not null;index"`
	Unit      string       `gorm:"type:varchar(20);not null;default:'ea'"`
	Spec      string       `gorm:"type:varchar(200)"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// NewItem creates a new item master row
func NewItem(code, name string, category ItemCategory, unit string) (*Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item name cannot be empty")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid item category").WithDetail("category", category)
	}
	if unit == "" {
		unit = "ea"
	}
	now := time.Now()
	return &Item{
		Code:      code,
		Name:      name,
		Category:  category,
		Unit:      unit,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsFinishedProduct reports whether the item can be the target of a production order
func (i *Item) IsFinishedProduct() bool {
	return i.Category == ItemCategoryProduct
}
