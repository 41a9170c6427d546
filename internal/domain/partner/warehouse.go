package partner

import (
	"strings"
	"time"

	"github.com/erp/production/internal/domain/shared"
)

// WarehouseStatus represents the status of a warehouse
type WarehouseStatus string

const (
	WarehouseStatusActive   WarehouseStatus = "active"
	WarehouseStatusInactive WarehouseStatus = "inactive"
)

// WarehouseType represents the type of warehouse
type WarehouseType string

const (
	WarehouseTypeMaterial WarehouseType = "material" // Component/raw material store
	WarehouseTypeProduct  WarehouseType = "product"  // Finished goods store
	WarehouseTypeGeneral  WarehouseType = "general"
)

// Warehouse is a row of the warehouse master. The production engine only
// checks that a code exists and is usable.
type Warehouse struct {
	Code      string          `gorm:"type:varchar(50);primaryKey"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Type      WarehouseType   `gorm:"type:varchar(20);not null;default:'general'"`
	Status    WarehouseStatus `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a new warehouse with required fields
func NewWarehouse(code, name string, warehouseType WarehouseType) (*Warehouse, error) {
	if err := validateWarehouseCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Warehouse name cannot be empty")
	}
	switch warehouseType {
	case WarehouseTypeMaterial, WarehouseTypeProduct, WarehouseTypeGeneral:
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid warehouse type").WithDetail("type", warehouseType)
	}

	now := time.Now()
	return &Warehouse{
		Code:      strings.TrimSpace(code),
		Name:      name,
		Type:      warehouseType,
		Status:    WarehouseStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive returns true if the warehouse accepts stock movements
func (w *Warehouse) IsActive() bool {
	return w.Status == WarehouseStatusActive
}

// Deactivate stops the warehouse from accepting new movements
func (w *Warehouse) Deactivate() {
	w.Status = WarehouseStatusInactive
	w.UpdatedAt = time.Now()
}

func validateWarehouseCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse code cannot exceed 50 characters")
	}
	return nil
}
