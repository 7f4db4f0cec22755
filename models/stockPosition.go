package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockPosition holds the running quantity and weighted-average cost for one
// (business, item, warehouse) triple. Exactly one row per triple, created
// lazily with zeros on first receipt.
type StockPosition struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null;uniqueIndex:idx_stock_position" json:"business_id"`
	CatalogItemId  int             `gorm:"index;not null;uniqueIndex:idx_stock_position" json:"catalog_item_id"`
	WarehouseId    int             `gorm:"index;not null;uniqueIndex:idx_stock_position" json:"warehouse_id"`
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_on_hand"`
	AverageCost    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"average_cost"`
	LastCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"last_cost"`
	LastMovementAt *time.Time      `json:"last_movement_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FirstOrCreateStockPosition locks-or-creates the position row for the
// triple. The row lock is held until the caller's transaction commits, so
// concurrent receipts against the same item/warehouse serialize here.
func FirstOrCreateStockPosition(tx *gorm.DB, businessId string, catalogItemId int, warehouseId int) (*StockPosition, bool, error) {
	isNew := false
	position := StockPosition{
		BusinessId:    businessId,
		CatalogItemId: catalogItemId,
		WarehouseId:   warehouseId,
	}
	// FirstOrCreate will try to find a record matching the conditions, and if it doesn't find one, it will create a new record
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND catalog_item_id = ? AND warehouse_id = ?",
			businessId, catalogItemId, warehouseId).
		FirstOrCreate(&position)
	if result.Error != nil {
		return nil, isNew, result.Error
	}
	if result.RowsAffected == 1 {
		isNew = true
	}
	return &position, isNew, nil
}

// ApplyReceipt blends a receipt into the position: weighted-average cost when
// a positive unit cost is given, quantity increment, movement stamp. Callers
// must hold the row lock from FirstOrCreateStockPosition.
func (p *StockPosition) ApplyReceipt(tx *gorm.DB, quantity decimal.Decimal, unitCost decimal.Decimal, movedAt time.Time) error {
	if unitCost.IsPositive() {
		denominator := p.QuantityOnHand.Add(quantity)
		if denominator.IsPositive() {
			p.AverageCost = WeightedAverageCost(p.QuantityOnHand, p.AverageCost, quantity, unitCost)
		} else {
			p.AverageCost = unitCost
		}
		p.LastCost = unitCost
	}
	p.QuantityOnHand = p.QuantityOnHand.Add(quantity)
	p.LastMovementAt = &movedAt

	return tx.Model(p).Updates(map[string]interface{}{
		"quantity_on_hand": p.QuantityOnHand,
		"average_cost":     p.AverageCost,
		"last_cost":        p.LastCost,
		"last_movement_at": p.LastMovementAt,
	}).Error
}

// WeightedAverageCost returns (curQty*curAvg + newQty*newCost) / (curQty+newQty).
// Callers must ensure the denominator is positive.
func WeightedAverageCost(currentQty, currentAvg, newQty, newCost decimal.Decimal) decimal.Decimal {
	total := currentQty.Mul(currentAvg).Add(newQty.Mul(newCost))
	return total.Div(currentQty.Add(newQty))
}
