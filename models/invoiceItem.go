package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceItem is the persisted record of one extracted line item: the match
// outcome against the catalog plus the receipt audit trail.
type InvoiceItem struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	BusinessId          string          `gorm:"index;not null" json:"business_id"`
	ProcessedDocumentId int             `gorm:"index;not null" json:"processed_document_id"`
	LineNumber          int             `gorm:"not null" json:"line_number"`
	Description         string          `gorm:"size:255" json:"description"`
	ItemCode            string          `gorm:"size:50" json:"item_code"`
	Quantity            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Unit                string          `gorm:"size:20" json:"unit"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CatalogItemId       *int            `gorm:"index" json:"catalog_item_id"`
	MatchMethod         ItemMatchMethod `gorm:"size:30" json:"match_method"`
	MatchConfidence     float64         `gorm:"default:0" json:"match_confidence"`
	Status              ReceiptStatus   `gorm:"type:enum('pending','received');default:'pending'" json:"status"`
	QuantityReceived    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_received"`
	ReceivedWarehouseId *int            `gorm:"index" json:"received_warehouse_id"`
	ReceivedBy          string          `gorm:"size:100" json:"received_by"`
	ReceivedAt          *time.Time      `json:"received_at"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
