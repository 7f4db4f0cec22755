package workflow

import (
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReceiveInput is one matched line item ready to be put into stock.
type ReceiveInput struct {
	BusinessId          string
	ProcessedDocumentId int
	InvoiceItem         *models.InvoiceItem
	CatalogItem         *models.CatalogItem
	Warehouse           *models.Warehouse
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal
	Actor               string
	Day                 time.Time
}

// ReceiveLineItem posts one receipt: locks or creates the stock position,
// blends the weighted-average cost, appends the ledger entry, and marks the
// invoice item received. Runs entirely inside the caller's transaction; the
// caller decides whether a failure aborts the batch or only this line.
func ReceiveLineItem(tx *gorm.DB, logger *logrus.Logger, input ReceiveInput) (*models.LedgerEntry, error) {

	position, _, err := models.FirstOrCreateStockPosition(tx, input.BusinessId, input.CatalogItem.ID, input.Warehouse.ID)
	if err != nil {
		config.LogError(logger, "receiveWorkflow.go", "ReceiveLineItem", "FirstOrCreateStockPosition", input.CatalogItem.ItemNumber, err)
		return nil, err
	}

	movedAt := time.Now().UTC()
	if err := position.ApplyReceipt(tx, input.Quantity, input.UnitPrice, movedAt); err != nil {
		config.LogError(logger, "receiveWorkflow.go", "ReceiveLineItem", "ApplyReceipt", input.CatalogItem.ItemNumber, err)
		return nil, err
	}

	transactionNumber, err := models.NextTransactionNumber(tx, input.BusinessId, input.Day)
	if err != nil {
		config.LogError(logger, "receiveWorkflow.go", "ReceiveLineItem", "NextTransactionNumber", input.BusinessId, err)
		return nil, err
	}

	totalCost := decimal.Zero
	if input.UnitPrice.IsPositive() {
		totalCost = input.Quantity.Mul(input.UnitPrice)
	}
	entry := models.LedgerEntry{
		BusinessId:          input.BusinessId,
		TransactionNumber:   transactionNumber,
		EntryType:           models.LedgerEntryReceipt,
		CatalogItemId:       input.CatalogItem.ID,
		WarehouseId:         input.Warehouse.ID,
		Quantity:            input.Quantity,
		UnitCost:            input.UnitPrice,
		TotalCost:           totalCost,
		BalanceAfter:        position.QuantityOnHand,
		ProcessedDocumentId: &input.ProcessedDocumentId,
		CreatedBy:           input.Actor,
	}
	if err := tx.Create(&entry).Error; err != nil {
		config.LogError(logger, "receiveWorkflow.go", "ReceiveLineItem", "create ledger entry", transactionNumber, err)
		return nil, err
	}

	input.InvoiceItem.Status = models.ReceiptStatusReceived
	input.InvoiceItem.QuantityReceived = input.Quantity
	input.InvoiceItem.ReceivedWarehouseId = &input.Warehouse.ID
	input.InvoiceItem.ReceivedBy = input.Actor
	input.InvoiceItem.ReceivedAt = &movedAt
	if err := tx.Model(input.InvoiceItem).Updates(map[string]interface{}{
		"status":                input.InvoiceItem.Status,
		"quantity_received":     input.InvoiceItem.QuantityReceived,
		"received_warehouse_id": input.InvoiceItem.ReceivedWarehouseId,
		"received_by":           input.InvoiceItem.ReceivedBy,
		"received_at":           input.InvoiceItem.ReceivedAt,
	}).Error; err != nil {
		config.LogError(logger, "receiveWorkflow.go", "ReceiveLineItem", "mark invoice item received", input.InvoiceItem.ID, err)
		return nil, err
	}

	return &entry, nil
}
