package models

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerEntry is one append-only stock movement. Never mutated after
// creation; only the source-document back-reference may later be cleared to
// preserve the audit trail when the document is deleted or reprocessed.
type LedgerEntry struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	BusinessId          string          `gorm:"index;not null" json:"business_id"`
	TransactionNumber   string          `gorm:"size:20;index;not null" json:"transaction_number"`
	EntryType           LedgerEntryType `gorm:"type:enum('RECEIPT','ADJUSTMENT');default:'RECEIPT'" json:"entry_type"`
	CatalogItemId       int             `gorm:"index;not null" json:"catalog_item_id"`
	WarehouseId         int             `gorm:"index;not null" json:"warehouse_id"`
	Quantity            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitCost            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	TotalCost           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	BalanceAfter        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_after"`
	ProcessedDocumentId *int            `gorm:"index" json:"processed_document_id"`
	CreatedBy           string          `gorm:"size:100" json:"created_by"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

const transactionNumberPrefix = "TXN"

// FormatTransactionNumber renders TXN-YYYYMMDD-NNNN.
func FormatTransactionNumber(day time.Time, sequence int) string {
	return fmt.Sprintf("%s-%s-%04d", transactionNumberPrefix, day.Format("20060102"), sequence)
}

// ParseTransactionSequence extracts the numeric suffix of a transaction
// number. Returns an error for anything that does not look like TXN-date-seq.
func ParseTransactionSequence(transactionNumber string) (int, error) {
	parts := strings.Split(transactionNumber, "-")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed transaction number %q", transactionNumber)
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("malformed transaction number %q: %w", transactionNumber, err)
	}
	return seq, nil
}

// NextTransactionNumber hands out the next TXN-YYYYMMDD-NNNN for the tenant
// and day. The day's current maximum is read under a row lock so concurrent
// receipts in the same transaction-day partition cannot collide. A suffix
// that fails to parse restarts the day's sequence at 0001 rather than
// failing the receipt.
func NextTransactionNumber(tx *gorm.DB, businessId string, day time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", transactionNumberPrefix, day.Format("20060102"))

	var current sql.NullString
	err := tx.Model(&LedgerEntry{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		Where("transaction_number LIKE ?", prefix+"%").
		Select("MAX(transaction_number)").
		Scan(&current).Error
	if err != nil {
		return "", err
	}

	sequence := 1
	if current.Valid && current.String != "" {
		if last, perr := ParseTransactionSequence(current.String); perr == nil {
			sequence = last + 1
		}
		// parse failure: restart at 0001 for the day
	}
	return FormatTransactionNumber(day, sequence), nil
}

// DetachLedgerFromDocument clears the back-reference on all ledger entries of
// a deleted or reprocessed document. The movements themselves stay on the
// ledger; stock history is never rewritten.
func DetachLedgerFromDocument(tx *gorm.DB, businessId string, processedDocumentId int) (int64, error) {
	result := tx.Model(&LedgerEntry{}).
		Where("business_id = ?", businessId).
		Where("processed_document_id = ?", processedDocumentId).
		Update("processed_document_id", nil)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
