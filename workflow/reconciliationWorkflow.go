package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// reportErrorCap bounds the error list carried in the report; all errors are
// still counted in TotalErrors.
const reportErrorCap = 10

// ReconciliationReport summarizes one reconciliation run. JSON-serializable;
// stored on the processed document and returned to the caller.
type ReconciliationReport struct {
	DocumentId     int                      `json:"document_id"`
	InvoiceNumber  string                   `json:"invoice_number"`
	VendorId       *int                     `json:"vendor_id"`
	VendorMethod   models.VendorMatchMethod `json:"vendor_method"`
	WarehouseName  *string                  `json:"warehouse_name"`
	ItemsProcessed int                      `json:"items_processed"`
	ItemsMatched   int                      `json:"items_matched"`
	ItemsReceived  int                      `json:"items_received"`
	NeedsReview    []*ReviewItem            `json:"needs_review"`
	Warnings       []string                 `json:"warnings"`
	Errors         []string                 `json:"errors"`
	TotalErrors    int                      `json:"total_errors"`
	Validation     *models.ValidationResult `json:"validation"`
}

// ReviewItem is an unmatched line surfaced for manual linking, with the
// closest catalog candidates attached.
type ReviewItem struct {
	LineNumber  int               `json:"line_number"`
	Description string            `json:"description"`
	ItemCode    string            `json:"item_code"`
	Suggestions []*ItemSuggestion `json:"suggestions"`
}

// DuplicateDocumentError rejects a document whose invoice number already
// exists for the tenant. Carries the conflicting document so the caller can
// show the operator what it collided with.
type DuplicateDocumentError struct {
	ConflictingDocumentId int
	InvoiceNumber         string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("duplicate invoice %q already processed as document %d", e.InvoiceNumber, e.ConflictingDocumentId)
}

// ReconcileDocument drives one extracted invoice end to end: duplicate
// guard, arithmetic validation, vendor resolution, then per-line item
// matching and stock receipt. Everything runs in a single transaction; a
// per-line receipt failure is recorded and skipped, while a commit failure
// rolls the whole batch back and returns a zero-valued report.
func ReconcileDocument(ctx context.Context, businessId string, actor string, documentId int, doc *models.ExtractedDocument) (*ReconciliationReport, error) {
	logger := config.GetLogger()

	if err := utils.BusinessLock(ctx, businessId, "reconcile", "reconciliationWorkflow.go", "ReconcileDocument"); err != nil {
		return nil, err
	}

	db := config.GetDB()

	postingLock, err := AcquireBusinessPostingLock(ctx, db, businessId)
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "ReconcileDocument", "posting lock", businessId, err)
		return nil, err
	}
	defer postingLock.Release()

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	normalized := models.NormalizeInvoiceNumber(doc.DocumentInfo.InvoiceNumber)
	supplierName := doc.Supplier.CompanyName

	if !config.SkipDuplicateCheck() {
		duplicate, err := models.FindDuplicateDocument(tx, businessId, normalized, supplierName, documentId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if duplicate != nil {
			tx.Rollback()
			markDocumentStatus(ctx, businessId, documentId, models.DocumentStatusDuplicate)
			return nil, &DuplicateDocumentError{
				ConflictingDocumentId: duplicate.ID,
				InvoiceNumber:         doc.DocumentInfo.InvoiceNumber,
			}
		}
	}

	if documentId > 0 {
		var posted int64
		if err := tx.Model(&models.LedgerEntry{}).
			Where("business_id = ?", businessId).
			Where("processed_document_id = ?", documentId).
			Count(&posted).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if posted > 0 {
			if config.StrictLedgerImmutability() {
				tx.Rollback()
				return nil, fmt.Errorf("document %d already posted %d ledger entries; reprocessing is disabled", documentId, posted)
			}
			// reprocessing: keep the old movements on the ledger but cut
			// their back-reference so the audit trail stays truthful
			if _, err := models.DetachLedgerFromDocument(tx, businessId, documentId); err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := tx.Where("business_id = ?", businessId).
				Where("processed_document_id = ?", documentId).
				Delete(&models.InvoiceItem{}).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	ApplyValidation(doc)

	report := &ReconciliationReport{
		DocumentId:    documentId,
		InvoiceNumber: doc.DocumentInfo.InvoiceNumber,
		VendorMethod:  models.VendorMatchNone,
		NeedsReview:   []*ReviewItem{},
		Warnings:      []string{},
		Errors:        []string{},
		Validation:    doc.Validation,
	}
	var allErrors []string

	vendorResolution, err := ResolveVendor(ctx, tx, businessId, &doc.Supplier)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if vendorResolution.Found {
		report.VendorId = &vendorResolution.Vendor.ID
		report.VendorMethod = vendorResolution.Method
	} else {
		report.Warnings = append(report.Warnings, "supplier could not be resolved against the vendor master")
	}

	warehouse, err := models.GetReceivingWarehouse(tx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if warehouse == nil {
		report.Warnings = append(report.Warnings, "no receiving warehouse configured; matched items were not received")
	} else {
		report.WarehouseName = &warehouse.Name
	}

	catalog, err := LoadItemCatalog(tx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	day := time.Now().UTC()
	for i, raw := range doc.LineItems {
		lineNo := i + 1

		resolution := catalog.Resolve(raw)
		if resolution.Skipped {
			continue
		}
		report.ItemsProcessed++

		invoiceItem := models.InvoiceItem{
			BusinessId:          businessId,
			ProcessedDocumentId: documentId,
			LineNumber:          lineNo,
			Description:         raw.Description,
			ItemCode:            raw.ItemCode,
			Quantity:            raw.Quantity.OrZero(),
			Unit:                raw.Unit,
			UnitPrice:           raw.UnitPrice.OrZero(),
			MatchMethod:         resolution.Method,
			MatchConfidence:     resolution.Confidence,
			Status:              models.ReceiptStatusPending,
		}
		if resolution.Item != nil {
			invoiceItem.CatalogItemId = &resolution.Item.ID
		}
		if err := tx.Create(&invoiceItem).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "reconciliationWorkflow.go", "ReconcileDocument", "create invoice item", lineNo, err)
			return zeroReport(documentId, doc, err), nil
		}

		if resolution.Item == nil {
			report.NeedsReview = append(report.NeedsReview, &ReviewItem{
				LineNumber:  lineNo,
				Description: raw.Description,
				ItemCode:    raw.ItemCode,
				Suggestions: resolution.Suggestions,
			})
			continue
		}
		report.ItemsMatched++

		quantity := raw.Quantity.OrZero()
		if warehouse == nil || !quantity.IsPositive() {
			// matched but nothing to put into stock
			continue
		}

		// savepoint per line: a failed receipt must undo its own stock and
		// ledger writes before the batch moves on, or a later commit would
		// persist a position bump with no ledger entry behind it
		savepoint := receiptSavepoint(lineNo)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "reconciliationWorkflow.go", "ReconcileDocument", "savepoint", lineNo, err)
			return zeroReport(documentId, doc, err), nil
		}

		_, receiveErr := ReceiveLineItem(tx, logger, ReceiveInput{
			BusinessId:          businessId,
			ProcessedDocumentId: documentId,
			InvoiceItem:         &invoiceItem,
			CatalogItem:         resolution.Item,
			Warehouse:           warehouse,
			Quantity:            quantity,
			UnitPrice:           raw.UnitPrice.OrZero(),
			Actor:               actor,
			Day:                 day,
		})
		if receiveErr != nil {
			// one bad receipt must not abort the batch
			if err := tx.RollbackTo(savepoint).Error; err != nil {
				tx.Rollback()
				config.LogError(logger, "reconciliationWorkflow.go", "ReconcileDocument", "rollback to savepoint", lineNo, err)
				return zeroReport(documentId, doc, err), nil
			}
			allErrors = append(allErrors,
				fmt.Sprintf("line %d (%s): receipt failed: %v", lineNo, resolution.Item.ItemNumber, receiveErr))
			continue
		}
		report.ItemsReceived++
	}

	allErrors = append(allErrors, doc.Validation.Errors...)

	report.Errors, report.TotalErrors = capErrors(allErrors)

	if documentId > 0 {
		if err := persistDocumentOutcome(tx, businessId, documentId, normalized, actor, doc, report); err != nil {
			tx.Rollback()
			config.LogError(logger, "reconciliationWorkflow.go", "ReconcileDocument", "persist outcome", documentId, err)
			return zeroReport(documentId, doc, err), nil
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "reconciliationWorkflow.go", "ReconcileDocument", "commit", documentId, err)
		return zeroReport(documentId, doc, err), nil
	}

	logger.WithFields(logrus.Fields{
		"business_id": businessId,
		"document_id": documentId,
		"processed":   report.ItemsProcessed,
		"matched":     report.ItemsMatched,
		"received":    report.ItemsReceived,
		"errors":      report.TotalErrors,
	}).Info("document reconciled")

	return report, nil
}

// receiptSavepoint names the per-line savepoint. Must be a plain SQL
// identifier, unique within the transaction.
func receiptSavepoint(lineNo int) string {
	return fmt.Sprintf("receive_line_%d", lineNo)
}

// capErrors keeps the first reportErrorCap entries for display while
// reporting the true total.
func capErrors(errs []string) ([]string, int) {
	total := len(errs)
	if total > reportErrorCap {
		errs = errs[:reportErrorCap]
	}
	if errs == nil {
		errs = []string{}
	}
	return errs, total
}

// zeroReport is the all-or-nothing answer for a failed batch: zero counts
// and a single top-level error.
func zeroReport(documentId int, doc *models.ExtractedDocument, cause error) *ReconciliationReport {
	return &ReconciliationReport{
		DocumentId:    documentId,
		InvoiceNumber: doc.DocumentInfo.InvoiceNumber,
		VendorMethod:  models.VendorMatchNone,
		NeedsReview:   []*ReviewItem{},
		Warnings:      []string{},
		Errors:        []string{fmt.Sprintf("reconciliation aborted, no changes applied: %v", cause)},
		TotalErrors:   1,
	}
}

func persistDocumentOutcome(tx *gorm.DB, businessId string, documentId int, normalized string, actor string, doc *models.ExtractedDocument, report *ReconciliationReport) error {
	extractedJSON, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"invoice_number":            doc.DocumentInfo.InvoiceNumber,
		"normalized_invoice_number": normalized,
		"supplier_name":             doc.Supplier.CompanyName,
		"vendor_id":                 report.VendorId,
		"status":                    models.DocumentStatusReconciled,
		"extracted_payload_json":    extractedJSON,
		"report_payload_json":       reportJSON,
		"processed_by":              actor,
		"processed_at":              &now,
	}
	return tx.Model(&models.ProcessedDocument{}).
		Where("business_id = ?", businessId).
		Where("id = ?", documentId).
		Updates(updates).Error
}

func markDocumentStatus(ctx context.Context, businessId string, documentId int, status models.DocumentStatus) {
	if documentId <= 0 {
		return
	}
	db := config.GetDB()
	_ = db.WithContext(ctx).Model(&models.ProcessedDocument{}).
		Where("business_id = ?", businessId).
		Where("id = ?", documentId).
		Update("status", status).Error
}
