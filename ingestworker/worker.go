package ingestworker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/extraction"
	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"bitbucket.org/mmdatafocus/invoices_backend/workflow"
	"github.com/sirupsen/logrus"
)

const workerActor = "ingest-worker"

// ProcessIngestMessage handles one "document uploaded" message end to end:
// fetch the bytes from storage, extract, then reconcile. A duplicate invoice
// is a terminal outcome, not a failure; the message must not be redelivered.
func ProcessIngestMessage(ctx context.Context, extractor *extraction.Client, msg config.DocumentIngestMessage) error {
	if msg.DocumentId == 0 || strings.TrimSpace(msg.BusinessId) == "" {
		return errors.New("invalid ingest payload")
	}

	logger := config.GetLogger()

	ctx = utils.SetBusinessIdInContext(ctx, msg.BusinessId)
	if msg.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, msg.CorrelationId)
	}

	document, err := models.GetProcessedDocument(ctx, msg.DocumentId)
	if err != nil {
		return err
	}

	bucket := msg.Bucket
	if bucket == "" {
		bucket = document.Bucket
	}
	objectName := msg.ObjectName
	if objectName == "" {
		objectName = document.ObjectName
	}

	doc, metadata, err := extractor.Extract(ctx, bucket, objectName, document.ContentType)
	if err != nil {
		config.LogError(logger, "worker.go", "ProcessIngestMessage", "extraction", msg.DocumentId, err)
		markDocumentFailed(ctx, msg.BusinessId, msg.DocumentId)
		return err
	}

	if err := recordExtraction(ctx, msg.BusinessId, document, doc, metadata); err != nil {
		return err
	}

	report, err := workflow.ReconcileDocument(ctx, msg.BusinessId, workerActor, msg.DocumentId, doc)
	if err != nil {
		var dup *workflow.DuplicateDocumentError
		if errors.As(err, &dup) {
			logger.WithFields(logrus.Fields{
				"document_id": msg.DocumentId,
				"business_id": msg.BusinessId,
				"conflict":    dup.ConflictingDocumentId,
			}).Warn("duplicate invoice skipped")
			return nil
		}
		config.LogError(logger, "worker.go", "ProcessIngestMessage", "reconcile", msg.DocumentId, err)
		return err
	}

	logger.WithFields(logrus.Fields{
		"document_id":    msg.DocumentId,
		"business_id":    msg.BusinessId,
		"invoice_number": report.InvoiceNumber,
		"items_received": report.ItemsReceived,
		"total_errors":   report.TotalErrors,
	}).Info("document ingested")
	return nil
}

// recordExtraction persists the raw extraction result before reconciliation
// runs, so a later reconcile failure still leaves the payload inspectable.
func recordExtraction(ctx context.Context, businessId string, document *models.ProcessedDocument, doc *models.ExtractedDocument, metadata *models.ExtractionMetadata) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"invoice_number":            doc.DocumentInfo.InvoiceNumber,
		"normalized_invoice_number": models.NormalizeInvoiceNumber(doc.DocumentInfo.InvoiceNumber),
		"supplier_name":             doc.Supplier.CompanyName,
		"status":                    models.DocumentStatusExtracted,
		"extracted_payload_json":    payload,
	}
	if metadata != nil {
		updates["extraction_word_count"] = metadata.WordCount
		updates["extraction_confidence"] = metadata.Confidence
		updates["extraction_model"] = metadata.ModelName
	}

	return config.GetDB().WithContext(ctx).
		Model(&models.ProcessedDocument{}).
		Where("id = ? AND business_id = ?", document.ID, businessId).
		Updates(updates).Error
}

func markDocumentFailed(ctx context.Context, businessId string, documentId int) {
	now := time.Now()
	err := config.GetDB().WithContext(ctx).
		Model(&models.ProcessedDocument{}).
		Where("id = ? AND business_id = ?", documentId, businessId).
		Updates(map[string]interface{}{
			"status":       models.DocumentStatusFailed,
			"processed_by": workerActor,
			"processed_at": &now,
		}).Error
	if err != nil {
		config.LogError(config.GetLogger(), "worker.go", "markDocumentFailed", "update status", documentId, err)
	}
}
