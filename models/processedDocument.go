package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"gorm.io/gorm"
)

// ProcessedDocument is one ingested invoice document: where the original
// bytes live, what extraction produced, and how reconciliation went.
type ProcessedDocument struct {
	ID                      int            `gorm:"primary_key" json:"id"`
	BusinessId              string         `gorm:"index;not null" json:"business_id"`
	Bucket                  string         `gorm:"size:200" json:"bucket"`
	ObjectName              string         `gorm:"size:500" json:"object_name"`
	ContentType             string         `gorm:"size:100" json:"content_type"`
	InvoiceNumber           string         `gorm:"size:100" json:"invoice_number"`
	NormalizedInvoiceNumber string         `gorm:"size:100;index" json:"normalized_invoice_number"`
	SupplierName            string         `gorm:"size:200" json:"supplier_name"`
	VendorId                *int           `gorm:"index" json:"vendor_id"`
	Status                  DocumentStatus `gorm:"type:enum('pending','extracted','reconciled','duplicate','failed');default:'pending'" json:"status"`
	ExtractedPayloadJSON    []byte         `gorm:"type:json" json:"extracted_payload"`
	ReportPayloadJSON       []byte         `gorm:"type:json" json:"report_payload"`
	ExtractionWordCount     int            `gorm:"default:0" json:"extraction_word_count"`
	ExtractionConfidence    float64        `gorm:"default:0" json:"extraction_confidence"`
	ExtractionModel         string         `gorm:"size:100" json:"extraction_model"`
	ProcessedBy             string         `gorm:"size:100" json:"processed_by"`
	ProcessedAt             *time.Time     `json:"processed_at"`
	CreatedAt               time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProcessedDocument struct {
	Bucket      string `json:"bucket"`
	ObjectName  string `json:"object_name"`
	ContentType string `json:"content_type"`
}

// NormalizeInvoiceNumber is the duplicate-detection key: trim + uppercase.
func NormalizeInvoiceNumber(invoiceNumber string) string {
	return strings.ToUpper(strings.TrimSpace(invoiceNumber))
}

func CreateProcessedDocument(ctx context.Context, input *NewProcessedDocument) (*ProcessedDocument, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	doc := ProcessedDocument{
		BusinessId:  businessId,
		Bucket:      input.Bucket,
		ObjectName:  input.ObjectName,
		ContentType: input.ContentType,
		Status:      DocumentStatusPending,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func GetProcessedDocument(ctx context.Context, id int) (*ProcessedDocument, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[ProcessedDocument](ctx, businessId, id)
}

// FindDuplicateDocument looks for another document of the tenant with the
// same normalized invoice number, optionally corroborated by supplier name.
// Returns nil when there is no duplicate.
func FindDuplicateDocument(tx *gorm.DB, businessId string, normalizedInvoiceNumber string, supplierName string, excludeId int) (*ProcessedDocument, error) {
	if normalizedInvoiceNumber == "" {
		return nil, nil
	}
	dbCtx := tx.
		Where("business_id = ?", businessId).
		Where("normalized_invoice_number = ?", normalizedInvoiceNumber).
		Where("status <> ?", DocumentStatusFailed)
	if excludeId > 0 {
		dbCtx = dbCtx.Where("id <> ?", excludeId)
	}
	if supplierName != "" {
		dbCtx = dbCtx.Where("(supplier_name = '' OR LOWER(supplier_name) = ?)", strings.ToLower(supplierName))
	}

	var duplicate ProcessedDocument
	err := dbCtx.Order("id").First(&duplicate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &duplicate, nil
}
