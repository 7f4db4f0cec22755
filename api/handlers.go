package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"bitbucket.org/mmdatafocus/invoices_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxDocumentSizeBytes int64 = 20 * 1024 * 1024

var documentMimeTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

func resolveBusinessID(c *gin.Context) (string, error) {
	businessId := strings.TrimSpace(c.GetHeader("x-business-id"))
	if businessId == "" {
		businessId = strings.TrimSpace(c.Query("business_id"))
	}
	if businessId == "" {
		return "", errors.New("business id is required")
	}
	return businessId, nil
}

func resolveActor(c *gin.Context) string {
	if actor, ok := utils.GetUserNameFromContext(c.Request.Context()); ok && actor != "" {
		return actor
	}
	if actor := strings.TrimSpace(c.GetHeader("x-actor")); actor != "" {
		return actor
	}
	return "api"
}

// UploadDocumentHandler receives one invoice document, stores the bytes in
// the document bucket and queues it for extraction.
func UploadDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxDocumentSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}
		contentType := fileHeader.Header.Get("Content-Type")
		ext, ok := documentMimeTypes[contentType]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported content type"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		bucket, err := utils.DocumentBucket()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		objectName := path.Join("invoices", businessId, uuid.NewString()+ext)
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
			return
		}
		defer file.Close()

		if err := utils.UploadObjectToGCS(ctx, objectName, contentType, file); err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "UploadDocumentHandler", "upload", objectName, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		document, err := models.CreateProcessedDocument(ctx, &models.NewProcessedDocument{
			Bucket:      bucket,
			ObjectName:  objectName,
			ContentType: contentType,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		publishErr := config.PublishDocumentIngest(businessId, config.DocumentIngestMessage{
			DocumentId:    document.ID,
			BusinessId:    businessId,
			Bucket:        bucket,
			ObjectName:    objectName,
			ContentType:   contentType,
			ReceivedAt:    time.Now().UTC(),
			CorrelationId: correlationId,
		})
		if publishErr != nil {
			config.LogError(config.GetLogger(), "handlers.go", "UploadDocumentHandler", "publish", document.ID, publishErr)
		}

		c.JSON(http.StatusCreated, gin.H{
			"document": document,
			"queued":   publishErr == nil,
		})
	}
}

func GetDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		document, err := models.GetProcessedDocument(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"document": document})
	}
}

// DeleteDocumentHandler removes a processed document and its line items.
// Ledger entries survive with their document reference cleared; stock history
// is append-only.
func DeleteDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		if _, err := models.GetProcessedDocument(ctx, id); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var detached int64
		err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			detached, txErr = models.DetachLedgerFromDocument(tx, businessId, id)
			if txErr != nil {
				return txErr
			}
			if txErr := tx.Where("business_id = ?", businessId).
				Where("processed_document_id = ?", id).
				Delete(&models.InvoiceItem{}).Error; txErr != nil {
				return txErr
			}
			return tx.Where("business_id = ?", businessId).
				Where("id = ?", id).
				Delete(&models.ProcessedDocument{}).Error
		})
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "DeleteDocumentHandler", "delete", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"deleted":                 true,
			"ledger_entries_detached": detached,
		})
	}
}

// DownloadDocumentHandler hands out a short-lived signed URL for the stored
// original, for review next to the reconciliation report.
func DownloadDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		document, err := models.GetProcessedDocument(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		signed, err := utils.SignDocumentDownload(ctx, document.ObjectName, 15*time.Minute)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "DownloadDocumentHandler", "sign", document.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign download"})
			return
		}
		c.JSON(http.StatusOK, signed)
	}
}

// ReconcileDocumentHandler re-runs reconciliation for a stored document from
// its persisted extraction payload.
func ReconcileDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		document, err := models.GetProcessedDocument(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(document.ExtractedPayloadJSON) == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "document has not been extracted yet"})
			return
		}

		var doc models.ExtractedDocument
		if err := json.Unmarshal(document.ExtractedPayloadJSON, &doc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stored extraction payload is unreadable"})
			return
		}

		report, err := workflow.ReconcileDocument(ctx, businessId, resolveActor(c), document.ID, &doc)
		if err != nil {
			var dup *workflow.DuplicateDocumentError
			if errors.As(err, &dup) {
				c.JSON(http.StatusConflict, gin.H{
					"error":                   err.Error(),
					"conflicting_document_id": dup.ConflictingDocumentId,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": report})
	}
}

type linkVendorRequest struct {
	VendorId int `json:"vendor_id" binding:"required,gt=0"`
}

// LinkVendorHandler manually attaches a master vendor to a document whose
// supplier the resolver could not place. Master data wins on overlap; the
// extracted values survive only where the master record is blank.
func LinkVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
			return
		}

		var req linkVendorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vendor_id is required"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		document, err := models.GetProcessedDocument(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		vendor, err := models.GetVendor(ctx, req.VendorId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var doc models.ExtractedDocument
		if len(document.ExtractedPayloadJSON) > 0 {
			if err := json.Unmarshal(document.ExtractedPayloadJSON, &doc); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "stored extraction payload is unreadable"})
				return
			}
		}

		workflow.MergeVendorIntoParty(vendor, &doc.Supplier)
		payload, err := json.Marshal(&doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		err = config.GetDB().WithContext(ctx).
			Model(&models.ProcessedDocument{}).
			Where("id = ? AND business_id = ?", document.ID, businessId).
			Updates(map[string]interface{}{
				"vendor_id":              vendor.ID,
				"supplier_name":          doc.Supplier.CompanyName,
				"extracted_payload_json": payload,
			}).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"document_id": document.ID,
			"vendor":      vendor,
			"supplier":    doc.Supplier,
		})
	}
}

// VendorLookupHandler runs the resolver cascade over the query parameters
// without creating anything. Useful for previewing what reconciliation
// would match.
func VendorLookupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		party := models.ExtractedParty{
			CompanyName:        strings.TrimSpace(c.Query("name")),
			TaxNumber:          strings.TrimSpace(c.Query("tax_number")),
			RegistrationNumber: strings.TrimSpace(c.Query("registration_number")),
			Email:              strings.TrimSpace(c.Query("email")),
			Phone:              strings.TrimSpace(c.Query("phone")),
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		vendors, err := models.ListActiveVendors(ctx, businessId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		vendor, method := workflow.ResolveVendorAgainst(&party, vendors)
		if vendor != nil {
			c.JSON(http.StatusOK, gin.H{
				"found":  true,
				"vendor": vendor,
				"method": method,
			})
			return
		}

		suggestions := []*models.Vendor{}
		if party.CompanyName != "" {
			suggestions, err = models.SearchVendorsByName(ctx, businessId, party.CompanyName, 5)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"found":       false,
			"method":      models.VendorMatchNone,
			"suggestions": suggestions,
		})
	}
}

// ItemLookupHandler resolves one code/description pair against the catalog.
func ItemLookupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		raw := models.ExtractedLineItem{
			ItemCode:    strings.TrimSpace(c.Query("code")),
			Description: strings.TrimSpace(c.Query("description")),
		}
		if raw.ItemCode == "" && raw.Description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code or description is required"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		catalog, err := workflow.LoadItemCatalog(config.GetDB().WithContext(ctx), businessId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resolution := catalog.Resolve(&raw)
		c.JSON(http.StatusOK, gin.H{
			"item":        resolution.Item,
			"method":      resolution.Method,
			"confidence":  resolution.Confidence,
			"suggestions": resolution.Suggestions,
		})
	}
}

// CreateVendorHandler adds a vendor to master data.
func CreateVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var input models.NewVendor
		if err := c.ShouldBindJSON(&input); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		vendor, err := models.CreateVendor(ctx, &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"vendor": vendor})
	}
}
