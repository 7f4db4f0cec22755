package models

// VendorMatchMethod records which cascade step identified the vendor.
type VendorMatchMethod string

const (
	VendorMatchTaxNumber          VendorMatchMethod = "tax_number"
	VendorMatchRegistrationNumber VendorMatchMethod = "registration_number"
	VendorMatchEmail              VendorMatchMethod = "email"
	VendorMatchCompanyName        VendorMatchMethod = "company_name"
	VendorMatchPhone              VendorMatchMethod = "phone"
	VendorMatchAutoCreated        VendorMatchMethod = "auto_created"
	VendorMatchNone               VendorMatchMethod = "no_match"
)

// ItemMatchMethod records which cascade step identified the catalog item.
type ItemMatchMethod string

const (
	ItemMatchItemNumber  ItemMatchMethod = "item_number"
	ItemMatchAlias       ItemMatchMethod = "alias"
	ItemMatchShortItemNo ItemMatchMethod = "short_item_no"
	ItemMatchFuzzy       ItemMatchMethod = "fuzzy_description"
	ItemMatchNone        ItemMatchMethod = "no_match"
)

// ReceiptStatus is the lifecycle of one invoice line item.
type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "pending"
	ReceiptStatusReceived ReceiptStatus = "received"
)

// LedgerEntryType classifies a stock movement.
type LedgerEntryType string

const (
	LedgerEntryReceipt    LedgerEntryType = "RECEIPT"
	LedgerEntryAdjustment LedgerEntryType = "ADJUSTMENT"
)

// DocumentStatus tracks a processed document through ingestion.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusExtracted  DocumentStatus = "extracted"
	DocumentStatusReconciled DocumentStatus = "reconciled"
	DocumentStatusDuplicate  DocumentStatus = "duplicate"
	DocumentStatusFailed     DocumentStatus = "failed"
)
