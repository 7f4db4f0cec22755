package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexDecimal is a nullable decimal that tolerates the junk extraction
// produces: JSON numbers, numeric strings with currency symbols or thousand
// separators, empty strings, and null. A value that cannot be coerced becomes
// null instead of failing the whole document.
type FlexDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

func NewFlexDecimal(d decimal.Decimal) FlexDecimal {
	return FlexDecimal{Decimal: d, Valid: true}
}

func FlexFromFloat(f float64) FlexDecimal {
	return FlexDecimal{Decimal: decimal.NewFromFloat(f), Valid: true}
}

// OrZero returns the value, treating absence as zero.
func (d FlexDecimal) OrZero() decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func (d FlexDecimal) IsPositive() bool {
	return d.Valid && d.Decimal.IsPositive()
}

func (d *FlexDecimal) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*d = FlexDecimal{}
		return nil
	}

	// Plain JSON number.
	if s[0] != '"' {
		val, err := decimal.NewFromString(s)
		if err != nil {
			*d = FlexDecimal{}
			return nil
		}
		*d = FlexDecimal{Decimal: val, Valid: true}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = FlexDecimal{}
		return nil
	}

	// Accept common user-formatted strings like:
	// - "20,000"
	// - "$ 20,000"
	// - "USD -20,000"
	//
	// Keep digits, '.', and a leading '-' only.
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimSpace(raw)
	neg := false
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "-"))
	}
	var b strings.Builder
	b.Grow(len(raw) + 1)
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		*d = FlexDecimal{}
		return nil
	}
	if neg {
		clean = "-" + clean
	}

	val, err := decimal.NewFromString(clean)
	if err != nil {
		*d = FlexDecimal{}
		return nil
	}
	*d = FlexDecimal{Decimal: val, Valid: true}
	return nil
}

func (d FlexDecimal) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(d.Decimal.String()), nil
}

// ExtractedDocument is the structured guess produced by document
// understanding. Every field is optional; reconciliation must tolerate any of
// them being absent or inconsistent.
type ExtractedDocument struct {
	DocumentInfo     DocumentInfo         `json:"document_info"`
	Supplier         ExtractedParty       `json:"supplier"`
	Customer         ExtractedParty       `json:"customer"`
	FinancialDetails FinancialDetails     `json:"financial_details"`
	LineItems        []*ExtractedLineItem `json:"line_items"`
	Validation       *ValidationResult    `json:"validation,omitempty"`
	Metadata         *ExtractionMetadata  `json:"extraction_metadata,omitempty"`
}

type DocumentInfo struct {
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	Currency      string `json:"currency"`
	PoNumber      string `json:"po_number"`
}

type ExtractedParty struct {
	CompanyName        string `json:"company_name"`
	TaxNumber          string `json:"tax_number"`
	RegistrationNumber string `json:"registration_number"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	Country            string `json:"country"`
	PostalCode         string `json:"postal_code"`
	// VendorId is filled in once the party is resolved against master data.
	VendorId *int `json:"vendor_id,omitempty"`
}

type ExtractedLineItem struct {
	Description     string      `json:"description"`
	ItemCode        string      `json:"item_code"`
	Quantity        FlexDecimal `json:"quantity"`
	Unit            string      `json:"unit"`
	UnitPrice       FlexDecimal `json:"unit_price"`
	DiscountAmount  FlexDecimal `json:"discount_amount"`
	DiscountPercent FlexDecimal `json:"discount_percent"`
	NetAmount       FlexDecimal `json:"net_amount"`
	TaxRate         FlexDecimal `json:"tax_rate"`
	TaxAmount       FlexDecimal `json:"tax_amount"`
	TotalAmount     FlexDecimal `json:"total_amount"`
}

type FinancialDetails struct {
	Subtotal       FlexDecimal `json:"subtotal"`
	TotalDiscount  FlexDecimal `json:"total_discount"`
	TotalBeforeTax FlexDecimal `json:"total_before_tax"`
	TotalTax       FlexDecimal `json:"total_tax"`
	TotalAfterTax  FlexDecimal `json:"total_after_tax"`
	AmountPaid     FlexDecimal `json:"amount_paid"`
	AmountDue      FlexDecimal `json:"amount_due"`
}

// ValidationResult is appended to the document by the arithmetic validator.
// It is rebuilt from scratch on every run so revalidation never drifts.
type ValidationResult struct {
	AllQuantitiesValid      bool            `json:"all_quantities_valid"`
	AllUnitPricesValid      bool            `json:"all_unit_prices_valid"`
	AllNetAmountsCorrect    bool            `json:"all_net_amounts_correct"`
	AllTaxAmountsCorrect    bool            `json:"all_tax_amounts_correct"`
	AllTotalsCorrect        bool            `json:"all_totals_correct"`
	CalculationsCorrect     bool            `json:"calculations_correct"`
	PotentiallyMissingItems bool            `json:"potentially_missing_items"`
	EstimatedMissingAmount  decimal.Decimal `json:"estimated_missing_amount"`
	ConfidenceScore         int             `json:"confidence_score"`
	Errors                  []string        `json:"errors"`
	Summary                 string          `json:"summary"`
}

// ExtractionMetadata describes how the structured guess was produced.
type ExtractionMetadata struct {
	ModelName  string  `json:"model_name"`
	WordCount  int     `json:"word_count"`
	Confidence float64 `json:"confidence"`
	DurationMs int64   `json:"duration_ms"`
}
