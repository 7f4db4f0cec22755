package workflow

import (
	"encoding/json"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"github.com/shopspring/decimal"
)

func flex(s string) models.FlexDecimal {
	return models.NewFlexDecimal(decimal.RequireFromString(s))
}

func cleanDoc() *models.ExtractedDocument {
	// 2 x 10 and 3 x 5, 10% tax each, grand total 38.5
	return &models.ExtractedDocument{
		DocumentInfo: models.DocumentInfo{InvoiceNumber: "INV-100"},
		FinancialDetails: models.FinancialDetails{
			TotalAfterTax: flex("38.5"),
		},
		LineItems: []*models.ExtractedLineItem{
			{
				Description: "Copper Pipe",
				Quantity:    flex("2"),
				UnitPrice:   flex("10"),
				TaxRate:     flex("10"),
				TotalAmount: flex("22"),
			},
			{
				Description: "Brass Valve",
				Quantity:    flex("3"),
				UnitPrice:   flex("5"),
				TaxRate:     flex("10"),
				TotalAmount: flex("16.5"),
			},
		},
	}
}

func TestValidateCleanDocument(t *testing.T) {
	result := ValidateDocumentArithmetic(cleanDoc())
	if !result.CalculationsCorrect {
		t.Fatalf("expected calculations_correct, errors: %v", result.Errors)
	}
	if !result.AllQuantitiesValid || !result.AllUnitPricesValid ||
		!result.AllNetAmountsCorrect || !result.AllTaxAmountsCorrect || !result.AllTotalsCorrect {
		t.Fatalf("expected all per-line checks true: %+v", result)
	}
	if result.ConfidenceScore != 100 {
		t.Fatalf("confidence = %d, want 100", result.ConfidenceScore)
	}
	if result.PotentiallyMissingItems {
		t.Fatal("clean document flagged as missing items")
	}
}

func TestValidateOmittedLineTotals(t *testing.T) {
	// consistent document that never states per-line totals; the computed
	// line values must stand in when sizing it up against the grand total
	doc := cleanDoc()
	doc.LineItems[0].TotalAmount = models.FlexDecimal{}
	doc.LineItems[1].TotalAmount = models.FlexDecimal{}
	result := ValidateDocumentArithmetic(doc)
	if result.PotentiallyMissingItems {
		t.Fatalf("document flagged as missing items, estimated %s, errors: %v",
			result.EstimatedMissingAmount, result.Errors)
	}
	if !result.EstimatedMissingAmount.IsZero() {
		t.Fatalf("estimated_missing_amount = %s, want 0", result.EstimatedMissingAmount)
	}
	if result.ConfidenceScore != 100 {
		t.Fatalf("confidence = %d, want 100", result.ConfidenceScore)
	}
}

func TestValidateIdempotent(t *testing.T) {
	doc := cleanDoc()
	doc.LineItems[0].TotalAmount = flex("25") // one broken line
	first := ValidateDocumentArithmetic(doc)
	doc.Validation = first
	second := ValidateDocumentArithmetic(doc)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("validation drifted between runs:\n%s\n%s", a, b)
	}
}

func TestValidateTotalMismatch(t *testing.T) {
	doc := cleanDoc()
	doc.LineItems[1].TotalAmount = flex("20") // stated 20, computed 16.5
	result := ValidateDocumentArithmetic(doc)
	if result.AllTotalsCorrect {
		t.Fatal("expected total mismatch to flip all_totals_correct")
	}
	if result.CalculationsCorrect {
		t.Fatal("expected calculations_correct = false")
	}
	if result.ConfidenceScore >= 100 {
		t.Fatalf("confidence = %d, expected penalty", result.ConfidenceScore)
	}
}

func TestValidateInfersImplicitDiscount(t *testing.T) {
	doc := &models.ExtractedDocument{
		LineItems: []*models.ExtractedLineItem{
			{
				Description: "Discounted Widget",
				Quantity:    flex("10"),
				UnitPrice:   flex("10"),
				TaxAmount:   flex("9"),
				TotalAmount: flex("99"), // net 90, so 10 off the expected 100
			},
		},
	}
	result := ValidateDocumentArithmetic(doc)

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "implicit discount") && strings.Contains(e, "10.00") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected implicit discount note, errors: %v", result.Errors)
	}
	// the inference is a note, not a verified mismatch
	if !result.AllTotalsCorrect {
		t.Fatalf("inferred discount should reconcile the stated total, errors: %v", result.Errors)
	}
	// but the note still costs confidence like any other issue
	if result.ConfidenceScore != 100-errorPenalty {
		t.Fatalf("confidence = %d, want %d", result.ConfidenceScore, 100-errorPenalty)
	}
}

func TestValidateMissingQuantity(t *testing.T) {
	doc := cleanDoc()
	doc.LineItems[0].Quantity = models.FlexDecimal{}
	result := ValidateDocumentArithmetic(doc)
	if result.AllQuantitiesValid {
		t.Fatal("expected missing quantity to flip all_quantities_valid")
	}
}

func TestValidateCompleteness(t *testing.T) {
	doc := cleanDoc()
	doc.FinancialDetails.TotalAfterTax = flex("50") // lines only sum to 38.5
	result := ValidateDocumentArithmetic(doc)
	if !result.PotentiallyMissingItems {
		t.Fatal("expected potentially_missing_items")
	}
	want := decimal.RequireFromString("11.5")
	if !result.EstimatedMissingAmount.Equal(want) {
		t.Fatalf("estimated_missing_amount = %s, want %s", result.EstimatedMissingAmount, want)
	}
	if result.ConfidenceScore > 100-missingItemPenalty {
		t.Fatalf("confidence = %d, expected missing-item penalty applied", result.ConfidenceScore)
	}
}

func TestValidateCompletenessWithinThreshold(t *testing.T) {
	doc := cleanDoc()
	doc.FinancialDetails.TotalAfterTax = flex("39") // ~1.3% short, under 2%
	result := ValidateDocumentArithmetic(doc)
	if result.PotentiallyMissingItems {
		t.Fatal("shortfall under threshold should not flag missing items")
	}
}

func TestValidateSkipsEmptyLines(t *testing.T) {
	doc := cleanDoc()
	doc.LineItems = append(doc.LineItems, &models.ExtractedLineItem{})
	result := ValidateDocumentArithmetic(doc)
	if !result.CalculationsCorrect {
		t.Fatalf("empty line should be skipped, errors: %v", result.Errors)
	}
}

func TestValidateToleratesGarbageEverywhere(t *testing.T) {
	payload := `{
		"financial_details": {"subtotal": "oops", "total_after_tax": null},
		"line_items": [
			{"description": "Mystery", "quantity": "??", "unit_price": "free", "total_amount": "-"}
		]
	}`
	var doc models.ExtractedDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	result := ValidateDocumentArithmetic(&doc)
	if result == nil {
		t.Fatal("validator must never fail")
	}
	if result.AllQuantitiesValid {
		t.Fatal("garbage quantity should be flagged")
	}
}
