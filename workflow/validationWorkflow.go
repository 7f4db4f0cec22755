package workflow

import (
	"fmt"

	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"github.com/shopspring/decimal"
)

var (
	// absolute currency tolerance for all arithmetic cross-checks
	arithmeticTolerance = decimal.NewFromFloat(0.01)
	// percentage threshold for the missing-line-items heuristic
	completenessThresholdPct = decimal.NewFromInt(2)

	oneHundred = decimal.NewFromInt(100)
)

const (
	errorPenalty       = 3
	missingItemPenalty = 15
)

// ValidateDocumentArithmetic recomputes every monetary figure of the
// extracted document and cross-checks it against the stated values. It never
// fails: absent or malformed numbers are treated as zero for comparison.
// The validation block is rebuilt from scratch on every call, so running it
// on an already-validated document produces the identical report.
func ValidateDocumentArithmetic(doc *models.ExtractedDocument) *models.ValidationResult {
	result := &models.ValidationResult{
		AllQuantitiesValid:   true,
		AllUnitPricesValid:   true,
		AllNetAmountsCorrect: true,
		AllTaxAmountsCorrect: true,
		AllTotalsCorrect:     true,
		Errors:               []string{},
	}

	var (
		sumBeforeDiscount = decimal.Zero
		sumDiscounts      = decimal.Zero
		sumTaxes          = decimal.Zero
		sumLineTotals     = decimal.Zero
	)

	for i, li := range doc.LineItems {
		if isEmptyLine(li) {
			continue
		}
		lineNo := i + 1

		qty := li.Quantity.OrZero()
		price := li.UnitPrice.OrZero()

		if !li.Quantity.Valid || !qty.IsPositive() {
			result.AllQuantitiesValid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d (%s): missing or non-positive quantity", lineNo, lineLabel(li)))
		}
		if !li.UnitPrice.Valid || price.IsNegative() {
			result.AllUnitPricesValid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d (%s): missing or negative unit price", lineNo, lineLabel(li)))
		}

		expectedBefore := qty.Mul(price)

		discount, inferred := lineDiscount(li, expectedBefore)
		if inferred != nil {
			// Heuristic, not verified: the source may have under-disclosed
			// a discount. Recorded as a note, no boolean is flipped.
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d (%s): inferred implicit discount of %s from stated total shortfall", lineNo, lineLabel(li), inferred.StringFixed(2)))
			discount = *inferred
		}

		netAmount := expectedBefore.Sub(discount)

		statedNet := li.NetAmount.OrZero()
		if !statedNet.IsZero() && exceedsTolerance(statedNet.Sub(netAmount)) {
			result.AllNetAmountsCorrect = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d (%s): stated net %s != computed %s", lineNo, lineLabel(li), statedNet.StringFixed(2), netAmount.StringFixed(2)))
		}

		statedTax := li.TaxAmount.OrZero()
		expectedTax := statedTax
		if li.TaxRate.Valid {
			expectedTax = netAmount.Mul(li.TaxRate.Decimal).Div(oneHundred)
			if !statedTax.IsZero() && exceedsTolerance(statedTax.Sub(expectedTax)) {
				result.AllTaxAmountsCorrect = false
				result.Errors = append(result.Errors,
					fmt.Sprintf("line %d (%s): stated tax %s != computed %s", lineNo, lineLabel(li), statedTax.StringFixed(2), expectedTax.StringFixed(2)))
			}
		}

		expectedTotal := netAmount.Add(expectedTax)
		statedTotal := li.TotalAmount.OrZero()
		if !statedTotal.IsZero() && exceedsTolerance(statedTotal.Sub(expectedTotal)) {
			result.AllTotalsCorrect = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d (%s): stated total %s != computed %s", lineNo, lineLabel(li), statedTotal.StringFixed(2), expectedTotal.StringFixed(2)))
		}

		sumBeforeDiscount = sumBeforeDiscount.Add(expectedBefore)
		sumDiscounts = sumDiscounts.Add(discount)
		sumTaxes = sumTaxes.Add(expectedTax)

		// a line with no usable stated total still accounts for its
		// computed value when sizing up the document against its lines
		lineTotal := statedTotal
		if !lineTotal.IsPositive() {
			lineTotal = expectedTotal
		}
		sumLineTotals = sumLineTotals.Add(lineTotal)
	}

	docErrors := crossCheckDocumentTotals(doc, result, sumBeforeDiscount, sumDiscounts, sumTaxes)

	checkCompleteness(doc, result, sumLineTotals)

	result.CalculationsCorrect = result.AllQuantitiesValid &&
		result.AllUnitPricesValid &&
		result.AllNetAmountsCorrect &&
		result.AllTaxAmountsCorrect &&
		result.AllTotalsCorrect &&
		docErrors == 0

	confidence := 100 - errorPenalty*len(result.Errors)
	if result.PotentiallyMissingItems {
		confidence -= missingItemPenalty
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	result.ConfidenceScore = confidence

	result.Summary = buildSummary(doc, result)
	return result
}

// ApplyValidation attaches a freshly built validation block to the document.
func ApplyValidation(doc *models.ExtractedDocument) {
	doc.Validation = ValidateDocumentArithmetic(doc)
}

func isEmptyLine(li *models.ExtractedLineItem) bool {
	return li.Description == "" && li.ItemCode == "" &&
		!li.Quantity.Valid && !li.UnitPrice.Valid && !li.TotalAmount.Valid
}

func lineLabel(li *models.ExtractedLineItem) string {
	if li.Description != "" {
		return li.Description
	}
	if li.ItemCode != "" {
		return li.ItemCode
	}
	return "unnamed"
}

func exceedsTolerance(diff decimal.Decimal) bool {
	return diff.Abs().GreaterThan(arithmeticTolerance)
}

// lineDiscount returns the explicit discount when one is stated. With no
// explicit discount, it checks whether the stated total falls short of
// quantity x price plus tax; the shortfall is then returned as an inferred
// implicit discount.
func lineDiscount(li *models.ExtractedLineItem, expectedBefore decimal.Decimal) (decimal.Decimal, *decimal.Decimal) {
	if li.DiscountAmount.Valid && !li.DiscountAmount.Decimal.IsZero() {
		return li.DiscountAmount.Decimal, nil
	}
	if li.DiscountPercent.Valid && !li.DiscountPercent.Decimal.IsZero() {
		return expectedBefore.Mul(li.DiscountPercent.Decimal).Div(oneHundred), nil
	}

	if !li.TotalAmount.Valid || li.TotalAmount.Decimal.IsZero() {
		return decimal.Zero, nil
	}
	// implied net = stated total minus tax; the gap to quantity x price is
	// the discount the source did not disclose
	impliedTax := li.TaxAmount.OrZero()
	if !li.TaxAmount.Valid && li.TaxRate.Valid {
		// total = net * (1 + rate/100) => net = total / (1 + rate/100)
		factor := decimal.NewFromInt(1).Add(li.TaxRate.Decimal.Div(oneHundred))
		if factor.IsPositive() {
			impliedNet := li.TotalAmount.Decimal.Div(factor)
			impliedTax = li.TotalAmount.Decimal.Sub(impliedNet)
		}
	}
	impliedNet := li.TotalAmount.Decimal.Sub(impliedTax)
	shortfall := expectedBefore.Sub(impliedNet)
	if shortfall.GreaterThan(arithmeticTolerance) {
		return decimal.Zero, &shortfall
	}
	return decimal.Zero, nil
}

// crossCheckDocumentTotals compares the document's stated aggregates against
// line-item sums and against each other; returns how many mismatched.
func crossCheckDocumentTotals(doc *models.ExtractedDocument, result *models.ValidationResult, sumBefore, sumDiscounts, sumTaxes decimal.Decimal) int {
	fd := doc.FinancialDetails
	mismatches := 0

	check := func(stated models.FlexDecimal, computed decimal.Decimal, label string) {
		s := stated.OrZero()
		if s.IsZero() {
			return
		}
		if exceedsTolerance(s.Sub(computed)) {
			mismatches++
			result.Errors = append(result.Errors,
				fmt.Sprintf("document: stated %s %s != computed %s", label, s.StringFixed(2), computed.StringFixed(2)))
		}
	}

	check(fd.Subtotal, sumBefore, "subtotal")
	check(fd.TotalDiscount, sumDiscounts, "total discount")
	check(fd.TotalTax, sumTaxes, "total tax")

	// fall back to line-item sums for any aggregate the document leaves out
	subtotal := fd.Subtotal.OrZero()
	if subtotal.IsZero() {
		subtotal = sumBefore
	}
	totalDiscount := fd.TotalDiscount.OrZero()
	if totalDiscount.IsZero() {
		totalDiscount = sumDiscounts
	}
	totalTax := fd.TotalTax.OrZero()
	if totalTax.IsZero() {
		totalTax = sumTaxes
	}

	totalBeforeTax := subtotal.Sub(totalDiscount)
	check(fd.TotalBeforeTax, totalBeforeTax, "total before tax")

	totalAfterTax := fd.TotalBeforeTax.OrZero()
	if totalAfterTax.IsZero() {
		totalAfterTax = totalBeforeTax
	}
	totalAfterTax = totalAfterTax.Add(totalTax)
	check(fd.TotalAfterTax, totalAfterTax, "total after tax")

	amountDue := fd.TotalAfterTax.OrZero().Sub(fd.AmountPaid.OrZero())
	if !fd.TotalAfterTax.OrZero().IsZero() {
		check(fd.AmountDue, amountDue, "amount due")
	}

	return mismatches
}

// checkCompleteness flags documents whose line items under-account for the
// stated grand total by more than 2%. A shortfall that large usually means
// extraction dropped rows (shipping, fees), not that the totals are wrong.
func checkCompleteness(doc *models.ExtractedDocument, result *models.ValidationResult, sumLineTotals decimal.Decimal) {
	fd := doc.FinancialDetails

	documentTotal := fd.TotalAfterTax.OrZero()
	if documentTotal.IsZero() {
		documentTotal = fd.Subtotal.OrZero()
	}
	if documentTotal.IsZero() {
		documentTotal = fd.AmountDue.OrZero()
	}
	if !documentTotal.IsPositive() {
		return
	}

	diff := documentTotal.Sub(sumLineTotals)
	if !diff.IsPositive() {
		return
	}
	pct := diff.Div(documentTotal).Mul(oneHundred)
	if pct.GreaterThan(completenessThresholdPct) {
		result.PotentiallyMissingItems = true
		result.EstimatedMissingAmount = diff
	}
}

func buildSummary(doc *models.ExtractedDocument, result *models.ValidationResult) string {
	if result.PotentiallyMissingItems {
		return fmt.Sprintf("validated %d line items with %d issue(s); line items under-account for the document total by %s - extraction may have dropped rows",
			len(doc.LineItems), len(result.Errors), result.EstimatedMissingAmount.StringFixed(2))
	}
	if len(result.Errors) == 0 {
		return fmt.Sprintf("validated %d line items; all arithmetic checks passed", len(doc.LineItems))
	}
	return fmt.Sprintf("validated %d line items with %d issue(s)", len(doc.LineItems), len(result.Errors))
}
