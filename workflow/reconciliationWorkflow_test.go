package workflow

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/invoices_backend/models"
)

func TestCapErrors(t *testing.T) {
	var errs []string
	for i := 0; i < 25; i++ {
		errs = append(errs, fmt.Sprintf("error %d", i))
	}
	capped, total := capErrors(errs)
	if total != 25 {
		t.Fatalf("total = %d, want 25", total)
	}
	if len(capped) != reportErrorCap {
		t.Fatalf("capped = %d, want %d", len(capped), reportErrorCap)
	}
	if capped[0] != "error 0" || capped[reportErrorCap-1] != fmt.Sprintf("error %d", reportErrorCap-1) {
		t.Fatalf("cap must keep the first entries: %v", capped)
	}

	capped, total = capErrors(nil)
	if total != 0 || capped == nil || len(capped) != 0 {
		t.Fatalf("empty input: capped = %v, total = %d", capped, total)
	}

	few := []string{"a", "b"}
	capped, total = capErrors(few)
	if total != 2 || len(capped) != 2 {
		t.Fatalf("short input must pass through: %v, %d", capped, total)
	}
}

func TestReceiptSavepointNames(t *testing.T) {
	seen := map[string]bool{}
	for lineNo := 1; lineNo <= 50; lineNo++ {
		name := receiptSavepoint(lineNo)
		if seen[name] {
			t.Fatalf("savepoint name %q reused", name)
		}
		seen[name] = true
		// savepoint names are interpolated into SQL, so only identifier
		// characters are allowed
		for _, r := range name {
			if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
				t.Fatalf("savepoint name %q carries non-identifier rune %q", name, r)
			}
		}
	}
}

func TestDuplicateDocumentError(t *testing.T) {
	err := error(&DuplicateDocumentError{ConflictingDocumentId: 42, InvoiceNumber: "INV-7"})
	if !strings.Contains(err.Error(), "42") || !strings.Contains(err.Error(), "INV-7") {
		t.Fatalf("error must name the conflict: %q", err.Error())
	}
	var dup *DuplicateDocumentError
	if !errors.As(err, &dup) {
		t.Fatal("errors.As should unwrap DuplicateDocumentError")
	}
	if dup.ConflictingDocumentId != 42 {
		t.Fatalf("conflicting id = %d", dup.ConflictingDocumentId)
	}
}

func TestZeroReport(t *testing.T) {
	doc := &models.ExtractedDocument{
		DocumentInfo: models.DocumentInfo{InvoiceNumber: "INV-9"},
	}
	report := zeroReport(5, doc, errors.New("storage outage"))
	if report.ItemsProcessed != 0 || report.ItemsMatched != 0 || report.ItemsReceived != 0 {
		t.Fatalf("zero report must carry zero counts: %+v", report)
	}
	if report.TotalErrors != 1 || len(report.Errors) != 1 {
		t.Fatalf("zero report must carry exactly one error: %+v", report.Errors)
	}
	if !strings.Contains(report.Errors[0], "storage outage") {
		t.Fatalf("error must carry the cause: %q", report.Errors[0])
	}
	if report.InvoiceNumber != "INV-9" {
		t.Fatalf("invoice number = %q", report.InvoiceNumber)
	}
}
