package extraction

import (
	"testing"

	"bitbucket.org/mmdatafocus/invoices_backend/models"
)

func TestStripMarkdownFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  \n```json\n{}\n```\n  ", `{}`},
		{"", ""},
	}
	for _, c := range cases {
		if got := StripMarkdownFences(c.in); got != c.want {
			t.Errorf("StripMarkdownFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractionConfidence(t *testing.T) {
	empty := &models.ExtractedDocument{}
	if got := extractionConfidence(empty); got != 0 {
		t.Fatalf("empty doc confidence = %v, want 0", got)
	}

	full := &models.ExtractedDocument{
		DocumentInfo: models.DocumentInfo{InvoiceNumber: "INV-1"},
		Supplier:     models.ExtractedParty{CompanyName: "Acme"},
		LineItems:    []*models.ExtractedLineItem{{Description: "x"}},
	}
	full.FinancialDetails.Subtotal = models.FlexFromFloat(10)
	if got := extractionConfidence(full); got != 1 {
		t.Fatalf("full doc confidence = %v, want 1", got)
	}

	half := &models.ExtractedDocument{
		DocumentInfo: models.DocumentInfo{InvoiceNumber: "INV-1"},
		LineItems:    []*models.ExtractedLineItem{{Description: "x"}},
	}
	if got := extractionConfidence(half); got != 0.5 {
		t.Fatalf("half doc confidence = %v, want 0.5", got)
	}
}
