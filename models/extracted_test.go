package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFlexDecimalUnmarshal(t *testing.T) {
	cases := []struct {
		in        string
		want      string
		wantValid bool
	}{
		{`12.5`, "12.5", true},
		{`"12.5"`, "12.5", true},
		{`"20,000"`, "20000", true},
		{`"$ 1,250.75"`, "1250.75", true},
		{`"USD -20,000"`, "-20000", true},
		{`null`, "0", false},
		{`""`, "0", false},
		{`"   "`, "0", false},
		{`"n/a"`, "0", false},
		{`"abc"`, "0", false},
		{`0`, "0", true},
	}
	for _, c := range cases {
		var d FlexDecimal
		if err := json.Unmarshal([]byte(c.in), &d); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", c.in, err)
		}
		if d.Valid != c.wantValid {
			t.Errorf("Unmarshal(%s): Valid = %v, want %v", c.in, d.Valid, c.wantValid)
			continue
		}
		want, _ := decimal.NewFromString(c.want)
		if !d.OrZero().Equal(want) {
			t.Errorf("Unmarshal(%s) = %s, want %s", c.in, d.OrZero(), want)
		}
	}
}

func TestFlexDecimalMarshal(t *testing.T) {
	b, err := json.Marshal(NewFlexDecimal(decimal.RequireFromString("12.5")))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "12.5" {
		t.Errorf("Marshal = %s, want 12.5", b)
	}

	b, err = json.Marshal(FlexDecimal{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "null" {
		t.Errorf("Marshal null = %s, want null", b)
	}
}

func TestExtractedDocumentTolerantDecode(t *testing.T) {
	payload := `{
		"document_info": {"invoice_number": "INV-001", "currency": "USD"},
		"supplier": {"company_name": "Acme Trading", "tax_number": "TAX-99"},
		"financial_details": {"subtotal": "1,000", "total_after_tax": 1100, "amount_due": "bogus"},
		"line_items": [
			{"description": "Copper Pipe", "quantity": "2", "unit_price": 10.5, "total_amount": null}
		]
	}`
	var doc ExtractedDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !doc.FinancialDetails.Subtotal.OrZero().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("subtotal = %s", doc.FinancialDetails.Subtotal.OrZero())
	}
	if doc.FinancialDetails.AmountDue.Valid {
		t.Error("bogus amount_due should decode as null")
	}
	if len(doc.LineItems) != 1 {
		t.Fatalf("line_items = %d", len(doc.LineItems))
	}
	li := doc.LineItems[0]
	if !li.Quantity.OrZero().Equal(decimal.NewFromInt(2)) {
		t.Errorf("quantity = %s", li.Quantity.OrZero())
	}
	if li.TotalAmount.Valid {
		t.Error("null total_amount should stay invalid")
	}
}
