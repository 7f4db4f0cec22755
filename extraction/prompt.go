package extraction

// Prompts for the invoice-understanding model. The response schema mirrors
// models.ExtractedDocument so the JSON can be decoded directly.

const extractorSystemPrompt = "You are an invoice parsing engine. You read supplier invoice documents and return their content as structured JSON. Accuracy matters more than completeness: never invent values, leave unknown fields null."

const extractorUserPrompt = `Parse the attached invoice document and return a single JSON object with this exact shape:

{
  "document_info": {
    "invoice_number": string|null,
    "invoice_date": string|null,
    "due_date": string|null,
    "currency": string|null,
    "po_number": string|null
  },
  "supplier": {
    "company_name": string|null,
    "tax_number": string|null,
    "registration_number": string|null,
    "email": string|null,
    "phone": string|null,
    "address": string|null,
    "city": string|null,
    "country": string|null,
    "postal_code": string|null
  },
  "customer": { same shape as supplier },
  "financial_details": {
    "subtotal": number|null,
    "total_discount": number|null,
    "total_before_tax": number|null,
    "total_tax": number|null,
    "total_after_tax": number|null,
    "amount_paid": number|null,
    "amount_due": number|null
  },
  "line_items": [
    {
      "description": string|null,
      "item_code": string|null,
      "quantity": number|null,
      "unit": string|null,
      "unit_price": number|null,
      "discount_amount": number|null,
      "discount_percent": number|null,
      "net_amount": number|null,
      "tax_rate": number|null,
      "tax_amount": number|null,
      "total_amount": number|null
    }
  ]
}

Rules:
1. Copy values exactly as printed; do not compute or correct arithmetic.
2. Use null for anything you cannot read with confidence.
3. Keep line items in document order, one entry per printed row.
4. Return ONLY the JSON object, no prose and no markdown fences.`
