package config

import (
	"os"
	"strings"
)

// StrictLedgerImmutability enables fintech-grade guardrails:
// a document whose lines already posted to the inventory ledger cannot be
// reconciled again in place; it must be detached and reprocessed explicitly.
//
// Set via env:
// - STRICT_LEDGER_IMMUTABLE=true
func StrictLedgerImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_LEDGER_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SkipDuplicateCheck disables the duplicate-invoice guard. Intended for
// dev seeding and replay tooling only.
//
// Set via env:
// - RECONCILE_SKIP_DUPLICATE_CHECK=true
func SkipDuplicateCheck() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RECONCILE_SKIP_DUPLICATE_CHECK")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
