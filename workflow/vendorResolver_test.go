package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/invoices_backend/models"
)

func vendorFixtures() []*models.Vendor {
	return []*models.Vendor{
		{ID: 1, Name: "Acme Trading Co", TaxNumber: "TAX-1001", Email: "sales@acme.example", Phone: "+95 9 4567 8901"},
		{ID: 2, Name: "Bolt Suppliers Ltd", RegistrationNumber: "REG 2002", Phone: "0912345678"},
		{ID: 3, Name: "Cement Works", Email: "info@cementworks.example"},
	}
}

func TestResolveVendorTaxNumberBeatsName(t *testing.T) {
	// tax id points at Acme while the name matches Cement Works; the
	// cascade must stop at the tax id step
	party := &models.ExtractedParty{
		CompanyName: "Cement Works",
		TaxNumber:   "tax 1001",
	}
	vendor, method := ResolveVendorAgainst(party, vendorFixtures())
	if vendor == nil || vendor.ID != 1 {
		t.Fatalf("vendor = %+v, want Acme (id 1)", vendor)
	}
	if method != models.VendorMatchTaxNumber {
		t.Fatalf("method = %s, want %s", method, models.VendorMatchTaxNumber)
	}
}

func TestResolveVendorRegistrationNumberNormalized(t *testing.T) {
	party := &models.ExtractedParty{RegistrationNumber: "reg-2002"}
	vendor, method := ResolveVendorAgainst(party, vendorFixtures())
	if vendor == nil || vendor.ID != 2 {
		t.Fatalf("vendor = %+v, want id 2", vendor)
	}
	if method != models.VendorMatchRegistrationNumber {
		t.Fatalf("method = %s", method)
	}
}

func TestResolveVendorEmailCaseInsensitive(t *testing.T) {
	party := &models.ExtractedParty{Email: "INFO@CementWorks.example"}
	vendor, method := ResolveVendorAgainst(party, vendorFixtures())
	if vendor == nil || vendor.ID != 3 {
		t.Fatalf("vendor = %+v, want id 3", vendor)
	}
	if method != models.VendorMatchEmail {
		t.Fatalf("method = %s", method)
	}
}

func TestResolveVendorPhoneLastSevenDigits(t *testing.T) {
	// different country-code prefix, same trailing digits as vendor 1
	party := &models.ExtractedParty{Phone: "(09) 45678901"}
	vendor, method := ResolveVendorAgainst(party, vendorFixtures())
	if vendor == nil || vendor.ID != 1 {
		t.Fatalf("vendor = %+v, want id 1", vendor)
	}
	if method != models.VendorMatchPhone {
		t.Fatalf("method = %s", method)
	}
}

func TestResolveVendorShortPhoneNeverMatches(t *testing.T) {
	party := &models.ExtractedParty{Phone: "8901"}
	vendor, _ := ResolveVendorAgainst(party, vendorFixtures())
	if vendor != nil {
		t.Fatalf("short phone fragment must not match, got %+v", vendor)
	}
}

func TestResolveVendorNoMatch(t *testing.T) {
	party := &models.ExtractedParty{CompanyName: "Unknown Imports"}
	vendor, method := ResolveVendorAgainst(party, vendorFixtures())
	if vendor != nil {
		t.Fatalf("expected no match, got %+v", vendor)
	}
	if method != models.VendorMatchNone {
		t.Fatalf("method = %s", method)
	}
}

func TestMergeVendorIntoParty(t *testing.T) {
	vendor := &models.Vendor{
		ID:        7,
		Name:      "Acme Trading Co",
		TaxNumber: "TAX-1001",
		// no email on the master record
	}
	party := &models.ExtractedParty{
		CompanyName: "ACME TRADING",
		TaxNumber:   "tax1001",
		Email:       "billing@acme.example",
	}
	MergeVendorIntoParty(vendor, party)

	if party.CompanyName != "Acme Trading Co" {
		t.Errorf("master name must win, got %q", party.CompanyName)
	}
	if party.TaxNumber != "TAX-1001" {
		t.Errorf("master tax number must win, got %q", party.TaxNumber)
	}
	if party.Email != "billing@acme.example" {
		t.Errorf("extraction must fill gaps the master leaves, got %q", party.Email)
	}
	if party.VendorId == nil || *party.VendorId != 7 {
		t.Errorf("vendor id not linked: %+v", party.VendorId)
	}
}

func TestMergeVendorIdempotent(t *testing.T) {
	vendor := &models.Vendor{ID: 7, Name: "Acme Trading Co", Phone: "091234567"}
	party := &models.ExtractedParty{CompanyName: "acme", Phone: "other"}
	MergeVendorIntoParty(vendor, party)
	once := *party
	MergeVendorIntoParty(vendor, party)
	if *party != once {
		t.Fatalf("merge not idempotent: %+v vs %+v", *party, once)
	}
}

func TestSuggestVendorsByName(t *testing.T) {
	got := suggestVendorsByName("cement", vendorFixtures())
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("suggestions = %+v", got)
	}
	if s := suggestVendorsByName("", vendorFixtures()); s != nil {
		t.Fatalf("empty name should yield no suggestions, got %+v", s)
	}
}
