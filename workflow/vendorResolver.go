package workflow

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"gorm.io/gorm"
)

const vendorSuggestionLimit = 5

// minimum trailing digits for a phone match; tolerates country-code prefixes
const phoneMatchDigits = 7

// VendorResolution is the outcome of one resolve call.
type VendorResolution struct {
	Found       bool                     `json:"found"`
	Vendor      *models.Vendor           `json:"vendor"`
	Method      models.VendorMatchMethod `json:"method"`
	Suggestions []*models.Vendor         `json:"suggestions,omitempty"`
}

// vendorMatcher is one step of the cascade. Returns nil when the strategy
// does not apply or nothing matched.
type vendorMatcher struct {
	method models.VendorMatchMethod
	match  func(party *models.ExtractedParty, vendors []*models.Vendor) *models.Vendor
}

var vendorMatchers = []vendorMatcher{
	{models.VendorMatchTaxNumber, matchVendorByTaxNumber},
	{models.VendorMatchRegistrationNumber, matchVendorByRegistrationNumber},
	{models.VendorMatchEmail, matchVendorByEmail},
	{models.VendorMatchCompanyName, matchVendorByCompanyName},
	{models.VendorMatchPhone, matchVendorByPhone},
}

// ResolveVendorAgainst runs the identification cascade over an already-loaded
// vendor slice. First match wins; strategies are tried strictly in order of
// reliability (tax id down to phone digits).
func ResolveVendorAgainst(party *models.ExtractedParty, vendors []*models.Vendor) (*models.Vendor, models.VendorMatchMethod) {
	for _, m := range vendorMatchers {
		if vendor := m.match(party, vendors); vendor != nil {
			return vendor, m.method
		}
	}
	return nil, models.VendorMatchNone
}

// ResolveVendor resolves the extracted supplier against the tenant's vendor
// master. When nothing matches and a tenant context is present, a vendor is
// auto-created from the extracted fields inside the given transaction. With
// no tenant context the resolver only returns name suggestions.
func ResolveVendor(ctx context.Context, tx *gorm.DB, businessId string, party *models.ExtractedParty) (*VendorResolution, error) {
	logger := config.GetLogger()

	var vendors []*models.Vendor
	if err := tx.
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Find(&vendors).Error; err != nil {
		config.LogError(logger, "vendorResolver.go", "ResolveVendor", "load vendors", businessId, err)
		return nil, err
	}

	if vendor, method := ResolveVendorAgainst(party, vendors); vendor != nil {
		MergeVendorIntoParty(vendor, party)
		return &VendorResolution{Found: true, Vendor: vendor, Method: method}, nil
	}

	hasTenant := false
	if id, ok := utils.GetBusinessIdFromContext(ctx); ok && id != "" {
		hasTenant = true
	}

	if !hasTenant {
		// lookup-only mode: suggest close names instead of creating
		return &VendorResolution{
			Found:       false,
			Method:      models.VendorMatchNone,
			Suggestions: suggestVendorsByName(party.CompanyName, vendors),
		}, nil
	}

	if party.CompanyName == "" {
		// nothing to identify the supplier by; leave unresolved
		return &VendorResolution{Found: false, Method: models.VendorMatchNone}, nil
	}

	created, err := models.CreateVendorTx(tx, businessId, &models.NewVendor{
		Name:               party.CompanyName,
		TaxNumber:          party.TaxNumber,
		RegistrationNumber: party.RegistrationNumber,
		Email:              party.Email,
		Phone:              party.Phone,
		Address:            party.Address,
		City:               party.City,
		Country:            party.Country,
		PostalCode:         party.PostalCode,
	})
	if err != nil {
		config.LogError(logger, "vendorResolver.go", "ResolveVendor", "auto-create vendor", party.CompanyName, err)
		return nil, err
	}
	MergeVendorIntoParty(created, party)
	return &VendorResolution{Found: true, Vendor: created, Method: models.VendorMatchAutoCreated}, nil
}

// MergeVendorIntoParty overwrites the extracted supplier fields with the
// master record wherever the master has a non-empty value. Master wins on
// conflict; extraction fills the gaps the master leaves open.
func MergeVendorIntoParty(vendor *models.Vendor, party *models.ExtractedParty) {
	overwrite := func(dst *string, master string) {
		if master != "" {
			*dst = master
		}
	}
	overwrite(&party.CompanyName, vendor.Name)
	overwrite(&party.TaxNumber, vendor.TaxNumber)
	overwrite(&party.RegistrationNumber, vendor.RegistrationNumber)
	overwrite(&party.Email, vendor.Email)
	overwrite(&party.Phone, vendor.Phone)
	overwrite(&party.Address, vendor.Address)
	overwrite(&party.City, vendor.City)
	overwrite(&party.Country, vendor.Country)
	overwrite(&party.PostalCode, vendor.PostalCode)
	party.VendorId = &vendor.ID
}

func normalizeIdNumber(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

func normalizePhoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func matchVendorByTaxNumber(party *models.ExtractedParty, vendors []*models.Vendor) *models.Vendor {
	want := normalizeIdNumber(party.TaxNumber)
	if want == "" {
		return nil
	}
	for _, v := range vendors {
		if normalizeIdNumber(v.TaxNumber) == want {
			return v
		}
	}
	return nil
}

func matchVendorByRegistrationNumber(party *models.ExtractedParty, vendors []*models.Vendor) *models.Vendor {
	want := normalizeIdNumber(party.RegistrationNumber)
	if want == "" {
		return nil
	}
	for _, v := range vendors {
		if normalizeIdNumber(v.RegistrationNumber) == want {
			return v
		}
	}
	return nil
}

func matchVendorByEmail(party *models.ExtractedParty, vendors []*models.Vendor) *models.Vendor {
	want := strings.ToLower(strings.TrimSpace(party.Email))
	if want == "" {
		return nil
	}
	for _, v := range vendors {
		if strings.ToLower(strings.TrimSpace(v.Email)) == want {
			return v
		}
	}
	return nil
}

func matchVendorByCompanyName(party *models.ExtractedParty, vendors []*models.Vendor) *models.Vendor {
	want := strings.ToLower(strings.TrimSpace(party.CompanyName))
	if want == "" {
		return nil
	}
	for _, v := range vendors {
		if strings.ToLower(strings.TrimSpace(v.Name)) == want {
			return v
		}
	}
	return nil
}

func matchVendorByPhone(party *models.ExtractedParty, vendors []*models.Vendor) *models.Vendor {
	want := normalizePhoneDigits(party.Phone)
	if len(want) < phoneMatchDigits {
		return nil
	}
	wantTail := want[len(want)-phoneMatchDigits:]
	for _, v := range vendors {
		have := normalizePhoneDigits(v.Phone)
		if len(have) < phoneMatchDigits {
			continue
		}
		if have[len(have)-phoneMatchDigits:] == wantTail {
			return v
		}
	}
	return nil
}

func suggestVendorsByName(companyName string, vendors []*models.Vendor) []*models.Vendor {
	needle := utils.NormalizeForMatch(companyName)
	if needle == "" {
		return nil
	}
	var suggestions []*models.Vendor
	for _, v := range vendors {
		if strings.Contains(utils.NormalizeForMatch(v.Name), needle) {
			suggestions = append(suggestions, v)
			if len(suggestions) == vendorSuggestionLimit {
				break
			}
		}
	}
	return suggestions
}
