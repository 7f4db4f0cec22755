package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Vendor is the supplier master record. Created either by an operator or
// automatically when reconciliation meets an unknown supplier. Identity
// fields are immutable once created; enrichment fields may be filled later.
type Vendor struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	BusinessId         string    `gorm:"index;not null" json:"business_id" binding:"required"`
	VendorNumber       string    `gorm:"size:20;index;not null" json:"vendor_number"`
	Name               string    `gorm:"size:200;not null" json:"name" binding:"required"`
	TaxNumber          string    `gorm:"size:50;index" json:"tax_number"`
	RegistrationNumber string    `gorm:"size:50;index" json:"registration_number"`
	Email              string    `gorm:"size:100" json:"email"`
	Phone              string    `gorm:"size:30" json:"phone"`
	Address            string    `gorm:"size:255" json:"address"`
	City               string    `gorm:"size:100" json:"city"`
	Country            string    `gorm:"size:100" json:"country"`
	PostalCode         string    `gorm:"size:20" json:"postal_code"`
	Notes              string    `gorm:"type:text" json:"notes"`
	IsActive           *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendor struct {
	Name               string `json:"name" binding:"required"`
	TaxNumber          string `json:"tax_number"`
	RegistrationNumber string `json:"registration_number"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	Country            string `json:"country"`
	PostalCode         string `json:"postal_code"`
	Notes              string `json:"notes"`
}

func (input *NewVendor) validate(ctx context.Context, businessId string, id int) error {
	// validate unique name
	if err := utils.ValidateUnique[Vendor](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// validate email
	if input.Email != "" {
		if !utils.IsValidEmail(input.Email) {
			return errors.New("invalid email")
		}
		if err := utils.ValidateUnique[Vendor](ctx, businessId, "email", input.Email, id); err != nil {
			return err
		}
	}
	// validate tax number
	if input.TaxNumber != "" {
		if err := utils.ValidateUnique[Vendor](ctx, businessId, "tax_number", input.TaxNumber, id); err != nil {
			return err
		}
	}
	return nil
}

// NextVendorNumber returns the next sequential vendor number for the tenant,
// zero-padded to 8 digits. The tenant's current maximum is read under a row
// lock so concurrent creates cannot hand out the same number. A max that does
// not parse as an integer restarts the sequence at 00000001.
func NextVendorNumber(tx *gorm.DB, businessId string) (string, error) {
	var current sql.NullString
	err := tx.Model(&Vendor{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		Select("MAX(vendor_number)").
		Scan(&current).Error
	if err != nil {
		return "", err
	}

	next := 1
	if current.Valid && current.String != "" {
		if n, perr := strconv.Atoi(current.String); perr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%08d", next), nil
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var vendor *Vendor
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		vendor, txErr = CreateVendorTx(tx, businessId, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

// CreateVendorTx inserts a vendor inside the caller's transaction. Used both
// by the public create flow and by reconciliation's auto-create step.
func CreateVendorTx(tx *gorm.DB, businessId string, input *NewVendor) (*Vendor, error) {
	vendorNumber, err := NextVendorNumber(tx, businessId)
	if err != nil {
		return nil, err
	}
	vendor := Vendor{
		BusinessId:         businessId,
		VendorNumber:       vendorNumber,
		Name:               input.Name,
		TaxNumber:          input.TaxNumber,
		RegistrationNumber: input.RegistrationNumber,
		Email:              input.Email,
		Phone:              input.Phone,
		Address:            input.Address,
		City:               input.City,
		Country:            input.Country,
		PostalCode:         input.PostalCode,
		Notes:              input.Notes,
		IsActive:           utils.NewTrue(),
	}
	if err := tx.Create(&vendor).Error; err != nil {
		return nil, err
	}
	_ = utils.ClearVendorCache(businessId)
	return &vendor, nil
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Vendor](ctx, businessId, id)
}

// ListActiveVendors loads the tenant's active vendors for cascade matching.
// The list is cached; every vendor mutation clears the cache.
func ListActiveVendors(ctx context.Context, businessId string) ([]*Vendor, error) {
	var vendors []*Vendor
	cacheKey := utils.VendorCacheKey(businessId)
	if found, err := config.GetRedisObject(cacheKey, &vendors); err == nil && found {
		return vendors, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Find(&vendors).Error; err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(cacheKey, vendors, utils.GetCacheLifespan())
	return vendors, nil
}

// SearchVendorsByName does a partial, case-insensitive name search. Used for
// suggestion lists when no tenant context allows auto-create.
func SearchVendorsByName(ctx context.Context, businessId string, name string, limit int) ([]*Vendor, error) {
	if limit <= 0 {
		limit = config.SearchLimit
	}
	var vendors []*Vendor
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Where("LOWER(name) LIKE ?", "%"+vendorSearchNeedle(name)+"%").
		Limit(limit).
		Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

// vendorSearchNeedle lowercases and trims only. The stored column keeps its
// punctuation, so stripping it from the needle would make names like
// "Acme, Inc." unmatchable.
func vendorSearchNeedle(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func ToggleActiveVendor(ctx context.Context, id int, isActive bool) (*Vendor, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	vendor, err := utils.FetchModel[Vendor](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(vendor).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	_ = utils.ClearVendorCache(businessId)
	return vendor, nil
}
