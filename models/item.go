package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
)

// CatalogItem is an inventory master record. Owned by external master-data
// management; reconciliation only reads it.
type CatalogItem struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"index;not null" json:"business_id" binding:"required"`
	ItemNumber  string    `gorm:"size:50;index;not null" json:"item_number" binding:"required"`
	ShortItemNo *int      `gorm:"index" json:"short_item_no"`
	Description string    `gorm:"size:255" json:"description"`
	SearchText  string    `gorm:"size:255" json:"search_text"`
	Unit        string    `gorm:"size:20" json:"unit"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ItemAlias maps a supplier-specific code to a catalog item, so the same
// physical item can be matched under whatever code each supplier prints.
type ItemAlias struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id" binding:"required"`
	CatalogItemId int       `gorm:"index;not null" json:"catalog_item_id" binding:"required"`
	AliasCode     string    `gorm:"size:50;index;not null" json:"alias_code" binding:"required"`
	VendorId      *int      `gorm:"index" json:"vendor_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItemAlias struct {
	CatalogItemId int    `json:"catalog_item_id" binding:"required"`
	AliasCode     string `json:"alias_code" binding:"required"`
	VendorId      *int   `json:"vendor_id"`
}

// ListActiveCatalogItems loads the tenant's active items for cascade matching.
func ListActiveCatalogItems(ctx context.Context, businessId string) ([]*CatalogItem, error) {
	var items []*CatalogItem
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func ListItemAliases(ctx context.Context, businessId string) ([]*ItemAlias, error) {
	var aliases []*ItemAlias
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Find(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}

func CreateItemAlias(ctx context.Context, input *NewItemAlias) (*ItemAlias, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	// the alias must point at an existing item of the same tenant
	if err := utils.ValidateResourceId[CatalogItem](ctx, businessId, input.CatalogItemId); err != nil {
		return nil, errors.New("catalog item not found")
	}
	if err := utils.ValidateUnique[ItemAlias](ctx, businessId, "alias_code", input.AliasCode, 0); err != nil {
		return nil, err
	}
	alias := ItemAlias{
		BusinessId:    businessId,
		CatalogItemId: input.CatalogItemId,
		AliasCode:     input.AliasCode,
		VendorId:      input.VendorId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&alias).Error; err != nil {
		return nil, err
	}
	return &alias, nil
}

func GetCatalogItem(ctx context.Context, id int) (*CatalogItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[CatalogItem](ctx, businessId, id)
}
