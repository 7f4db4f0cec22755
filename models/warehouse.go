package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Warehouse struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name        string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Code        string    `gorm:"size:20" json:"code"`
	Address     string    `gorm:"size:255" json:"address"`
	IsReceiving *bool     `gorm:"not null;default:false" json:"is_receiving"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetReceivingWarehouse returns the tenant's designated receiving warehouse,
// or nil (no error) when none is configured. Matched items are then left
// unreceived and the report carries a warning instead.
func GetReceivingWarehouse(tx *gorm.DB, businessId string) (*Warehouse, error) {
	var warehouse Warehouse
	err := tx.
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Where("is_receiving = ?", true).
		Order("id").
		First(&warehouse).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &warehouse, nil
}
