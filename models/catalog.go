package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMode is a tenant-configurable tender type (cash, bank transfer,
// mobile wallet). Payments store the mode code, not the row id, so renaming
// a mode never rewrites history.
type PaymentMode struct {
	ID         int          `gorm:"primary_key" json:"id"`
	BusinessId string       `gorm:"index:idx_payment_mode_code,unique;not null" json:"business_id"`
	Code       string       `gorm:"index:idx_payment_mode_code,unique;size:32;not null" json:"code"`
	Name       string       `gorm:"size:64;not null" json:"name"`
	Status     RecordStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`

	DeletedBy    int        `json:"deleted_by"`
	DeleteReason string     `gorm:"size:255" json:"delete_reason"`
	DeletedAt    *time.Time `json:"deleted_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *PaymentMode) GetId() int {
	return m.ID
}

// ServiceType is a catalog entry for billable labor (oil change, engine
// overhaul). Labor lines reference it for rate defaults and reporting.
type ServiceType struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Name        string          `gorm:"size:128;not null" json:"name"`
	DefaultRate decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_rate"`
	Status      RecordStatus    `gorm:"size:20;not null;default:ACTIVE" json:"status"`

	DeletedBy    int        `json:"deleted_by"`
	DeleteReason string     `gorm:"size:255" json:"delete_reason"`
	DeletedAt    *time.Time `json:"deleted_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *ServiceType) GetId() int {
	return s.ID
}

var defaultPaymentModes = []PaymentMode{
	{Code: "CASH", Name: "Cash"},
	{Code: "BANK", Name: "Bank Transfer"},
	{Code: "WALLET", Name: "Mobile Wallet"},
}

// EnsureDefaultPaymentModes seeds the standard tender types for a tenant.
// Idempotent: existing codes are left untouched.
func EnsureDefaultPaymentModes(tx *gorm.DB, businessId string) error {
	for _, mode := range defaultPaymentModes {
		var count int64
		if err := tx.Model(&PaymentMode{}).
			Where("business_id = ? AND code = ?", businessId, mode.Code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		seed := mode
		seed.BusinessId = businessId
		seed.Status = StatusActive
		if err := tx.Create(&seed).Error; err != nil {
			return err
		}
	}
	return nil
}

var defaultServiceTypeNames = []string{
	"General Service",
	"Engine Repair",
	"Body Work",
}

// EnsureDefaultServiceTypes seeds the starter labor catalog at the given
// hourly rate. Idempotent: existing names are left untouched.
func EnsureDefaultServiceTypes(tx *gorm.DB, businessId string, defaultRate decimal.Decimal) error {
	for _, name := range defaultServiceTypeNames {
		var count int64
		if err := tx.Model(&ServiceType{}).
			Where("business_id = ? AND name = ?", businessId, name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		seed := ServiceType{
			BusinessId:  businessId,
			Name:        name,
			DefaultRate: defaultRate,
			Status:      StatusActive,
		}
		if err := tx.Create(&seed).Error; err != nil {
			return err
		}
	}
	return nil
}
