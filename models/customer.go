package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

type Customer struct {
	ID         int          `gorm:"primary_key" json:"id"`
	BusinessId string       `gorm:"index;not null" json:"business_id"`
	Name       string       `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone      string       `gorm:"size:32;index" json:"phone"`
	Email      string       `gorm:"size:255" json:"email"`
	Address    string       `gorm:"type:text" json:"address"`
	GstNumber  string       `gorm:"size:32" json:"gst_number"`
	Status     RecordStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`

	DeletedBy    int        `json:"deleted_by"`
	DeleteReason string     `gorm:"size:255" json:"delete_reason"`
	DeletedAt    *time.Time `json:"deleted_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) GetId() int {
	return c.ID
}

// Validate checks master-data fields before create/update.
func (c *Customer) Validate() error {
	if c.Name == "" {
		return errors.New("customer name is required")
	}
	if c.Phone != "" {
		if err := utils.ValidatePhoneNumber(c.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	if c.Email != "" && !utils.IsValidEmail(c.Email) {
		return errors.New("invalid email address")
	}
	return nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[Customer](ctx, businessId, id)
}
