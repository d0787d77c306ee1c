package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// Vehicle is customer master data. Vehicles with service history are never
// hard-deleted; they are soft-deleted or disabled depending on financial
// history.
type Vehicle struct {
	ID             int          `gorm:"primary_key" json:"id"`
	BusinessId     string       `gorm:"index;not null" json:"business_id"`
	RegistrationNo string       `gorm:"size:32;not null;index" json:"registration_no"`
	CustomerId     int          `gorm:"index;not null" json:"customer_id"`
	Make           string       `gorm:"size:64" json:"make"`
	Model          string       `gorm:"size:64" json:"model"`
	ManufactureYear int         `json:"manufacture_year"`
	Status         RecordStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`

	DeletedBy    int        `json:"deleted_by"`
	DeleteReason string     `gorm:"size:255" json:"delete_reason"`
	DeletedAt    *time.Time `json:"deleted_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Vehicle) GetId() int {
	return v.ID
}

func GetVehicle(ctx context.Context, id int) (*Vehicle, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[Vehicle](ctx, businessId, id)
}
