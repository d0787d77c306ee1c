package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// JobCard tracks one vehicle's workshop visit: labor lines and part lines
// accumulate while the card is OPEN, then the card is closed and invoiced.
type JobCard struct {
	ID         int           `gorm:"primary_key" json:"id"`
	BusinessId string        `gorm:"index;not null" json:"business_id"`
	BranchId   int           `gorm:"index" json:"branch_id"`
	JobNumber  string        `gorm:"size:64;not null;index" json:"job_number"`
	OpenedAt   time.Time     `gorm:"not null" json:"opened_at"`
	VehicleId  int           `gorm:"index;not null" json:"vehicle_id"`
	CustomerId int           `gorm:"index" json:"customer_id"`
	Odometer   int           `json:"odometer"`
	Complaint  string        `gorm:"type:text" json:"complaint"`
	Status     JobCardStatus `gorm:"size:20;not null;default:OPEN" json:"status"`

	DeletedBy    int        `json:"deleted_by"`
	DeleteReason string     `gorm:"size:255" json:"delete_reason"`
	DeletedAt    *time.Time `json:"deleted_at"`

	LaborLines []JobLaborLine `gorm:"foreignKey:JobCardId" json:"labor_lines"`
	PartLines  []JobPartLine  `gorm:"foreignKey:JobCardId" json:"part_lines"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type JobLaborLine struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	JobCardId     int             `gorm:"index;not null" json:"job_card_id"`
	ServiceTypeId int             `gorm:"index" json:"service_type_id"`
	Description   string          `gorm:"size:255" json:"description"`
	Hours         decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"hours"`
	Rate          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	MechanicId    int             `json:"mechanic_id"`
	Status        RecordStatus    `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// JobPartLine issues a stock item onto the job. The issuing stock movement
// is linked so deleting the line can return the quantity.
type JobPartLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	JobCardId       int             `gorm:"index;not null" json:"job_card_id"`
	StockItemId     int             `gorm:"index;not null" json:"stock_item_id"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Rate            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	StockMovementId int             `gorm:"index" json:"stock_movement_id"`
	Status          RecordStatus    `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (j *JobCard) GetId() int {
	return j.ID
}

// ActiveLineCounts returns how many labor and part lines are still active.
func (j *JobCard) ActiveLineCounts() (labor int, parts int) {
	for _, l := range j.LaborLines {
		if l.Status == StatusActive {
			labor++
		}
	}
	for _, p := range j.PartLines {
		if p.Status == StatusActive {
			parts++
		}
	}
	return labor, parts
}

func GetJobCard(ctx context.Context, id int) (*JobCard, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[JobCard](ctx, businessId, id, "LaborLines", "PartLines")
}
