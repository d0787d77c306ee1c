package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

type User struct {
	ID           int          `gorm:"primary_key" json:"id"`
	BusinessId   string       `gorm:"index;not null" json:"business_id"`
	BranchId     int          `gorm:"index" json:"branch_id"`
	Name         string       `gorm:"size:100;not null" json:"name"`
	Email        string       `gorm:"size:255;not null;index" json:"email"`
	PasswordHash string       `gorm:"size:255;not null" json:"-"`
	Role         string       `gorm:"size:32;not null;default:staff" json:"role"`
	// Comma-separated permission keys, e.g. "record.delete,financial.reverse".
	Capabilities string       `gorm:"size:512" json:"capabilities"`
	IsAdmin      bool         `gorm:"default:false" json:"is_admin"`
	Status       RecordStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) GetId() int {
	return u.ID
}

func (u *User) CapabilityList() []string {
	if u.Capabilities == "" {
		return nil
	}
	parts := strings.Split(u.Capabilities, ",")
	caps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			caps = append(caps, p)
		}
	}
	return caps
}

func GetUser(ctx context.Context, id int) (*User, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[User](ctx, businessId, id)
}
