package reports

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// DeletionActivityRow is one audit-trail entry of deletion/reversal work.
type DeletionActivityRow struct {
	Action        string    `json:"action"`
	ReferenceType string    `json:"reference_type"`
	ReferenceId   int       `json:"reference_id"`
	Details       string    `json:"details"`
	UserId        int       `json:"user_id"`
	UserName      string    `json:"user_name"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DeletionActivitySummary groups the period's activity by action.
type DeletionActivitySummary struct {
	FromDate     time.Time             `json:"from_date"`
	ToDate       time.Time             `json:"to_date"`
	ActionCounts map[string]int        `json:"action_counts"`
	Rows         []DeletionActivityRow `json:"rows"`
}

// GetDeletionActivityReport lists who deleted or reversed what in the
// period, newest first.
func GetDeletionActivityReport(ctx context.Context, fromDate, toDate time.Time, limit int) (*DeletionActivitySummary, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	started := time.Now()
	defer logSlowReport(ctx, "deletion_activity", started, nil)

	if limit <= 0 || limit > 500 {
		limit = 200
	}

	db := config.GetDB()
	var logs []models.AuditLog
	err := db.WithContext(ctx).
		Where("business_id = ? AND module = ? AND created_at >= ? AND created_at <= ?",
			businessId, "deletion", fromDate, toDate).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	summary := &DeletionActivitySummary{
		FromDate:     fromDate,
		ToDate:       toDate,
		ActionCounts: make(map[string]int),
	}
	for _, l := range logs {
		summary.ActionCounts[l.Action]++
		summary.Rows = append(summary.Rows, DeletionActivityRow{
			Action:        l.Action,
			ReferenceType: l.ReferenceType,
			ReferenceId:   l.ReferenceId,
			Details:       l.Details,
			UserId:        l.UserId,
			UserName:      l.UserName,
			OccurredAt:    l.CreatedAt,
		})
	}
	return summary, nil
}
