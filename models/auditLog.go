package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// AuditLog is the durable trail of deletion/reversal activity. Writing it is
// always best-effort: a broken audit sink must never roll back or block the
// business mutation it describes.
type AuditLog struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	BranchId      int       `gorm:"index" json:"branch_id"`
	Module        string    `gorm:"size:64;not null" json:"module"`
	Action        string    `gorm:"size:64;not null" json:"action"`
	ReferenceType string    `gorm:"size:64;index:idx_audit_reference" json:"reference_type"`
	ReferenceId   int       `gorm:"index:idx_audit_reference" json:"reference_id"`
	Details       string    `gorm:"type:text" json:"details"`
	UserId        int       `gorm:"index" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CorrelationId string    `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RecordAudit writes an audit row and fans it out to the audit topic.
// Every failure path is swallowed after logging to the fallback channel.
func RecordAudit(ctx context.Context, module, action, referenceType string, referenceId int, details string) {
	logger := config.GetLogger()

	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	branchId, _ := utils.GetBranchIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	entry := AuditLog{
		BusinessId:    businessId,
		BranchId:      branchId,
		Module:        module,
		Action:        action,
		ReferenceType: referenceType,
		ReferenceId:   referenceId,
		Details:       details,
		UserId:        userId,
		UserName:      userName,
		CorrelationId: correlationId,
	}

	db := config.GetDB()
	if db == nil {
		config.LogError(logger, "auditLog.go", "RecordAudit", "db not connected", entry, utils.ErrorRecordNotFound)
		return
	}
	// Deliberately NOT the caller's transaction: the business tx must be able
	// to commit even when the audit insert fails, and vice versa an audit row
	// must not vanish with a rolled-back sibling.
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		config.LogError(logger, "auditLog.go", "RecordAudit", "insert audit row", entry, err)
	}

	if _, err := config.PublishAuditEvent(ctx, config.AuditEvent{
		BusinessId:    businessId,
		BranchId:      branchId,
		Module:        module,
		Action:        action,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
		Details:       details,
		UserId:        userId,
		CorrelationId: correlationId,
		OccurredAt:    time.Now().UTC(),
	}); err != nil {
		// Fan-out is optional; log at the fallback channel and move on.
		config.LogError(logger, "auditLog.go", "RecordAudit", "publish audit event", nil, err)
	}
}
