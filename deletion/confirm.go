package deletion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// ConfirmationRequest is the user's second call in the two-phase protocol:
// analyze issued a preview token, this carries it back with explicit intent.
type ConfirmationRequest struct {
	PreviewToken string `json:"preview_token" binding:"required"`

	Entity    models.EntityType `json:"entity" binding:"required"`
	RecordId  int               `json:"record_id" binding:"required"`
	Operation models.Operation  `json:"operation"`

	// ConfirmText must equal CONFIRM (case-insensitive) unless the checkbox
	// shortcut is enabled.
	ConfirmText         string `json:"confirm_text"`
	UnderstandsImpact   bool   `json:"understands_impact"`
	Reason              string `json:"reason"`
	AcknowledgeSeverity bool   `json:"acknowledge_severity"`
}

// ValidatedRequest is the outcome of a successful confirmation: the
// executor runs from this, never from raw request fields.
type ValidatedRequest struct {
	Entity    models.EntityType
	RecordId  int
	Operation models.Operation

	UserId     int
	BusinessId string
	BranchId   int

	Reason        string
	ExecutionMode models.ExecutionMode
	Token         *PreviewToken
}

const confirmKeyword = "CONFIRM"

// ValidateConfirmation runs the full gate, in order, before any mutation:
//
//  1. the actor needs record.delete, plus financial.reverse for money
//  2. a preview token must be presented
//  3. the token must exist in the store
//  4. the token must not be expired (an expired one is discarded)
//  5. the token must belong to the confirming actor, tenant and branch;
//     any mismatch discards it
//  6. the entity/record/operation must match the preview; mismatch
//     discards the token
//  7. explicit intent: CONFIRM text (or checkbox when allowed)
//  8. financial and job-card operations need a written reason
//  9. the stored summary must carry no blockers and no dependency
//     actions still pending resolution
//  10. consume the token: it will never validate again
//
// A mismatched token is burned on the spot - a stale or forged request
// must never leave a redeemable credential behind. The caller holds the
// returned token and may Restore it if its transaction rolls back before
// any side effect.
func ValidateConfirmation(ctx context.Context, store *TokenStore, req *ConfirmationRequest) (*ValidatedRequest, error) {
	if !utils.HasCapability(ctx, models.CapabilityRecordDelete) {
		return nil, utils.ErrorPermissionDenied
	}
	if req.Entity.IsFinancial() && !utils.HasCapability(ctx, models.CapabilityFinancialReverse) {
		return nil, utils.ErrorPermissionDenied
	}

	if strings.TrimSpace(req.PreviewToken) == "" {
		return nil, utils.ErrorPreviewRequired
	}

	token, err := store.Get(req.PreviewToken)
	if err != nil {
		return nil, err
	}
	if token == nil {
		// unknown or already consumed; either way the user must re-preview
		return nil, utils.ErrorPreviewExpired
	}
	if token.Expired(time.Now()) {
		discard(store, req.PreviewToken)
		return nil, utils.ErrorPreviewExpired
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	if token.UserId != userId {
		discard(store, req.PreviewToken)
		return nil, utils.ErrorPermissionDenied
	}

	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	branchId, _ := utils.GetBranchIdFromContext(ctx)
	if token.BusinessId != businessId || token.BranchId != branchId {
		discard(store, req.PreviewToken)
		return nil, utils.ErrorScopeChanged
	}

	operation := req.Operation
	if operation == "" {
		operation = token.Operation
	}
	if token.Entity != req.Entity || token.RecordId != req.RecordId || token.Operation != operation {
		discard(store, req.PreviewToken)
		return nil, utils.ErrorPreviewMismatch
	}

	if !hasExplicitIntent(req) {
		return nil, utils.ErrorConfirmationRequired
	}

	reason := strings.TrimSpace(req.Reason)
	if req.Entity.RequiresReason() && reason == "" {
		return nil, utils.ErrorReasonRequired
	}

	// The stored summary gates here; executors still re-derive live state.
	if !token.Summary.CanProceed || token.Summary.PendingDependencyResolutions > 0 {
		blockers := append([]string{}, token.Summary.Blockers...)
		if n := token.Summary.PendingDependencyResolutions; n > 0 {
			blockers = append(blockers, fmt.Sprintf("%d dependency action(s) must be resolved before this operation", n))
		}
		return nil, utils.NewBlockedError(blockers)
	}

	consumed, err := store.Consume(req.PreviewToken)
	if err != nil {
		return nil, err
	}
	if consumed == nil {
		// lost the race to a concurrent confirm with the same token
		return nil, utils.ErrorPreviewExpired
	}

	return &ValidatedRequest{
		Entity:        token.Entity,
		RecordId:      token.RecordId,
		Operation:     operation,
		UserId:        userId,
		BusinessId:    businessId,
		BranchId:      branchId,
		Reason:        reason,
		ExecutionMode: token.Summary.ExecutionMode,
		Token:         consumed,
	}, nil
}

// discard burns a token that failed validation. The store error, if any,
// is irrelevant: the caller is already returning a rejection.
func discard(store *TokenStore, key string) {
	_, _ = store.Consume(key)
}

func hasExplicitIntent(req *ConfirmationRequest) bool {
	if strings.EqualFold(strings.TrimSpace(req.ConfirmText), confirmKeyword) {
		return true
	}
	return req.UnderstandsImpact && config.DeletionCheckboxSuffices()
}
