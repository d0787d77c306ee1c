package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/deletion"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// Engine is the two-phase deletion/reversal service: Preview analyzes and
// issues a token, Confirm validates the token and executes. One instance
// per process, injected into the HTTP layer.
type Engine struct {
	registry *deletion.Registry
	tokens   *deletion.TokenStore
	actions  *ActionRegistry
}

func NewEngine() *Engine {
	return &Engine{
		registry: deletion.NewRegistry(),
		tokens:   deletion.NewTokenStore(),
		actions:  NewActionRegistry(),
	}
}

// PreviewResult pairs the full summary with the token the client must
// carry back to Confirm.
type PreviewResult struct {
	Summary *deletion.DeletionSummary `json:"summary"`
	Token   string                    `json:"preview_token"`
	TTLSecs int                       `json:"token_ttl_seconds"`
}

// Preview analyzes the record and, when the caller could conceivably
// proceed, issues a preview token. Blocked summaries also get a token:
// the blockers are re-checked at confirm time, so a user who clears them
// through dependency actions does not need a second full round-trip.
func (e *Engine) Preview(ctx context.Context, entity models.EntityType, recordId int, operation models.Operation) (*PreviewResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorPermissionDenied
	}
	branchId, _ := utils.GetBranchIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)

	scope := deletion.Scope{BusinessId: businessId, BranchId: branchId}
	summary, err := e.registry.Analyze(ctx, entity, recordId, scope, deletion.Options{Operation: operation})
	if err != nil {
		return nil, err
	}

	token, err := e.tokens.Issue(userId, scope, summary.Compact())
	if err != nil {
		return nil, err
	}

	models.RecordAudit(ctx, "deletion", "preview", string(entity), recordId,
		"severity="+string(summary.Severity))

	return &PreviewResult{
		Summary: summary,
		Token:   token.Token,
		TTLSecs: int(config.PreviewTokenTTL().Seconds()),
	}, nil
}

// Confirm validates the full confirmation gate, consumes the token, and
// executes. When execution fails after the token was consumed, the token
// is restored so the user can fix the problem and retry without a fresh
// preview - as long as the TTL has not run out.
func (e *Engine) Confirm(ctx context.Context, req *deletion.ConfirmationRequest) (*ActionResult, error) {
	validated, err := deletion.ValidateConfirmation(ctx, e.tokens, req)
	if err != nil {
		return nil, err
	}

	operation := validated.Operation
	if operation == models.OperationAuto || operation == "" {
		operation = defaultOperationFor(validated.Entity)
	}

	result, err := e.actions.Execute(ctx, validated.Entity, operation, validated.RecordId, validated.Reason)
	if err != nil {
		// no side effect committed; give the token back for a retry
		if restoreErr := e.tokens.Restore(validated.Token); restoreErr != nil {
			config.LogError(config.GetLogger(), "engine.go", "Confirm",
				"restore preview token after failed execution", req.PreviewToken, restoreErr)
		}
		return nil, err
	}
	return result, nil
}

// ExecuteDependencyAction runs one cascade step (reverse this payment,
// delete this line) ahead of the parent confirm. Same capability gate as
// the parent operation, own transaction, no token required: the parent
// token's blockers are re-validated at confirm time anyway.
func (e *Engine) ExecuteDependencyAction(ctx context.Context, entity models.EntityType, operation models.Operation, recordId int, reason string) (*ActionResult, error) {
	if !utils.HasCapability(ctx, models.CapabilityRecordDelete) {
		return nil, utils.ErrorPermissionDenied
	}
	if entity.IsFinancial() && !utils.HasCapability(ctx, models.CapabilityFinancialReverse) {
		return nil, utils.ErrorPermissionDenied
	}
	if entity.RequiresReason() && reason == "" {
		return nil, utils.ErrorReasonRequired
	}
	return e.actions.Execute(ctx, entity, operation, recordId, reason)
}

// defaultOperationFor maps an entity to its natural operation when the
// caller left it to the engine.
func defaultOperationFor(entity models.EntityType) models.Operation {
	switch entity {
	case models.EntityInvoicePayment, models.EntityCustomerAdvance,
		models.EntityPayrollEntry, models.EntityAccountJournal:
		return models.OperationReverse
	case models.EntityInvoice:
		return models.OperationCancel
	default:
		return models.OperationDelete
	}
}
