package deletion

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

func confirmTestContext() context.Context {
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 11)
	ctx = utils.SetBusinessIdInContext(ctx, "biz-1")
	ctx = utils.SetBranchIdInContext(ctx, 2)
	ctx = utils.SetCapabilitiesInContext(ctx, []string{
		models.CapabilityRecordDelete,
		models.CapabilityFinancialReverse,
	})
	return ctx
}

func issueConfirmToken(t *testing.T, store *TokenStore, summary CompactSummary) *PreviewToken {
	t.Helper()
	token, err := store.Issue(11, Scope{BusinessId: "biz-1", BranchId: 2}, summary)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func validConfirmRequest(token string) *ConfirmationRequest {
	return &ConfirmationRequest{
		PreviewToken: token,
		Entity:       models.EntityInvoicePayment,
		RecordId:     7,
		Operation:    models.OperationReverse,
		ConfirmText:  "CONFIRM",
		Reason:       "recorded against the wrong invoice",
	}
}

func TestValidateConfirmation_HappyPath(t *testing.T) {
	store := newTestStore(time.Minute)
	token := issueConfirmToken(t, store, testSummary())
	ctx := confirmTestContext()

	validated, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token))
	if err != nil {
		t.Fatal(err)
	}
	if validated.Entity != models.EntityInvoicePayment || validated.RecordId != 7 {
		t.Fatalf("validated = %+v", validated)
	}
	if validated.ExecutionMode != models.ExecutionModeFinancialReversal {
		t.Fatalf("ExecutionMode = %s", validated.ExecutionMode)
	}
	if validated.Reason != "recorded against the wrong invoice" {
		t.Fatalf("Reason = %q", validated.Reason)
	}

	// token consumed on success
	if got, _ := store.Get(token.Token); got != nil {
		t.Fatal("token still valid after successful confirmation")
	}
	if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorPreviewExpired) {
		t.Fatalf("replayed confirmation err = %v, want preview expired", err)
	}
}

func TestValidateConfirmation_MissingToken(t *testing.T) {
	store := newTestStore(time.Minute)
	req := validConfirmRequest("  ")
	if _, err := ValidateConfirmation(confirmTestContext(), store, req); !errors.Is(err, utils.ErrorPreviewRequired) {
		t.Fatalf("err = %v, want preview required", err)
	}
}

func TestValidateConfirmation_UnknownToken(t *testing.T) {
	store := newTestStore(time.Minute)
	req := validConfirmRequest("never-issued")
	if _, err := ValidateConfirmation(confirmTestContext(), store, req); !errors.Is(err, utils.ErrorPreviewExpired) {
		t.Fatalf("err = %v, want preview expired", err)
	}
}

func TestValidateConfirmation_ExpiredToken(t *testing.T) {
	current := time.Date(2020, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStore(time.Second)
	store.now = func() time.Time { return current }

	token := issueConfirmToken(t, store, testSummary())
	// real clock is far past the fake issue time
	if _, err := ValidateConfirmation(confirmTestContext(), store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorPreviewExpired) {
		t.Fatalf("err = %v, want preview expired", err)
	}
}

func TestValidateConfirmation_WrongUser(t *testing.T) {
	store := newTestStore(time.Minute)
	token := issueConfirmToken(t, store, testSummary())

	ctx := confirmTestContext()
	ctx = utils.SetUserIdInContext(ctx, 99)
	if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorPermissionDenied) {
		t.Fatalf("err = %v, want permission denied", err)
	}
}

func TestValidateConfirmation_ScopeChanged(t *testing.T) {
	store := newTestStore(time.Minute)

	t.Run("business", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		ctx := confirmTestContext()
		ctx = utils.SetBusinessIdInContext(ctx, "biz-other")
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorScopeChanged) {
			t.Fatalf("err = %v, want scope changed", err)
		}
	})

	t.Run("branch", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		ctx := confirmTestContext()
		ctx = utils.SetBranchIdInContext(ctx, 9)
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorScopeChanged) {
			t.Fatalf("err = %v, want scope changed", err)
		}
	})
}

func TestValidateConfirmation_RecordMismatch(t *testing.T) {
	store := newTestStore(time.Minute)
	ctx := confirmTestContext()

	token := issueConfirmToken(t, store, testSummary())
	req := validConfirmRequest(token.Token)
	req.RecordId = 8
	if _, err := ValidateConfirmation(ctx, store, req); !errors.Is(err, utils.ErrorPreviewMismatch) {
		t.Fatalf("record mismatch err = %v", err)
	}

	token = issueConfirmToken(t, store, testSummary())
	req = validConfirmRequest(token.Token)
	req.Entity = models.EntityInvoice
	if _, err := ValidateConfirmation(ctx, store, req); !errors.Is(err, utils.ErrorPreviewMismatch) {
		t.Fatalf("entity mismatch err = %v", err)
	}

	token = issueConfirmToken(t, store, testSummary())
	req = validConfirmRequest(token.Token)
	req.Operation = models.OperationDelete
	if _, err := ValidateConfirmation(ctx, store, req); !errors.Is(err, utils.ErrorPreviewMismatch) {
		t.Fatalf("operation mismatch err = %v", err)
	}
}

func TestValidateConfirmation_BlockedSummary(t *testing.T) {
	store := newTestStore(time.Minute)
	summary := testSummary()
	summary.CanProceed = false
	summary.Blockers = []string{"payment is already reversed"}
	token := issueConfirmToken(t, store, summary)

	_, err := ValidateConfirmation(confirmTestContext(), store, validConfirmRequest(token.Token))
	if !errors.Is(err, utils.ErrorBlockedByDependency) {
		t.Fatalf("err = %v, want blocked", err)
	}
	var blocked *utils.BlockedError
	if !errors.As(err, &blocked) || len(blocked.Blockers) != 1 {
		t.Fatalf("blocked detail missing: %v", err)
	}

	// blocked confirmations must not burn the token
	if got, _ := store.Get(token.Token); got == nil {
		t.Fatal("token consumed by a blocked confirmation")
	}
}

func TestValidateConfirmation_PendingResolutionsBlock(t *testing.T) {
	store := newTestStore(time.Minute)

	// No blockers, but dependency actions were surfaced at preview time and
	// not all of them have been executed yet.
	summary := testSummary()
	summary.CanProceed = true
	summary.PendingDependencyResolutions = 3
	token := issueConfirmToken(t, store, summary)

	_, err := ValidateConfirmation(confirmTestContext(), store, validConfirmRequest(token.Token))
	if !errors.Is(err, utils.ErrorBlockedByDependency) {
		t.Fatalf("err = %v, want blocked", err)
	}
	var blocked *utils.BlockedError
	if !errors.As(err, &blocked) || len(blocked.Blockers) == 0 {
		t.Fatalf("blocked detail missing: %v", err)
	}

	// still blocked, so the token survives for a retry after resolving
	if got, _ := store.Get(token.Token); got == nil {
		t.Fatal("token consumed while dependency resolutions were pending")
	}
}

func TestValidateConfirmation_MismatchDiscardsToken(t *testing.T) {
	store := newTestStore(time.Minute)

	t.Run("wrong user", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		ctx := confirmTestContext()
		ctx = utils.SetUserIdInContext(ctx, 99)
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
		if got, _ := store.Get(token.Token); got != nil {
			t.Fatal("token survived a user mismatch")
		}
	})

	t.Run("scope changed", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		ctx := confirmTestContext()
		ctx = utils.SetBusinessIdInContext(ctx, "biz-other")
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorScopeChanged) {
			t.Fatalf("err = %v, want scope changed", err)
		}
		if got, _ := store.Get(token.Token); got != nil {
			t.Fatal("token survived a scope mismatch")
		}
	})

	t.Run("record mismatch", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		req := validConfirmRequest(token.Token)
		req.RecordId = 8
		if _, err := ValidateConfirmation(confirmTestContext(), store, req); !errors.Is(err, utils.ErrorPreviewMismatch) {
			t.Fatalf("err = %v, want preview mismatch", err)
		}
		if got, _ := store.Get(token.Token); got != nil {
			t.Fatal("token survived a record mismatch")
		}
	})
}

func TestValidateConfirmation_GateOrder(t *testing.T) {
	store := newTestStore(time.Minute)

	blockedSummary := func() CompactSummary {
		s := testSummary()
		s.CanProceed = false
		s.Blockers = []string{"payment is already reversed"}
		return s
	}

	t.Run("capability before blockers", func(t *testing.T) {
		token := issueConfirmToken(t, store, blockedSummary())
		ctx := context.Background()
		ctx = utils.SetUserIdInContext(ctx, 11)
		ctx = utils.SetBusinessIdInContext(ctx, "biz-1")
		ctx = utils.SetBranchIdInContext(ctx, 2)
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorPermissionDenied) {
			t.Fatalf("err = %v, want permission denied before blocker reporting", err)
		}
	})

	t.Run("intent before blockers", func(t *testing.T) {
		token := issueConfirmToken(t, store, blockedSummary())
		req := validConfirmRequest(token.Token)
		req.ConfirmText = ""
		if _, err := ValidateConfirmation(confirmTestContext(), store, req); !errors.Is(err, utils.ErrorConfirmationRequired) {
			t.Fatalf("err = %v, want confirmation required before blocker reporting", err)
		}
	})

	t.Run("reason before blockers", func(t *testing.T) {
		token := issueConfirmToken(t, store, blockedSummary())
		req := validConfirmRequest(token.Token)
		req.Reason = ""
		if _, err := ValidateConfirmation(confirmTestContext(), store, req); !errors.Is(err, utils.ErrorReasonRequired) {
			t.Fatalf("err = %v, want reason required before blocker reporting", err)
		}
	})
}

func TestValidateConfirmation_ExplicitIntent(t *testing.T) {
	store := newTestStore(time.Minute)
	ctx := confirmTestContext()

	token := issueConfirmToken(t, store, testSummary())
	req := validConfirmRequest(token.Token)
	req.ConfirmText = "yes please"
	if _, err := ValidateConfirmation(ctx, store, req); !errors.Is(err, utils.ErrorConfirmationRequired) {
		t.Fatalf("err = %v, want confirmation required", err)
	}

	// lowercase confirm is accepted
	req.ConfirmText = "confirm"
	if _, err := ValidateConfirmation(ctx, store, req); err != nil {
		t.Fatalf("lowercase confirm rejected: %v", err)
	}
}

func TestValidateConfirmation_CheckboxSufficesFlag(t *testing.T) {
	store := newTestStore(time.Minute)
	ctx := confirmTestContext()

	token := issueConfirmToken(t, store, testSummary())
	req := validConfirmRequest(token.Token)
	req.ConfirmText = ""
	req.UnderstandsImpact = true

	// flag off: checkbox alone is not enough
	t.Setenv("DELETION_CHECKBOX_SUFFICES", "")
	if _, err := ValidateConfirmation(ctx, store, req); !errors.Is(err, utils.ErrorConfirmationRequired) {
		t.Fatalf("err = %v, want confirmation required", err)
	}

	// flag on: checkbox is accepted
	t.Setenv("DELETION_CHECKBOX_SUFFICES", "true")
	if _, err := ValidateConfirmation(ctx, store, req); err != nil {
		t.Fatalf("checkbox rejected with flag on: %v", err)
	}
}

func TestValidateConfirmation_ReasonRequired(t *testing.T) {
	store := newTestStore(time.Minute)
	token := issueConfirmToken(t, store, testSummary())

	req := validConfirmRequest(token.Token)
	req.Reason = "   "
	if _, err := ValidateConfirmation(confirmTestContext(), store, req); !errors.Is(err, utils.ErrorReasonRequired) {
		t.Fatalf("err = %v, want reason required", err)
	}
}

func TestValidateConfirmation_Capabilities(t *testing.T) {
	store := newTestStore(time.Minute)

	t.Run("no capabilities at all", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		ctx := context.Background()
		ctx = utils.SetUserIdInContext(ctx, 11)
		ctx = utils.SetBusinessIdInContext(ctx, "biz-1")
		ctx = utils.SetBranchIdInContext(ctx, 2)
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
	})

	t.Run("delete without financial capability", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		ctx := context.Background()
		ctx = utils.SetUserIdInContext(ctx, 11)
		ctx = utils.SetBusinessIdInContext(ctx, "biz-1")
		ctx = utils.SetBranchIdInContext(ctx, 2)
		ctx = utils.SetCapabilitiesInContext(ctx, []string{models.CapabilityRecordDelete})
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); !errors.Is(err, utils.ErrorPermissionDenied) {
			t.Fatalf("err = %v, want permission denied for financial entity", err)
		}
	})

	t.Run("admin implies all", func(t *testing.T) {
		token := issueConfirmToken(t, store, testSummary())
		ctx := context.Background()
		ctx = utils.SetUserIdInContext(ctx, 11)
		ctx = utils.SetBusinessIdInContext(ctx, "biz-1")
		ctx = utils.SetBranchIdInContext(ctx, 2)
		ctx = utils.SetIsAdminInContext(ctx, true)
		if _, err := ValidateConfirmation(ctx, store, validConfirmRequest(token.Token)); err != nil {
			t.Fatalf("admin rejected: %v", err)
		}
	})
}
