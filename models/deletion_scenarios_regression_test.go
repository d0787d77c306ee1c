package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/deletion"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"bitbucket.org/mmdatafocus/garage_backend/workflow"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Regression scenarios for the deletion/reversal engine against a real
// MySQL. Gated: point DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME at a
// disposable database and set INTEGRATION_TESTS=1.

func requireIntegration(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires MySQL)")
	}
}

func setupTenant(t *testing.T) context.Context {
	t.Helper()

	if config.GetDB() == nil {
		config.ConnectDatabaseWithRetry()
		models.MigrateTable()
	}

	businessId := fmt.Sprintf("biz-%d", time.Now().UnixNano())
	ctx := context.Background()
	ctx = utils.SetBusinessIdInContext(ctx, businessId)
	ctx = utils.SetBranchIdInContext(ctx, 1)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test User")
	ctx = utils.SetCapabilitiesInContext(ctx, []string{
		models.CapabilityRecordDelete,
		models.CapabilityFinancialReverse,
	})

	if err := models.EnsureDefaultAccounts(config.GetDB(), businessId); err != nil {
		t.Fatalf("seed accounts: %v", err)
	}
	return ctx
}

func mustBusinessId(t *testing.T, ctx context.Context) string {
	t.Helper()
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok {
		t.Fatal("no business in context")
	}
	return businessId
}

func createFinalizedInvoice(t *testing.T, ctx context.Context) *models.ServiceInvoice {
	t.Helper()
	businessId := mustBusinessId(t, ctx)

	customer := models.Customer{BusinessId: businessId, Name: "Scenario Customer", Status: models.StatusActive}
	if err := config.GetDB().Create(&customer).Error; err != nil {
		t.Fatal(err)
	}

	invoice := models.ServiceInvoice{
		BusinessId:    businessId,
		BranchId:      1,
		InvoiceNumber: fmt.Sprintf("INV-%d", time.Now().UnixNano()),
		InvoiceDate:   time.Now(),
		CustomerId:    customer.ID,
		TaxableAmount: decimal.NewFromInt(1000),
		CgstAmount:    decimal.NewFromInt(90),
		SgstAmount:    decimal.NewFromInt(90),
		GrandTotal:    decimal.NewFromInt(1180),
		Status:        models.InvoiceStatusFinalized,
	}
	if err := config.GetDB().Create(&invoice).Error; err != nil {
		t.Fatal(err)
	}
	return &invoice
}

// Scenario: finalizing a GST invoice posts one journal with the AR debit
// balanced by revenue and both tax credits, and re-posting is a no-op.
func TestInvoiceFinalizePosting_BalancedAndIdempotent(t *testing.T) {
	requireIntegration(t)
	ctx := setupTenant(t)
	businessId := mustBusinessId(t, ctx)

	invoice := createFinalizedInvoice(t, ctx)

	var journal *models.AccountJournal
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		journal, err = workflow.PostInvoiceFinalize(tx, businessId, invoice)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(journal.Transactions) != 4 {
		t.Fatalf("transaction lines = %d, want 4", len(journal.Transactions))
	}
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range journal.Transactions {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	if !debits.Equal(credits) || !debits.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("debits %s / credits %s, want 1180 both", debits, credits)
	}

	// idempotent re-post
	var again *models.AccountJournal
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		again, err = workflow.PostInvoiceFinalize(tx, businessId, invoice)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != journal.ID {
		t.Fatalf("re-post created journal %d, existing was %d", again.ID, journal.ID)
	}

	var count int64
	config.GetDB().Model(&models.AccountJournal{}).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?",
			businessId, string(models.RefTypeInvoiceFinalize), invoice.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("journal count = %d, want 1", count)
	}
}

// Scenario: an unreversed payment blocks invoice cancellation; reversing
// it through the dependency action clears the blocker, and the confirmed
// cancel mirrors the finalize journal.
func TestInvoiceCancel_BlockedUntilPaymentReversed(t *testing.T) {
	requireIntegration(t)
	ctx := setupTenant(t)
	businessId := mustBusinessId(t, ctx)
	engine := workflow.NewEngine()

	invoice := createFinalizedInvoice(t, ctx)
	payment := models.InvoicePayment{
		BusinessId:  businessId,
		BranchId:    1,
		InvoiceId:   invoice.ID,
		PaymentDate: time.Now(),
		Amount:      decimal.NewFromInt(500),
		PaymentMode: "cash",
		EntryType:   models.EntryTypePayment,
	}
	if err := config.GetDB().Create(&payment).Error; err != nil {
		t.Fatal(err)
	}
	if err := config.GetDB().Model(&models.ServiceInvoice{}).
		Where("id = ?", invoice.ID).
		Update("amount_paid", decimal.NewFromInt(500)).Error; err != nil {
		t.Fatal(err)
	}

	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := workflow.PostInvoiceFinalize(tx, businessId, invoice); err != nil {
			return err
		}
		_, err := workflow.PostPaymentReceipt(tx, businessId, &payment, invoice)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	// Preview: blocked with a reverse-payment action offered.
	preview, err := engine.Preview(ctx, models.EntityInvoice, invoice.ID, models.OperationCancel)
	if err != nil {
		t.Fatal(err)
	}
	if preview.Summary.CanProceed {
		t.Fatal("cancel allowed with an unreversed payment")
	}
	if preview.Summary.PendingDependencyResolutions == 0 {
		t.Fatal("no pending dependency resolution offered")
	}

	// Reverse the payment.
	result, err := engine.ExecuteDependencyAction(ctx, models.EntityInvoicePayment, models.OperationReverse, payment.ID, "entered against wrong invoice")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.ReversalJournalIds) == 0 {
		t.Fatal("payment reversal mirrored no journals")
	}

	var reversedPayment models.InvoicePayment
	if err := config.GetDB().Where("id = ?", payment.ID).First(&reversedPayment).Error; err != nil {
		t.Fatal(err)
	}
	if !reversedPayment.IsReversed {
		t.Fatal("payment not flagged reversed")
	}

	// Reversing twice must fail.
	_, err = engine.ExecuteDependencyAction(ctx, models.EntityInvoicePayment, models.OperationReverse, payment.ID, "again")
	if !errors.Is(err, utils.ErrorAlreadyReversed) {
		t.Fatalf("double reversal err = %v, want already reversed", err)
	}

	// Fresh preview can proceed; confirm executes the cancel.
	preview, err = engine.Preview(ctx, models.EntityInvoice, invoice.ID, models.OperationCancel)
	if err != nil {
		t.Fatal(err)
	}
	if !preview.Summary.CanProceed {
		t.Fatalf("still blocked after reversal: %v", preview.Summary.Blockers)
	}

	confirmResult, err := engine.Confirm(ctx, &deletion.ConfirmationRequest{
		PreviewToken: preview.Token,
		Entity:       models.EntityInvoice,
		RecordId:     invoice.ID,
		Operation:    models.OperationCancel,
		ConfirmText:  "CONFIRM",
		Reason:       "duplicate billing",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(confirmResult.ReversalJournalIds) == 0 {
		t.Fatal("invoice cancel mirrored no journals")
	}

	var cancelled models.ServiceInvoice
	if err := config.GetDB().Where("id = ?", invoice.ID).First(&cancelled).Error; err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.InvoiceStatusCancelled {
		t.Fatalf("invoice status = %s, want CANCELLED", cancelled.Status)
	}

	// Every journal pair for this tenant must net to zero.
	var net decimal.Decimal
	row := config.GetDB().Raw(`
		SELECT COALESCE(SUM(at.debit) - SUM(at.credit), 0)
		FROM account_transactions at
		JOIN account_journals aj ON aj.id = at.journal_id
		WHERE aj.business_id = ?
	`, businessId).Row()
	if err := row.Scan(&net); err != nil {
		t.Fatal(err)
	}
	if !net.IsZero() {
		t.Fatalf("ledger net = %s, want 0 after full reversal", net)
	}
}

// Scenario: a labor line comes off an OPEN job card but not a CLOSED one.
func TestJobLaborLineDelete_RequiresOpenCard(t *testing.T) {
	requireIntegration(t)
	ctx := setupTenant(t)
	businessId := mustBusinessId(t, ctx)
	engine := workflow.NewEngine()

	makeCardWithLine := func(status models.JobCardStatus) (*models.JobCard, *models.JobLaborLine) {
		card := models.JobCard{
			BusinessId: businessId,
			BranchId:   1,
			JobNumber:  fmt.Sprintf("JOB-%d", time.Now().UnixNano()),
			OpenedAt:   time.Now(),
			VehicleId:  1,
			Status:     status,
		}
		if err := config.GetDB().Create(&card).Error; err != nil {
			t.Fatal(err)
		}
		line := models.JobLaborLine{
			BusinessId:  businessId,
			JobCardId:   card.ID,
			Description: "brake adjustment",
			Hours:       decimal.NewFromInt(2),
			Rate:        decimal.NewFromInt(300),
			Amount:      decimal.NewFromInt(600),
			Status:      models.StatusActive,
		}
		if err := config.GetDB().Create(&line).Error; err != nil {
			t.Fatal(err)
		}
		return &card, &line
	}

	// OPEN card: delete succeeds.
	_, openLine := makeCardWithLine(models.JobCardStatusOpen)
	if _, err := engine.ExecuteDependencyAction(ctx, models.EntityJobLaborLine, models.OperationDelete, openLine.ID, ""); err != nil {
		t.Fatalf("delete on OPEN card failed: %v", err)
	}
	var deleted models.JobLaborLine
	if err := config.GetDB().Where("id = ?", openLine.ID).First(&deleted).Error; err != nil {
		t.Fatal(err)
	}
	if deleted.Status != models.StatusDeleted {
		t.Fatalf("line status = %s, want DELETED", deleted.Status)
	}

	// CLOSED card: blocked with the reopen hint.
	_, closedLine := makeCardWithLine(models.JobCardStatusClosed)
	_, err := engine.ExecuteDependencyAction(ctx, models.EntityJobLaborLine, models.OperationDelete, closedLine.ID, "")
	if !errors.Is(err, utils.ErrorBlockedByDependency) {
		t.Fatalf("err = %v, want blocked", err)
	}
	var blocked *utils.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	found := false
	for _, b := range blocked.Blockers {
		if strings.Contains(b, "reopen the job first") {
			found = true
		}
	}
	if !found {
		t.Fatalf("blockers = %v, want reopen hint", blocked.Blockers)
	}
}
