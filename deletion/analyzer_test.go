package deletion

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// Dispatch-level checks only; per-entity analysis runs against a real
// database in the regression suite.

func TestRegistry_UnsupportedEntity(t *testing.T) {
	r := NewRegistry()
	scope := Scope{BusinessId: "biz-1", BranchId: 2}

	_, err := r.Analyze(context.Background(), models.EntityType("warranty_claim"), 1, scope, Options{})
	if !errors.Is(err, utils.ErrorUnsupportedEntity) {
		t.Fatalf("err = %v, want unsupported entity", err)
	}

	// journals are reversed through dependency actions, never previewed
	_, err = r.Analyze(context.Background(), models.EntityAccountJournal, 1, scope, Options{})
	if !errors.Is(err, utils.ErrorUnsupportedEntity) {
		t.Fatalf("journal err = %v, want unsupported entity", err)
	}
}

func TestRegistry_RejectsNonPositiveRecordId(t *testing.T) {
	r := NewRegistry()
	scope := Scope{BusinessId: "biz-1", BranchId: 2}

	for _, id := range []int{0, -5} {
		if _, err := r.Analyze(context.Background(), models.EntityInvoice, id, scope, Options{}); !errors.Is(err, utils.ErrorRecordNotFound) {
			t.Errorf("Analyze(invoice, %d) err = %v, want record not found", id, err)
		}
	}
}

func TestRegistry_CoversEveryPreviewableEntity(t *testing.T) {
	r := NewRegistry()

	entities := []models.EntityType{
		models.EntityInvoice,
		models.EntityInvoicePayment,
		models.EntityJobCard,
		models.EntityJobLaborLine,
		models.EntityJobPartLine,
		models.EntityPurchase,
		models.EntityVehicle,
		models.EntityCustomer,
		models.EntityCustomerAdvance,
		models.EntityPayrollEntry,
		models.EntityStockItem,
		models.EntityPaymentMode,
		models.EntityServiceType,
	}
	for _, entity := range entities {
		if _, ok := r.analyzers[entity]; !ok {
			t.Errorf("no analyzer registered for %s", entity)
		}
	}
}
