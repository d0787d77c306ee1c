package workflow

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

func TestActionRegistry_CoversEveryPreviewableOperation(t *testing.T) {
	r := NewActionRegistry()

	cases := []struct {
		entity    models.EntityType
		operation models.Operation
	}{
		{models.EntityInvoice, models.OperationCancel},
		{models.EntityInvoicePayment, models.OperationReverse},
		{models.EntityJobCard, models.OperationDelete},
		{models.EntityJobLaborLine, models.OperationDelete},
		{models.EntityJobPartLine, models.OperationDelete},
		{models.EntityPurchase, models.OperationDelete},
		{models.EntityVehicle, models.OperationDelete},
		{models.EntityCustomer, models.OperationDelete},
		{models.EntityCustomerAdvance, models.OperationReverse},
		{models.EntityPayrollEntry, models.OperationReverse},
		{models.EntityStockItem, models.OperationDelete},
		{models.EntityPaymentMode, models.OperationDelete},
		{models.EntityServiceType, models.OperationDelete},
		{models.EntityAccountJournal, models.OperationAuto},
		{models.EntityAccountJournal, models.OperationReverse},
	}
	for _, tc := range cases {
		if !r.Supports(tc.entity, tc.operation) {
			t.Errorf("no executor for (%s, %s)", tc.entity, tc.operation)
		}
	}
}

func TestActionRegistry_UnsupportedPairsFailFast(t *testing.T) {
	r := NewActionRegistry()

	ctx := utils.SetBusinessIdInContext(context.Background(), "biz-1")

	// A pair with no executor must fail before touching any storage.
	_, err := r.Execute(ctx, models.EntityInvoicePayment, models.OperationDelete, 1, "x")
	if !errors.Is(err, utils.ErrorActionNotSupported) {
		t.Fatalf("err = %v, want action not supported", err)
	}
	_, err = r.Execute(ctx, models.EntityType("unknown_thing"), models.OperationDelete, 1, "x")
	if !errors.Is(err, utils.ErrorActionNotSupported) {
		t.Fatalf("err = %v, want action not supported", err)
	}
}

func TestActionRegistry_RequiresTenantScope(t *testing.T) {
	r := NewActionRegistry()

	_, err := r.Execute(context.Background(), models.EntityInvoice, models.OperationCancel, 1, "x")
	if !errors.Is(err, utils.ErrorPermissionDenied) {
		t.Fatalf("err = %v, want permission denied without business scope", err)
	}
}

func TestDefaultOperationFor(t *testing.T) {
	cases := []struct {
		entity models.EntityType
		want   models.Operation
	}{
		{models.EntityInvoicePayment, models.OperationReverse},
		{models.EntityCustomerAdvance, models.OperationReverse},
		{models.EntityPayrollEntry, models.OperationReverse},
		{models.EntityAccountJournal, models.OperationReverse},
		{models.EntityInvoice, models.OperationCancel},
		{models.EntityJobCard, models.OperationDelete},
		{models.EntityStockItem, models.OperationDelete},
		{models.EntityVehicle, models.OperationDelete},
		{models.EntityPaymentMode, models.OperationDelete},
		{models.EntityServiceType, models.OperationDelete},
	}
	for _, tc := range cases {
		if got := defaultOperationFor(tc.entity); got != tc.want {
			t.Errorf("defaultOperationFor(%s) = %s, want %s", tc.entity, got, tc.want)
		}
	}
}
