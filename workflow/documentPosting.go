package workflow

import (
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"gorm.io/gorm"
)

// Posting builders: each maps one business document onto its balanced
// journal shape. All of them go through PostJournal, so they inherit the
// balance check and reference idempotency.

// PostInvoiceFinalize posts a finalized invoice:
//
//	Dr Accounts Receivable   grand total
//	Cr Sales Revenue         taxable amount
//	Cr Output CGST           cgst (omitted when zero)
//	Cr Output SGST           sgst (omitted when zero)
func PostInvoiceFinalize(tx *gorm.DB, businessId string, invoice *models.ServiceInvoice) (*models.AccountJournal, error) {
	lines := []JournalLine{
		{
			AccountCode: models.AccountCodeAccountsReceivable,
			Description: fmt.Sprintf("Invoice %s", invoice.InvoiceNumber),
			Debit:       invoice.GrandTotal,
			CustomerId:  invoice.CustomerId,
		},
		{
			AccountCode: models.AccountCodeSalesRevenue,
			Description: fmt.Sprintf("Service revenue %s", invoice.InvoiceNumber),
			Credit:      invoice.TaxableAmount,
			CustomerId:  invoice.CustomerId,
		},
	}
	if invoice.CgstAmount.IsPositive() {
		lines = append(lines, JournalLine{
			AccountCode: models.AccountCodeOutputCGST,
			Description: fmt.Sprintf("CGST on %s", invoice.InvoiceNumber),
			Credit:      invoice.CgstAmount,
			CustomerId:  invoice.CustomerId,
		})
	}
	if invoice.SgstAmount.IsPositive() {
		lines = append(lines, JournalLine{
			AccountCode: models.AccountCodeOutputSGST,
			Description: fmt.Sprintf("SGST on %s", invoice.InvoiceNumber),
			Credit:      invoice.SgstAmount,
			CustomerId:  invoice.CustomerId,
		})
	}

	return PostJournal(tx, businessId, JournalInput{
		JournalDate:   invoice.InvoiceDate,
		Narration:     fmt.Sprintf("Invoice %s finalized", invoice.InvoiceNumber),
		ReferenceType: models.RefTypeInvoiceFinalize,
		ReferenceId:   invoice.ID,
		CustomerId:    invoice.CustomerId,
		BranchId:      invoice.BranchId,
		Lines:         lines,
	})
}

// PostPaymentReceipt posts a payment against an invoice: cash in, AR down.
func PostPaymentReceipt(tx *gorm.DB, businessId string, payment *models.InvoicePayment, invoice *models.ServiceInvoice) (*models.AccountJournal, error) {
	cashAccount := models.AccountCodeCashInHand
	if payment.PaymentMode == "bank" || payment.PaymentMode == "upi" || payment.PaymentMode == "card" {
		cashAccount = models.AccountCodeBank
	}

	return PostJournal(tx, businessId, JournalInput{
		JournalDate:   payment.PaymentDate,
		Narration:     fmt.Sprintf("Payment received for invoice %s", invoice.InvoiceNumber),
		ReferenceType: models.RefTypePaymentReceipt,
		ReferenceId:   payment.ID,
		CustomerId:    invoice.CustomerId,
		BranchId:      payment.BranchId,
		Lines: []JournalLine{
			{
				AccountCode: cashAccount,
				Description: fmt.Sprintf("Receipt PAY-%d", payment.ID),
				Debit:       payment.Amount,
				CustomerId:  invoice.CustomerId,
			},
			{
				AccountCode: models.AccountCodeAccountsReceivable,
				Description: fmt.Sprintf("Invoice %s settled", invoice.InvoiceNumber),
				Credit:      payment.Amount,
				CustomerId:  invoice.CustomerId,
			},
		},
	})
}

// PostAdvanceReceipt posts money received ahead of invoicing as a
// liability to the customer.
func PostAdvanceReceipt(tx *gorm.DB, businessId string, advance *models.CustomerAdvance) (*models.AccountJournal, error) {
	cashAccount := models.AccountCodeCashInHand
	if advance.PaymentMode == "bank" || advance.PaymentMode == "upi" || advance.PaymentMode == "card" {
		cashAccount = models.AccountCodeBank
	}

	return PostJournal(tx, businessId, JournalInput{
		JournalDate:   advance.ReceiptDate,
		Narration:     fmt.Sprintf("Customer advance ADV-%d received", advance.ID),
		ReferenceType: models.RefTypeAdvanceReceipt,
		ReferenceId:   advance.ID,
		CustomerId:    advance.CustomerId,
		BranchId:      advance.BranchId,
		Lines: []JournalLine{
			{
				AccountCode: cashAccount,
				Description: fmt.Sprintf("Advance ADV-%d", advance.ID),
				Debit:       advance.Amount,
				CustomerId:  advance.CustomerId,
			},
			{
				AccountCode: models.AccountCodeCustomerAdvances,
				Description: fmt.Sprintf("Advance ADV-%d held", advance.ID),
				Credit:      advance.Amount,
				CustomerId:  advance.CustomerId,
			},
		},
	})
}

// PostPurchaseReceipt posts parts received into inventory against the
// supplier payable.
func PostPurchaseReceipt(tx *gorm.DB, businessId string, purchase *models.Purchase) (*models.AccountJournal, error) {
	return PostJournal(tx, businessId, JournalInput{
		JournalDate:   purchase.PurchaseDate,
		Narration:     fmt.Sprintf("Purchase %s from %s", purchase.PurchaseNumber, purchase.SupplierName),
		ReferenceType: models.RefTypePurchaseReceipt,
		ReferenceId:   purchase.ID,
		BranchId:      purchase.BranchId,
		Lines: []JournalLine{
			{
				AccountCode: models.AccountCodeInventory,
				Description: fmt.Sprintf("Parts received %s", purchase.PurchaseNumber),
				Debit:       purchase.TotalAmount,
			},
			{
				AccountCode: models.AccountCodeAccountsPayable,
				Description: fmt.Sprintf("Payable to %s", purchase.SupplierName),
				Credit:      purchase.TotalAmount,
			},
		},
	})
}

// PostPayrollAccrual posts one period's gross pay as an expense against
// the payable.
func PostPayrollAccrual(tx *gorm.DB, businessId string, entry *models.PayrollEntry) (*models.AccountJournal, error) {
	return PostJournal(tx, businessId, JournalInput{
		JournalDate:   entry.CreatedAt,
		Narration:     fmt.Sprintf("Payroll accrual %s %d/%02d", entry.StaffName, entry.PeriodYear, entry.PeriodMonth),
		ReferenceType: models.RefTypePayrollAccrual,
		ReferenceId:   entry.ID,
		BranchId:      entry.BranchId,
		Lines: []JournalLine{
			{
				AccountCode: models.AccountCodePayrollExpense,
				Description: fmt.Sprintf("Gross pay %s", entry.StaffName),
				Debit:       entry.GrossAmount,
			},
			{
				AccountCode: models.AccountCodeAccountsPayable,
				Description: fmt.Sprintf("Payable to %s", entry.StaffName),
				Credit:      entry.GrossAmount,
			},
		},
	})
}
