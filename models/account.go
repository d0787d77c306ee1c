package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"gorm.io/gorm"
)

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

// Account is one head in the chart of accounts.
type Account struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Code        string          `gorm:"size:32;not null;index:idx_account_code,unique,composite:business_id" json:"code"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	MainType    AccountMainType `gorm:"size:32;not null" json:"main_type"`
	IsSystem    bool            `gorm:"default:false" json:"is_system"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// System account codes referenced by posting workflows.
const (
	AccountCodeAccountsReceivable = "1200"
	AccountCodeCashInHand         = "1000"
	AccountCodeBank               = "1100"
	AccountCodeInventory          = "1400"
	AccountCodeCustomerAdvances   = "2100"
	AccountCodeOutputCGST         = "2310"
	AccountCodeOutputSGST         = "2320"
	AccountCodeAccountsPayable    = "2000"
	AccountCodeSalesRevenue       = "4000"
	AccountCodePayrollExpense     = "5200"
	AccountCodePurchaseExpense    = "5000"
)

// defaultGarageChart is the chart of accounts every new tenant starts with.
var defaultGarageChart = []Account{
	{Code: AccountCodeCashInHand, Name: "Cash In Hand", MainType: AccountMainTypeAsset, IsSystem: true},
	{Code: AccountCodeBank, Name: "Bank", MainType: AccountMainTypeAsset, IsSystem: true},
	{Code: AccountCodeAccountsReceivable, Name: "Accounts Receivable", MainType: AccountMainTypeAsset, IsSystem: true},
	{Code: AccountCodeInventory, Name: "Parts Inventory", MainType: AccountMainTypeAsset, IsSystem: true},
	{Code: AccountCodeAccountsPayable, Name: "Accounts Payable", MainType: AccountMainTypeLiability, IsSystem: true},
	{Code: AccountCodeCustomerAdvances, Name: "Customer Advances", MainType: AccountMainTypeLiability, IsSystem: true},
	{Code: AccountCodeOutputCGST, Name: "Output CGST", MainType: AccountMainTypeLiability, IsSystem: true},
	{Code: AccountCodeOutputSGST, Name: "Output SGST", MainType: AccountMainTypeLiability, IsSystem: true},
	{Code: AccountCodeSalesRevenue, Name: "Sales Revenue", MainType: AccountMainTypeIncome, IsSystem: true},
	{Code: AccountCodePurchaseExpense, Name: "Purchases", MainType: AccountMainTypeExpense, IsSystem: true},
	{Code: AccountCodePayrollExpense, Name: "Payroll Expense", MainType: AccountMainTypeExpense, IsSystem: true},
}

// EnsureDefaultAccounts seeds the garage chart of accounts for a tenant.
// Idempotent: existing codes are left untouched.
func EnsureDefaultAccounts(tx *gorm.DB, businessId string) error {
	for _, acc := range defaultGarageChart {
		var count int64
		if err := tx.Model(&Account{}).
			Where("business_id = ? AND code = ?", businessId, acc.Code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		seed := acc
		seed.BusinessId = businessId
		seed.IsActive = true
		if err := tx.Create(&seed).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetAccountByCode resolves a system account inside the tenant scope.
func GetAccountByCode(tx *gorm.DB, businessId, code string) (*Account, error) {
	var account Account
	err := tx.Where("business_id = ? AND code = ?", businessId, code).First(&account).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &account, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[Account](ctx, businessId, id)
}
