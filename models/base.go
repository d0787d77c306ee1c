package models

import (
	"log"

	"bitbucket.org/mmdatafocus/garage_backend/config"
)

// MigrateTable bootstraps the schema idempotently: create-if-missing tables
// and add-column-if-missing columns via AutoMigrate. Bootstrap runs at
// startup, never inside business transactions, so DDL can't interleave with
// financial postings.
func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Account{}, &AccountJournal{}, &AccountTransaction{},
		&ServiceInvoice{}, &InvoiceItem{}, &InvoicePayment{},
		&JobCard{}, &JobLaborLine{}, &JobPartLine{},
		&Purchase{}, &PurchaseLine{},
		&StockItem{}, &StockMovement{},
		&Vehicle{}, &Customer{},
		&PaymentMode{}, &ServiceType{},
		&CustomerAdvance{}, &AdvanceAdjustment{},
		&PayrollEntry{},
		&AuditLog{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

// TableColumns is the schema capability probe: older deployments may lack
// optional columns, so callers check before referencing one in raw SQL.
func TableColumns(tableName string) ([]string, error) {
	db := config.GetDB()
	var columns []string
	err := db.Raw(
		"SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?",
		tableName,
	).Scan(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// TableHasColumn probes one column.
func TableHasColumn(tableName, columnName string) (bool, error) {
	columns, err := TableColumns(tableName)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if c == columnName {
			return true, nil
		}
	}
	return false, nil
}
