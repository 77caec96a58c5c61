package models

import (
	"bitbucket.org/mmdatafocus/promo_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&ItemGroup{},
		&Item{},
		&Customer{},
		&Supplier{},
		&PromotionalScheme{},
		&SalesInvoice{},
		&SalesInvoiceDetail{},
		&PurchaseInvoice{},
		&PurchaseInvoiceDetail{},
	)
}
