package models

import (
	"log"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Vendor{},
		&CatalogItem{}, &ItemAlias{},
		&Warehouse{},
		&StockPosition{}, &LedgerEntry{},
		&ProcessedDocument{}, &InvoiceItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
