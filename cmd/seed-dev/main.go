// seed-dev loads a demo tenant with a receiving warehouse, a small item
// catalog with supplier aliases and a handful of vendors, so uploaded
// invoices have something to reconcile against.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"gorm.io/gorm"
)

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

type seedItem struct {
	number      string
	shortNo     int
	description string
	searchText  string
	unit        string
	aliases     []string
}

var seedItems = []seedItem{
	{"CP-15", 101, "Copper Pipe 15mm", "copper pipe tube 15mm plumbing", "m", []string{"SUP-CU-15"}},
	{"CP-22", 102, "Copper Pipe 22mm", "copper pipe tube 22mm plumbing", "m", nil},
	{"BV-20", 103, "Brass Ball Valve 20mm", "brass ball valve 20mm shutoff", "pcs", []string{"SUP-VALVE-B"}},
	{"CEM-50", 104, "Portland Cement 50kg", "portland cement bag 50kg", "bag", nil},
	{"REB-12", 105, "Steel Rebar 12mm", "steel rebar reinforcement bar 12mm", "pcs", nil},
}

var seedVendors = []models.NewVendor{
	{
		Name:      "Acme Building Supplies",
		TaxNumber: "TAX-1001",
		Email:     "sales@acme-supplies.example",
		Phone:     "+95 9 4567 8901",
		City:      "Yangon",
	},
	{
		Name:               "Bolt & Fastener Co",
		RegistrationNumber: "REG 2002",
		Phone:              "+95 9 1122 3344",
	},
	{
		Name:  "Cement Works Ltd",
		Email: "orders@cementworks.example",
	},
}

func main() {
	businessId := getenv("SEED_BUSINESS_ID", "demo")

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)
	ctx = utils.SetUserNameInContext(ctx, "seed-dev")
	dbCtx := db.WithContext(ctx)

	warehouse := models.Warehouse{
		BusinessId:  businessId,
		Name:        "Main Warehouse",
		Code:        "MAIN",
		IsReceiving: utils.NewTrue(),
		IsActive:    utils.NewTrue(),
	}
	if err := dbCtx.
		Where("business_id = ? AND code = ?", businessId, warehouse.Code).
		FirstOrCreate(&warehouse).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed warehouse: %v\n", err)
		os.Exit(1)
	}

	for _, s := range seedItems {
		shortNo := s.shortNo
		item := models.CatalogItem{
			BusinessId:  businessId,
			ItemNumber:  s.number,
			ShortItemNo: &shortNo,
			Description: s.description,
			SearchText:  s.searchText,
			Unit:        s.unit,
			IsActive:    utils.NewTrue(),
		}
		if err := dbCtx.
			Where("business_id = ? AND item_number = ?", businessId, s.number).
			FirstOrCreate(&item).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed item %s: %v\n", s.number, err)
			os.Exit(1)
		}
		for _, alias := range s.aliases {
			record := models.ItemAlias{
				BusinessId:    businessId,
				CatalogItemId: item.ID,
				AliasCode:     alias,
			}
			if err := dbCtx.
				Where("business_id = ? AND alias_code = ?", businessId, alias).
				FirstOrCreate(&record).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to seed alias %s: %v\n", alias, err)
				os.Exit(1)
			}
		}
	}

	for i := range seedVendors {
		input := seedVendors[i]
		var existing models.Vendor
		err := dbCtx.
			Where("business_id = ? AND name = ?", businessId, input.Name).
			First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to check vendor %s: %v\n", input.Name, err)
			os.Exit(1)
		}
		if _, err := models.CreateVendor(ctx, &input); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed vendor %s: %v\n", input.Name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded business %q: 1 warehouse, %d items, %d vendors\n", businessId, len(seedItems), len(seedVendors))
}
