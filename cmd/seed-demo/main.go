// seed-demo populates a business with a small demo catalog, two
// promotional schemes and a few draft invoices so the report has
// something to show.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo -business demo-business
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/promo_backend/config"
	"bitbucket.org/mmdatafocus/promo_backend/models"
	"bitbucket.org/mmdatafocus/promo_backend/utils"
	"github.com/shopspring/decimal"
)

func main() {
	businessId := flag.String("business", "demo-business", "business id to seed")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	ctx = utils.SetBusinessIdInContext(ctx, *businessId)
	ctx = utils.SetUserIdInContext(ctx, 1)

	for _, group := range []string{"Beverages", "Snacks"} {
		if _, err := models.CreateItemGroup(ctx, &models.NewItemGroup{Name: group}); err != nil {
			fmt.Printf("item group %q: %v\n", group, err)
		}
	}

	items := []models.NewItem{
		{ItemCode: "BEV-001", Name: "Green Tea", ItemGroup: "Beverages"},
		{ItemCode: "BEV-002", Name: "Coffee", ItemGroup: "Beverages"},
		{ItemCode: "SNK-001", Name: "Potato Chips", ItemGroup: "Snacks"},
	}
	for i := range items {
		if _, err := models.CreateItem(ctx, &items[i]); err != nil {
			fmt.Printf("item %q: %v\n", items[i].ItemCode, err)
		}
	}

	customers := []models.NewCustomer{
		{Name: "Golden Valley Mart", CustomerGroup: "Retail", Territory: "Yangon"},
		{Name: "Shwe La Min Store", CustomerGroup: "Retail", Territory: "Mandalay"},
		{Name: "City Wholesale", CustomerGroup: "Wholesale", Territory: "Yangon"},
	}
	for i := range customers {
		if _, err := models.CreateCustomer(ctx, &customers[i]); err != nil {
			fmt.Printf("customer %q: %v\n", customers[i].Name, err)
		}
	}

	suppliers := []models.NewSupplier{
		{Name: "Ayeyarwady Trading", SupplierGroup: "Distributor"},
		{Name: "Mandalay Imports", SupplierGroup: "Importer"},
	}
	for i := range suppliers {
		if _, err := models.CreateSupplier(ctx, &suppliers[i]); err != nil {
			fmt.Printf("supplier %q: %v\n", suppliers[i].Name, err)
		}
	}

	schemes := []models.NewPromotionalScheme{
		{
			Name:               "Retail Beverage Discount",
			PartySide:          models.PartySideSelling,
			ApplyOn:            models.ApplyOnItemGroup,
			ItemGroups:         scopeRows("item_group", "Beverages"),
			CustomerGroups:     scopeRows("customer_group", "Retail"),
			Qualification:      models.PromoQualificationMinimumAmount,
			MinimumAmount:      decimal.NewFromInt(50000),
			DiscountPercentage: decimal.NewFromInt(10),
		},
		{
			Name:          "Chips Volume Deal",
			PartySide:     models.PartySideSelling,
			ApplyOn:       models.ApplyOnItemCode,
			ItemCodes:     scopeRows("item_code", "SNK-001"),
			Qualification: models.PromoQualificationMinimumQuantity,
			MinimumQuantity: decimal.NewFromInt(20),
			FreeQuantity:    decimal.NewFromInt(2),
		},
	}
	for i := range schemes {
		if _, err := models.CreatePromotionalScheme(ctx, &schemes[i]); err != nil {
			fmt.Printf("scheme %q: %v\n", schemes[i].Name, err)
		}
	}

	invoiceDate := dateString("2026-08-01")
	invoices := []models.NewSalesInvoice{
		{
			InvoiceNumber: "SI-0001",
			CustomerName:  "Golden Valley Mart",
			InvoiceDate:   invoiceDate,
			Details: []models.NewSalesInvoiceDetail{
				{ItemCode: "BEV-001", Name: "Green Tea", Qty: decimal.NewFromInt(30), UnitRate: decimal.NewFromInt(2000)},
				{ItemCode: "SNK-001", Name: "Potato Chips", Qty: decimal.NewFromInt(25), UnitRate: decimal.NewFromInt(800)},
			},
		},
		{
			InvoiceNumber: "SI-0002",
			CustomerName:  "City Wholesale",
			InvoiceDate:   invoiceDate,
			Details: []models.NewSalesInvoiceDetail{
				{ItemCode: "BEV-002", Name: "Coffee", Qty: decimal.NewFromInt(10), UnitRate: decimal.NewFromInt(3500)},
			},
		},
	}
	for i := range invoices {
		invoice, err := models.CreateSalesInvoice(ctx, &invoices[i])
		if err != nil {
			fmt.Printf("invoice %q: %v\n", invoices[i].InvoiceNumber, err)
			continue
		}
		if _, notices, err := models.ConfirmSalesInvoice(ctx, invoice.ID); err != nil {
			fmt.Printf("confirm %q: %v\n", invoices[i].InvoiceNumber, err)
		} else {
			for _, notice := range notices {
				fmt.Println(notice)
			}
		}
	}

	fmt.Printf("seeded business %q\n", *businessId)
}

func scopeRows(key string, values ...string) models.ScopeRows {
	var rows []map[string]string
	for _, v := range values {
		rows = append(rows, map[string]string{key: v})
	}
	b, _ := json.Marshal(rows)
	return models.ScopeRows(b)
}

func dateString(s string) *models.MyDateString {
	var d models.MyDateString
	_ = d.UnmarshalJSON([]byte(`"` + s + `"`))
	return &d
}
