package reports

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/promo_backend/models"
	"bitbucket.org/mmdatafocus/promo_backend/utils"
	"github.com/shopspring/decimal"
)

func testScheme(name string) *models.PromotionalScheme {
	return &models.PromotionalScheme{
		Name:               name,
		PartySide:          models.PartySideSelling,
		ApplyOn:            models.ApplyOnItemCode,
		Qualification:      models.PromoQualificationMinimumAmount,
		MinimumAmount:      decimal.NewFromInt(50000),
		DiscountPercentage: decimal.NewFromInt(10),
		IsActive:           utils.NewTrue(),
	}
}

func restrictedScope(parties ...string) *models.PartyScope {
	scope := &models.PartyScope{
		Customers:      map[string]bool{},
		CustomerGroups: map[string]bool{},
		Territories:    map[string]bool{},
		Suppliers:      map[string]bool{},
		SupplierGroups: map[string]bool{},
		Parties:        map[string]bool{},
	}
	for _, p := range parties {
		scope.Customers[p] = true
		scope.Parties[p] = true
	}
	return scope
}

func unrestrictedScope() *models.PartyScope {
	return restrictedScope()
}

func TestBuildSchemeRowsRestrictedParties(t *testing.T) {
	scheme := testScheme("Retail Deal")
	scheme.ItemCodes = models.ScopeRows(`["BEV-001", "BEV-002"]`)
	scope := restrictedScope("Golden Valley Mart", "Shwe La Min Store")

	totals := map[totalsKey]partyTotals{
		{PartyName: "Golden Valley Mart", ItemCode: "BEV-001"}: {TotalAmount: decimal.NewFromInt(60000), TotalQty: decimal.NewFromInt(30)},
	}
	rows := buildSchemeRows(scheme, scope, []string{"BEV-001", "BEV-002"}, totals)

	// 2 parties x 2 resolved items
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	// parties sorted, items sorted
	if rows[0].PartyName != "Golden Valley Mart" || rows[0].ItemOrGroup != "BEV-001" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}

	// a restricted party with no activity still shows, with zero totals
	var quiet *PromotionalSchemeReportRow
	for _, row := range rows {
		if row.PartyName == "Shwe La Min Store" {
			quiet = row
			break
		}
	}
	if quiet == nil {
		t.Fatal("restricted party without activity missing from report")
	}
	if !quiet.TotalAmount.IsZero() || !quiet.TotalQty.IsZero() {
		t.Errorf("quiet party totals should be zero, got %s / %s", quiet.TotalAmount, quiet.TotalQty)
	}
	if quiet.Eligibility != models.EligibilityStatusNotEligible {
		t.Error("quiet party must not be eligible")
	}

	// the active item cell met the 50000 threshold
	if rows[0].Eligibility != models.EligibilityStatusEligible {
		t.Error("cell at 60000 should be eligible")
	}
}

func TestBuildSchemeRowsPerItemTotals(t *testing.T) {
	// each item cell carries only its own total, not the party-wide sum
	scheme := testScheme("Split Deal")
	scheme.ItemCodes = models.ScopeRows(`["ITEM-A", "ITEM-B"]`)
	scope := restrictedScope("Golden Valley Mart")

	totals := map[totalsKey]partyTotals{
		{PartyName: "Golden Valley Mart", ItemCode: "ITEM-A"}: {TotalAmount: decimal.NewFromInt(30000), TotalQty: decimal.NewFromInt(15)},
		{PartyName: "Golden Valley Mart", ItemCode: "ITEM-B"}: {TotalAmount: decimal.NewFromInt(30000), TotalQty: decimal.NewFromInt(15)},
	}
	rows := buildSchemeRows(scheme, scope, []string{"ITEM-A", "ITEM-B"}, totals)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if !row.TotalAmount.Equal(decimal.NewFromInt(30000)) {
			t.Errorf("%s total = %s, want 30000", row.ItemOrGroup, row.TotalAmount)
		}
		// 30000 each against the 50000 minimum
		if row.Eligibility != models.EligibilityStatusNotEligible {
			t.Errorf("%s should not be eligible on its own cell", row.ItemOrGroup)
		}
	}
}

func TestBuildSchemeRowsLazyAll(t *testing.T) {
	scheme := testScheme("Open Deal")
	scope := unrestrictedScope()

	// unrestricted scheme materializes only observed parties; with no
	// item restriction the "All" row folds the party's item cells
	totals := map[totalsKey]partyTotals{
		{PartyName: "City Wholesale", ItemCode: "BEV-001"}:     {TotalAmount: decimal.NewFromInt(50000), TotalQty: decimal.NewFromInt(6)},
		{PartyName: "City Wholesale", ItemCode: "SNK-001"}:     {TotalAmount: decimal.NewFromInt(30000), TotalQty: decimal.NewFromInt(4)},
		{PartyName: "Golden Valley Mart", ItemCode: "BEV-001"}: {TotalAmount: decimal.NewFromInt(1000), TotalQty: decimal.NewFromInt(1)},
	}
	rows := buildSchemeRows(scheme, scope, nil, totals)
	if len(rows) != 2 {
		t.Fatalf("expected 2 observed rows, got %d", len(rows))
	}
	if rows[0].PartyName != "City Wholesale" || rows[1].PartyName != "Golden Valley Mart" {
		t.Fatalf("parties not sorted: %s, %s", rows[0].PartyName, rows[1].PartyName)
	}
	if !rows[0].TotalAmount.Equal(decimal.NewFromInt(80000)) {
		t.Errorf("aggregated total = %s, want 80000", rows[0].TotalAmount)
	}
	if rows[0].Eligibility != models.EligibilityStatusEligible {
		t.Error("80000 should be eligible")
	}
	if rows[1].Eligibility != models.EligibilityStatusNotEligible {
		t.Error("1000 should not be eligible")
	}
	// no item restriction: single "All" column value
	if rows[0].ItemOrGroup != "All" {
		t.Errorf("item value = %q, want All", rows[0].ItemOrGroup)
	}

	// nothing observed: one sentinel row
	rows = buildSchemeRows(scheme, scope, nil, nil)
	if len(rows) != 1 {
		t.Fatalf("expected sentinel row, got %d rows", len(rows))
	}
	if rows[0].PartyName != "All" || !rows[0].TotalAmount.IsZero() {
		t.Fatalf("unexpected sentinel row: %+v", rows[0])
	}
}

func TestBuildSchemeRowsThresholdBoundary(t *testing.T) {
	scheme := testScheme("Boundary")
	scope := restrictedScope("Golden Valley Mart")

	totals := map[totalsKey]partyTotals{
		{PartyName: "Golden Valley Mart", ItemCode: ""}: {TotalAmount: decimal.NewFromInt(50000), TotalQty: decimal.NewFromInt(5)},
	}
	rows := buildSchemeRows(scheme, scope, nil, totals)
	if rows[0].Eligibility != models.EligibilityStatusEligible {
		t.Error("total exactly at the threshold must be eligible")
	}
}

func TestSchemeEligibilityNoThreshold(t *testing.T) {
	active := partyTotals{TotalAmount: decimal.NewFromInt(1), TotalQty: decimal.NewFromInt(1)}

	// a declared rule with a zero threshold never qualifies
	scheme := testScheme("Legacy")
	scheme.MinimumAmount = decimal.Zero
	if schemeEligibility(scheme, active) != models.EligibilityStatusNotEligible {
		t.Error("zero threshold must not be eligible even with activity")
	}

	// a scheme without any rule is eligible on any activity
	scheme.Qualification = ""
	if schemeEligibility(scheme, active) != models.EligibilityStatusEligible {
		t.Error("no rule with activity should be eligible")
	}
	if schemeEligibility(scheme, partyTotals{}) != models.EligibilityStatusNotEligible {
		t.Error("no rule with no activity should not be eligible")
	}
}

func TestApplyReportFilters(t *testing.T) {
	rows := []*PromotionalSchemeReportRow{
		{
			SchemeName: "Retail Deal", PartyType: "Customer", PartyName: "Golden Valley Mart",
			ApplyOn: models.ApplyOnItemCode, ItemOrGroup: "BEV-001",
			DiscountPercentage: decimal.NewFromInt(10),
			TotalAmount:        decimal.NewFromInt(60000), TotalQty: decimal.NewFromInt(30),
			Eligibility: models.EligibilityStatusEligible,
		},
		{
			SchemeName: "Retail Deal", PartyType: "Customer", PartyName: "Shwe La Min Store",
			ApplyOn: models.ApplyOnItemCode, ItemOrGroup: "BEV-001",
			DiscountPercentage: decimal.NewFromInt(10),
			Eligibility:        models.EligibilityStatusNotEligible,
		},
		{
			SchemeName: "Supplier Deal", PartyType: "Supplier", PartyName: "Ayeyarwady Trading",
			ApplyOn: models.ApplyOnItemGroup, ItemOrGroup: "Beverages",
			DiscountPercentage: decimal.NewFromInt(5),
			TotalAmount:        decimal.NewFromInt(90000), TotalQty: decimal.NewFromInt(45),
			Eligibility: models.EligibilityStatusEligible,
		},
	}

	// nil filters keep everything
	if got := applyReportFilters(rows, nil); len(got) != 3 {
		t.Fatalf("nil filters dropped rows: %d", len(got))
	}

	// substring item filter is case-insensitive
	item := "bev"
	got := applyReportFilters(rows, &PromotionalSchemeReportFilters{ItemOrGroup: &item})
	if len(got) != 3 {
		t.Fatalf("substring filter wrong: %d", len(got))
	}

	// filters combine with AND
	partyType := "Customer"
	minAmount := decimal.NewFromInt(1000)
	got = applyReportFilters(rows, &PromotionalSchemeReportFilters{
		PartyType:      &partyType,
		MinTotalAmount: &minAmount,
	})
	if len(got) != 1 || got[0].PartyName != "Golden Valley Mart" {
		t.Fatalf("AND combination wrong: %+v", got)
	}

	// eligibility filter
	got = applyReportFilters(rows, &PromotionalSchemeReportFilters{ShowOnlyEligible: true})
	if len(got) != 2 {
		t.Fatalf("eligible filter wrong: %d", len(got))
	}

	// discount range
	maxDiscount := decimal.NewFromInt(7)
	got = applyReportFilters(rows, &PromotionalSchemeReportFilters{MaxDiscount: &maxDiscount})
	if len(got) != 1 || got[0].SchemeName != "Supplier Deal" {
		t.Fatalf("discount range wrong: %+v", got)
	}

	// scheme name is exact
	name := "Retail Deal"
	got = applyReportFilters(rows, &PromotionalSchemeReportFilters{SchemeName: &name})
	if len(got) != 2 {
		t.Fatalf("scheme name filter wrong: %d", len(got))
	}
}

func TestApplyReportFiltersValidityOverlap(t *testing.T) {
	q1From := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q1To := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	h2From := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := []*PromotionalSchemeReportRow{
		{SchemeName: "First Quarter", ValidFrom: &q1From, ValidTo: &q1To},
		{SchemeName: "Second Half", ValidFrom: &h2From},
		{SchemeName: "Evergreen"},
	}

	// schemes that ended before the requested window drop out
	from := models.MyDateString(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	got := applyReportFilters(rows, &PromotionalSchemeReportFilters{FromDate: &from})
	if len(got) != 2 || got[0].SchemeName != "Second Half" || got[1].SchemeName != "Evergreen" {
		t.Fatalf("from_date overlap wrong: %+v", got)
	}

	// schemes that start after the requested window drop out
	to := models.MyDateString(time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC))
	got = applyReportFilters(rows, &PromotionalSchemeReportFilters{ToDate: &to})
	if len(got) != 2 || got[0].SchemeName != "First Quarter" || got[1].SchemeName != "Evergreen" {
		t.Fatalf("to_date overlap wrong: %+v", got)
	}

	// open-ended scheme windows survive both bounds
	got = applyReportFilters(rows, &PromotionalSchemeReportFilters{FromDate: &from, ToDate: &to})
	if len(got) != 1 || got[0].SchemeName != "Evergreen" {
		t.Fatalf("combined overlap wrong: %+v", got)
	}
}

func TestExportPromotionalSchemeReportExcel(t *testing.T) {
	validFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []*PromotionalSchemeReportRow{
		{
			SchemeName: "Retail Deal", PartyType: "Customer", PartyName: "Golden Valley Mart",
			ApplyOn: models.ApplyOnItemCode, ItemOrGroup: "BEV-001",
			Qualification:      models.PromoQualificationMinimumAmount,
			MinimumAmount:      decimal.NewFromInt(50000),
			DiscountPercentage: decimal.NewFromInt(10),
			ValidFrom:          &validFrom,
			TotalAmount:        decimal.NewFromInt(60000),
			TotalQty:           decimal.NewFromInt(30),
			Eligibility:        models.EligibilityStatusEligible,
			IsActive:           true,
		},
	}
	f, err := ExportPromotionalSchemeReportExcel(rows)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Promotional Schemes", "A1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Scheme Name" {
		t.Errorf("A1 = %q, want header", got)
	}
	got, err = f.GetCellValue("Promotional Schemes", "A2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Retail Deal" {
		t.Errorf("A2 = %q, want Retail Deal", got)
	}
	got, err = f.GetCellValue("Promotional Schemes", "K1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Valid From" {
		t.Errorf("K1 = %q, want Valid From", got)
	}
	got, err = f.GetCellValue("Promotional Schemes", "K2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "2026-01-01" {
		t.Errorf("K2 = %q, want 2026-01-01", got)
	}
}
