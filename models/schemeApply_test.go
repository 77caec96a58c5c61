package models

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func amountScheme(name string, minAmount int64, pct int64) *PromotionalScheme {
	return &PromotionalScheme{
		Name:               name,
		PartySide:          PartySideSelling,
		ApplyOn:            ApplyOnItemCode,
		Qualification:      PromoQualificationMinimumAmount,
		MinimumAmount:      decimal.NewFromInt(minAmount),
		DiscountPercentage: decimal.NewFromInt(pct),
	}
}

func qtyScheme(name string, minQty int64, freeQty int64) *PromotionalScheme {
	return &PromotionalScheme{
		Name:            name,
		PartySide:       PartySideSelling,
		ApplyOn:         ApplyOnItemCode,
		Qualification:   PromoQualificationMinimumQuantity,
		MinimumQuantity: decimal.NewFromInt(minQty),
		FreeQuantity:    decimal.NewFromInt(freeQty),
	}
}

func TestApplyDiscountToLines(t *testing.T) {
	scheme := amountScheme("Ten Percent", 10000, 10)
	l := line("BEV-001", 10, 2000)
	applyDiscountToLines(scheme, []*SchemeLine{l})

	if !l.UnitRate.Equal(decimal.NewFromInt(1800)) {
		t.Errorf("unit rate = %s, want 1800", l.UnitRate)
	}
	if !l.NetAmount.Equal(decimal.NewFromInt(18000)) {
		t.Errorf("net amount = %s, want 18000", l.NetAmount)
	}
	if !l.DiscountPercentage.Equal(decimal.NewFromInt(10)) {
		t.Errorf("discount pct = %s, want 10", l.DiscountPercentage)
	}
	if l.AppliedScheme != "Ten Percent" {
		t.Errorf("applied scheme = %q", l.AppliedScheme)
	}
}

func TestApplyDiscountRounding(t *testing.T) {
	// 7% off 999.99: 999.99 * 93 / 100 = 929.9907
	scheme := amountScheme("Seven", 0, 7)
	l := &SchemeLine{
		ItemCode:  "X",
		Qty:       decimal.NewFromInt(1),
		UnitRate:  decimal.RequireFromString("999.99"),
		NetAmount: decimal.RequireFromString("999.99"),
	}
	applyDiscountToLines(scheme, []*SchemeLine{l})
	if !l.UnitRate.Equal(decimal.RequireFromString("929.9907")) {
		t.Errorf("unit rate = %s, want 929.9907", l.UnitRate)
	}
}

func TestApplyDiscountCompounds(t *testing.T) {
	// applying twice stacks: the hook's marker skip is what prevents this
	scheme := amountScheme("Ten Percent", 0, 10)
	l := line("BEV-001", 1, 1000)
	applyDiscountToLines(scheme, []*SchemeLine{l})
	applyDiscountToLines(scheme, []*SchemeLine{l})
	if !l.UnitRate.Equal(decimal.NewFromInt(810)) {
		t.Errorf("unit rate after double application = %s, want 810", l.UnitRate)
	}
}

func TestFreeLinesForScheme(t *testing.T) {
	scheme := qtyScheme("Chips Deal", 20, 2)
	matched := []*SchemeLine{
		line("SNK-001", 25, 800),
		line("SNK-002", 30, 900),
	}
	free := freeLinesForScheme(scheme, matched)
	if len(free) != 2 {
		t.Fatalf("expected one free row per matched item, got %d", len(free))
	}
	for i, f := range free {
		if !f.IsFreeItem {
			t.Errorf("row %d not flagged free", i)
		}
		if !f.UnitRate.IsZero() || !f.NetAmount.IsZero() {
			t.Errorf("row %d must be zero-rate", i)
		}
		if !f.Qty.Equal(decimal.NewFromInt(2)) {
			t.Errorf("row %d qty = %s, want 2", i, f.Qty)
		}
		if f.AppliedScheme != "Chips Deal" {
			t.Errorf("row %d applied scheme = %q", i, f.AppliedScheme)
		}
	}
	if free[0].ItemCode != "SNK-001" || free[1].ItemCode != "SNK-002" {
		t.Error("free rows must follow matched order")
	}
}

func TestApplySchemesToDocument(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{}

	doc := sellingDoc(
		line("BEV-001", 10, 2000), // 20000
		line("SNK-001", 25, 800),  // 20000
	)
	schemes := []*PromotionalScheme{
		amountScheme("Big Basket", 40000, 10),
		qtyScheme("Chips Deal", 20, 2),
	}
	// Chips Deal only covers SNK-001
	schemes[1].ItemCodes = ScopeRows(`["SNK-001"]`)

	notices := applySchemesToDocument(ctx, catalog, schemes, doc)
	if len(notices) != 2 {
		t.Fatalf("expected 2 notices, got %v", notices)
	}

	// discount hit both original lines
	if !doc.Lines[0].UnitRate.Equal(decimal.NewFromInt(1800)) {
		t.Errorf("line 0 rate = %s, want 1800", doc.Lines[0].UnitRate)
	}
	if !doc.Lines[1].UnitRate.Equal(decimal.NewFromInt(720)) {
		t.Errorf("line 1 rate = %s, want 720", doc.Lines[1].UnitRate)
	}

	// one free row appended for the chips line
	if len(doc.Lines) != 3 {
		t.Fatalf("expected 3 lines after free goods, got %d", len(doc.Lines))
	}
	freeRow := doc.Lines[2]
	if !freeRow.IsFreeItem || freeRow.ItemCode != "SNK-001" || !freeRow.Qty.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected free row: %+v", freeRow)
	}
}

func TestApplySchemesToDocumentIdempotent(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{}

	doc := sellingDoc(line("BEV-001", 10, 2000))
	schemes := []*PromotionalScheme{amountScheme("Ten Percent", 10000, 10)}

	first := applySchemesToDocument(ctx, catalog, schemes, doc)
	if len(first) != 1 {
		t.Fatalf("first run should apply, got %v", first)
	}
	rateAfterFirst := doc.Lines[0].UnitRate

	// second run sees the marker and leaves the line alone
	second := applySchemesToDocument(ctx, catalog, schemes, doc)
	if len(second) != 0 {
		t.Fatalf("second run should be a no-op, got %v", second)
	}
	if !doc.Lines[0].UnitRate.Equal(rateAfterFirst) {
		t.Errorf("rate changed on re-run: %s -> %s", rateAfterFirst, doc.Lines[0].UnitRate)
	}
}

func TestApplySchemesToDocumentFailOpen(t *testing.T) {
	ctx := context.Background()

	doc := sellingDoc(line("BEV-001", 10, 2000))
	broken := amountScheme("Broken", 10000, 5)
	broken.CustomerGroups = ScopeRows(`[{"customer_group": "Retail"}]`)
	healthy := amountScheme("Healthy", 10000, 10)

	catalog := &fakeCatalog{err: errors.New("catalog down")}
	notices := applySchemesToDocument(ctx, catalog, []*PromotionalScheme{broken, healthy}, doc)

	// broken scheme skipped; healthy scheme needs no catalog and applies
	if len(notices) != 1 {
		t.Fatalf("expected healthy scheme to still apply, got %v", notices)
	}
	if doc.Lines[0].AppliedScheme != "Healthy" {
		t.Errorf("applied scheme = %q, want Healthy", doc.Lines[0].AppliedScheme)
	}
}

func TestApplySchemesSupplierScopeExcludes(t *testing.T) {
	ctx := context.Background()

	doc := &SchemeDocument{
		PartySide: PartySideBuying,
		PartyName: "SUP-2",
		Lines:     []*SchemeLine{line("ITEM-A", 60, 100)},
	}
	scheme := qtyScheme("Supplier Deal", 50, 5)
	scheme.PartySide = PartySideBuying
	scheme.Suppliers = ScopeRows(`["SUP-1"]`)

	notices := applySchemesToDocument(ctx, &fakeCatalog{}, []*PromotionalScheme{scheme}, doc)
	if len(notices) != 0 {
		t.Fatalf("out-of-scope supplier must not trigger the scheme, got %v", notices)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].AppliedScheme != "" {
		t.Error("document mutated despite party exclusion")
	}
}

func TestApplySchemesBelowThreshold(t *testing.T) {
	ctx := context.Background()
	doc := sellingDoc(line("BEV-001", 1, 2000))
	schemes := []*PromotionalScheme{amountScheme("Big Basket", 40000, 10)}

	notices := applySchemesToDocument(ctx, &fakeCatalog{}, schemes, doc)
	if len(notices) != 0 {
		t.Fatalf("below-threshold scheme must not apply, got %v", notices)
	}
	if !doc.Lines[0].UnitRate.Equal(decimal.NewFromInt(2000)) {
		t.Error("line mutated despite not qualifying")
	}
}
