package models

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sellingDoc(lines ...*SchemeLine) *SchemeDocument {
	return &SchemeDocument{
		PartySide:  PartySideSelling,
		PartyName:  "Golden Valley Mart",
		PartyGroup: "Retail",
		Territory:  "Yangon",
		Date:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Lines:      lines,
	}
}

func line(itemCode string, qty int64, rate int64) *SchemeLine {
	q := decimal.NewFromInt(qty)
	r := decimal.NewFromInt(rate)
	return &SchemeLine{
		ItemCode:  itemCode,
		Qty:       q,
		UnitRate:  r,
		NetAmount: q.Mul(r),
	}
}

func TestMatchDocumentPartyGates(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{}
	doc := sellingDoc(line("BEV-001", 10, 2000))

	// all declared dimensions must pass together
	scheme := &PromotionalScheme{
		PartySide:      PartySideSelling,
		Customers:      ScopeRows(`["Golden Valley Mart"]`),
		CustomerGroups: ScopeRows(`[{"customer_group": "Retail"}]`),
		Territories:    ScopeRows(`[{"territory": "Yangon"}]`),
	}
	matched, err := scheme.MatchDocument(ctx, catalog, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected 1 matched line, got %d", len(matched))
	}

	// one failing dimension rejects the document
	scheme.Territories = ScopeRows(`[{"territory": "Mandalay"}]`)
	matched, err = scheme.MatchDocument(ctx, catalog, doc)
	if err != nil {
		t.Fatal(err)
	}
	if matched != nil {
		t.Fatalf("expected no match, got %d lines", len(matched))
	}

	// side mismatch never matches
	buying := &PromotionalScheme{PartySide: PartySideBuying}
	matched, err = buying.MatchDocument(ctx, catalog, doc)
	if err != nil {
		t.Fatal(err)
	}
	if matched != nil {
		t.Fatal("buying scheme must not match a selling document")
	}
}

func TestMatchDocumentWildcardScope(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{}
	doc := sellingDoc(
		line("BEV-001", 10, 2000),
		line("SNK-001", 5, 800),
	)

	// no declarations anywhere: every non-free line matches
	scheme := &PromotionalScheme{PartySide: PartySideSelling}
	matched, err := scheme.MatchDocument(ctx, catalog, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Fatalf("wildcard should match all lines, got %d", len(matched))
	}
	// document order preserved
	if matched[0].ItemCode != "BEV-001" || matched[1].ItemCode != "SNK-001" {
		t.Fatalf("order not preserved: %s, %s", matched[0].ItemCode, matched[1].ItemCode)
	}
}

func TestMatchDocumentItemScope(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{
		itemsByGroup: map[string][]string{"Beverages": {"BEV-001"}},
	}
	doc := sellingDoc(
		line("BEV-001", 10, 2000),
		line("SNK-001", 5, 800),
	)

	scheme := &PromotionalScheme{
		PartySide:  PartySideSelling,
		ApplyOn:    ApplyOnItemGroup,
		ItemGroups: ScopeRows(`[{"item_group": "Beverages"}]`),
	}
	matched, err := scheme.MatchDocument(ctx, catalog, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 1 || matched[0].ItemCode != "BEV-001" {
		t.Fatalf("item scope wrong: %v", matched)
	}
}

func TestMatchDocumentSkipsFreeRows(t *testing.T) {
	ctx := context.Background()
	free := line("BEV-001", 2, 0)
	free.IsFreeItem = true
	doc := sellingDoc(line("BEV-001", 10, 2000), free)

	scheme := &PromotionalScheme{PartySide: PartySideSelling}
	matched, err := scheme.MatchDocument(ctx, &fakeCatalog{}, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 1 || matched[0].IsFreeItem {
		t.Fatalf("free rows must not participate, got %v", matched)
	}
}

func TestQualifiesInclusiveBoundary(t *testing.T) {
	scheme := &PromotionalScheme{
		Qualification: PromoQualificationMinimumAmount,
		MinimumAmount: decimal.NewFromInt(20000),
	}

	exactly := []*SchemeLine{line("BEV-001", 10, 2000)} // 20000
	if !scheme.Qualifies(exactly) {
		t.Error("total exactly at the minimum must qualify")
	}
	below := []*SchemeLine{line("BEV-001", 10, 1999)}
	if scheme.Qualifies(below) {
		t.Error("total below the minimum must not qualify")
	}

	qtyScheme := &PromotionalScheme{
		Qualification:   PromoQualificationMinimumQuantity,
		MinimumQuantity: decimal.NewFromInt(10),
	}
	if !qtyScheme.Qualifies(exactly) {
		t.Error("qty exactly at the minimum must qualify")
	}
	if qtyScheme.Qualifies([]*SchemeLine{line("BEV-001", 9, 2000)}) {
		t.Error("qty below the minimum must not qualify")
	}

	if scheme.Qualifies(nil) {
		t.Error("no matched lines can never qualify")
	}
}

func TestMatchedTotals(t *testing.T) {
	qty, amount := MatchedTotals([]*SchemeLine{
		line("BEV-001", 10, 2000),
		line("SNK-001", 5, 800),
	})
	if !qty.Equal(decimal.NewFromInt(15)) {
		t.Errorf("qty = %s, want 15", qty)
	}
	if !amount.Equal(decimal.NewFromInt(24000)) {
		t.Errorf("amount = %s, want 24000", amount)
	}
}
