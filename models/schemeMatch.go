package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SchemeDocument is the invoice view the promo engine works on. Sales
// and purchase invoices both project into it so matching, evaluation
// and application are written once.
type SchemeDocument struct {
	PartySide  PartySide
	PartyName  string
	PartyGroup string
	Territory  string
	Date       time.Time
	Lines      []*SchemeLine
}

// SchemeLine mirrors one invoice detail row. Pointer rows: mutations
// made by the engine land on the caller's detail slice.
type SchemeLine struct {
	ItemCode           string
	Name               string
	Qty                decimal.Decimal
	UnitRate           decimal.Decimal
	NetAmount          decimal.Decimal
	DiscountPercentage decimal.Decimal
	AppliedScheme      string
	IsFreeItem         bool
}

// MatchDocument gates the document against the scheme's party scope
// and returns the item-scope-matched lines in document order. A nil
// slice means the scheme does not apply to this document at all; free
// rows added by earlier applications never participate.
func (s *PromotionalScheme) MatchDocument(ctx context.Context, catalog SchemeCatalog, doc *SchemeDocument) ([]*SchemeLine, error) {

	if s.PartySide != doc.PartySide {
		return nil, nil
	}

	partyScope, err := s.ResolvePartyScope(ctx, catalog)
	if err != nil {
		return nil, err
	}
	if !partyScope.MatchesDocument(doc) {
		return nil, nil
	}

	itemScope, err := s.ResolveItemScope(ctx, catalog)
	if err != nil {
		return nil, err
	}

	var matched []*SchemeLine
	for _, line := range doc.Lines {
		if line.IsFreeItem {
			continue
		}
		// empty item scope is a wildcard
		if len(itemScope) > 0 && !itemScope[line.ItemCode] {
			continue
		}
		matched = append(matched, line)
	}
	return matched, nil
}

// MatchesDocument checks the document's party against every declared
// dimension. Declared dimensions combine with AND; an undeclared
// dimension constrains nothing, so a fully undeclared scope matches
// every party of the side.
func (ps *PartyScope) MatchesDocument(doc *SchemeDocument) bool {
	switch doc.PartySide {
	case PartySideSelling:
		if len(ps.Customers) > 0 && !ps.Customers[doc.PartyName] {
			return false
		}
		if len(ps.CustomerGroups) > 0 && !ps.CustomerGroups[doc.PartyGroup] {
			return false
		}
		if len(ps.Territories) > 0 && !ps.Territories[doc.Territory] {
			return false
		}
	case PartySideBuying:
		if len(ps.Suppliers) > 0 && !ps.Suppliers[doc.PartyName] {
			return false
		}
		if len(ps.SupplierGroups) > 0 && !ps.SupplierGroups[doc.PartyGroup] {
			return false
		}
	default:
		return false
	}
	return true
}

// MatchedTotals sums quantity and net amount over the matched lines.
func MatchedTotals(lines []*SchemeLine) (qty decimal.Decimal, amount decimal.Decimal) {
	for _, line := range lines {
		qty = qty.Add(line.Qty)
		amount = amount.Add(line.NetAmount)
	}
	return qty, amount
}

// Qualifies reports whether the matched lines reach the scheme's
// threshold. Boundaries are inclusive: totals exactly at the minimum
// qualify.
func (s *PromotionalScheme) Qualifies(lines []*SchemeLine) bool {
	if len(lines) == 0 {
		return false
	}
	qty, amount := MatchedTotals(lines)
	switch s.Qualification {
	case PromoQualificationMinimumAmount:
		return amount.GreaterThanOrEqual(s.MinimumAmount)
	case PromoQualificationMinimumQuantity:
		return qty.GreaterThanOrEqual(s.MinimumQuantity)
	}
	return false
}
