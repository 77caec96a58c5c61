package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/promo_backend/config"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// applyDiscountToLines writes the scheme's percentage discount onto
// every matched line: the unit rate is reduced to rate*(1-pct/100)
// rounded to 4 places and the net amount recomputed from it. Calling
// it twice compounds, which is why the caller skips lines already
// stamped with the scheme's name.
func applyDiscountToLines(scheme *PromotionalScheme, lines []*SchemeLine) {
	for _, line := range lines {
		discounted := line.UnitRate.
			Mul(hundred.Sub(scheme.DiscountPercentage)).
			DivRound(hundred, 4)
		line.UnitRate = discounted
		line.NetAmount = line.Qty.Mul(discounted).Round(4)
		line.DiscountPercentage = scheme.DiscountPercentage
		line.AppliedScheme = scheme.Name
	}
}

// freeLinesForScheme builds one zero-rate free row per matched item,
// each carrying the scheme's free quantity. The rows are returned (not
// appended) so the caller controls where they land on the document.
func freeLinesForScheme(scheme *PromotionalScheme, matched []*SchemeLine) []*SchemeLine {
	var free []*SchemeLine
	for _, line := range matched {
		free = append(free, &SchemeLine{
			ItemCode:      line.ItemCode,
			Name:          line.Name,
			Qty:           scheme.FreeQuantity,
			UnitRate:      decimal.Zero,
			NetAmount:     decimal.Zero,
			AppliedScheme: scheme.Name,
			IsFreeItem:    true,
		})
	}
	return free
}

// withoutAlreadyApplied drops lines a previous run of the same scheme
// already touched, so re-running the hook cannot compound a discount.
func withoutAlreadyApplied(schemeName string, lines []*SchemeLine) []*SchemeLine {
	var fresh []*SchemeLine
	for _, line := range lines {
		if line.AppliedScheme == schemeName {
			continue
		}
		fresh = append(fresh, line)
	}
	return fresh
}

// applySchemesToDocument runs the given schemes against the document
// in order. A scheme that fails scope resolution is logged and skipped
// so one bad scheme cannot block the document; the returned notices
// describe what was applied.
func applySchemesToDocument(ctx context.Context, catalog SchemeCatalog, schemes []*PromotionalScheme, doc *SchemeDocument) []string {

	logger := config.GetLogger()

	var notices []string
	for _, scheme := range schemes {
		matched, err := scheme.MatchDocument(ctx, catalog, doc)
		if err != nil {
			config.LogError(logger, "models", "applySchemesToDocument",
				"skipping scheme after scope resolution failure", scheme.Name, err)
			continue
		}

		matched = withoutAlreadyApplied(scheme.Name, matched)
		if !scheme.Qualifies(matched) {
			continue
		}

		switch scheme.Qualification {
		case PromoQualificationMinimumAmount:
			applyDiscountToLines(scheme, matched)
			notices = append(notices, fmt.Sprintf(
				"scheme '%s' applied: %s%% discount on %d item(s)",
				scheme.Name, scheme.DiscountPercentage.String(), len(matched)))
		case PromoQualificationMinimumQuantity:
			doc.Lines = append(doc.Lines, freeLinesForScheme(scheme, matched)...)
			notices = append(notices, fmt.Sprintf(
				"scheme '%s' applied: %s free unit(s) of %d item(s)",
				scheme.Name, scheme.FreeQuantity.String(), len(matched)))
		}
	}
	return notices
}

// ApplyPromotionalSchemes is the confirm-time hook: it loads the active
// schemes for the document's side and date and applies them in-place.
func ApplyPromotionalSchemes(ctx context.Context, businessId string, doc *SchemeDocument) ([]string, error) {

	schemes, err := GetActiveSchemes(ctx, businessId, doc.PartySide, doc.Date)
	if err != nil {
		return nil, err
	}
	if len(schemes) == 0 {
		return nil, nil
	}

	catalog := NewSchemeCatalog(businessId)
	return applySchemesToDocument(ctx, catalog, schemes, doc), nil
}
