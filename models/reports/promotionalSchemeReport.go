package reports

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/promo_backend/config"
	"bitbucket.org/mmdatafocus/promo_backend/models"
	"bitbucket.org/mmdatafocus/promo_backend/utils"
	"github.com/shopspring/decimal"
)

// PromotionalSchemeReportFilters narrows the report after the rows are
// built; every given filter must pass for a row to survive.
type PromotionalSchemeReportFilters struct {
	SchemeName       *string              `form:"scheme_name" json:"scheme_name"`
	PartyType        *string              `form:"party_type" json:"party_type"`
	PartyName        *string              `form:"party_name" json:"party_name"`
	ApplyOn          *models.ApplyOn      `form:"apply_on" json:"apply_on"`
	ItemOrGroup      *string              `form:"item_or_group" json:"item_or_group"`
	FromDate         *models.MyDateString `form:"from_date" json:"from_date"`
	ToDate           *models.MyDateString `form:"to_date" json:"to_date"`
	MinTotalAmount   *decimal.Decimal     `form:"min_total_amount" json:"min_total_amount"`
	MaxTotalAmount   *decimal.Decimal     `form:"max_total_amount" json:"max_total_amount"`
	MinTotalQty      *decimal.Decimal     `form:"min_total_qty" json:"min_total_qty"`
	MaxTotalQty      *decimal.Decimal     `form:"max_total_qty" json:"max_total_qty"`
	MinDiscount      *decimal.Decimal     `form:"min_discount" json:"min_discount"`
	MaxDiscount      *decimal.Decimal     `form:"max_discount" json:"max_discount"`
	ShowOnlyEligible bool                 `form:"show_only_eligible" json:"show_only_eligible"`
}

type PromotionalSchemeReportRow struct {
	SchemeName         string                    `json:"scheme_name"`
	PartyType          string                    `json:"party_type"`
	PartyName          string                    `json:"party_name"`
	ApplyOn            models.ApplyOn            `json:"apply_on"`
	ItemOrGroup        string                    `json:"item_or_group"`
	Qualification      models.PromoQualification `json:"qualification"`
	MinimumAmount      decimal.Decimal           `json:"minimum_amount"`
	DiscountPercentage decimal.Decimal           `json:"discount_percentage"`
	MinimumQuantity    decimal.Decimal           `json:"minimum_quantity"`
	FreeQuantity       decimal.Decimal           `json:"free_quantity"`
	ValidFrom          *time.Time                `json:"valid_from"`
	ValidTo            *time.Time                `json:"valid_to"`
	TotalAmount        decimal.Decimal           `json:"total_amount"`
	TotalQty           decimal.Decimal           `json:"total_qty"`
	Eligibility        models.EligibilityStatus  `json:"eligibility"`
	IsActive           bool                      `json:"is_active"`
}

type totalsKey struct {
	PartyName string
	ItemCode  string
}

type partyTotals struct {
	TotalAmount decimal.Decimal
	TotalQty    decimal.Decimal
}

// GetPromotionalSchemeReport builds one row per (scheme, party,
// resolved item code). Parties a scheme is restricted to appear
// whether or not they bought anything; an unrestricted scheme
// materializes only the parties actually observed in confirmed
// invoices, falling back to a single "All" row when nothing was
// observed.
func GetPromotionalSchemeReport(ctx context.Context, filters *PromotionalSchemeReportFilters) ([]*PromotionalSchemeReportRow, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if filters == nil {
		filters = &PromotionalSchemeReportFilters{}
	}

	started := time.Now()

	if err := filters.FromDate.StartOfDayUTCTime(""); err != nil {
		return nil, err
	}
	if err := filters.ToDate.EndOfDayUTCTime(""); err != nil {
		return nil, err
	}

	cacheKey := reportCacheKey("promotional_scheme", businessId, filters.cacheKeyParts()...)
	if reportCacheEnabled() {
		var cached []*PromotionalSchemeReportRow
		if hit, err := cacheGet(cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	schemes, err := models.GetPromotionalSchemes(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	catalog := models.NewSchemeCatalog(businessId)

	var rows []*PromotionalSchemeReportRow
	for _, scheme := range schemes {
		partyScope, err := scheme.ResolvePartyScope(ctx, catalog)
		if err != nil {
			return nil, err
		}
		itemScope, err := scheme.ResolveItemScope(ctx, catalog)
		if err != nil {
			return nil, err
		}
		itemCodes := make([]string, 0, len(itemScope))
		for code := range itemScope {
			itemCodes = append(itemCodes, code)
		}
		sort.Strings(itemCodes)

		totals, err := fetchSchemeTotals(ctx, businessId, scheme, itemCodes, filters.FromDate, filters.ToDate)
		if err != nil {
			return nil, err
		}
		rows = append(rows, buildSchemeRows(scheme, partyScope, itemCodes, totals)...)
	}

	rows = applyReportFilters(rows, filters)

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, rows, reportCacheTTL())
	}
	logSlowReport(ctx, "promotional_scheme", started, map[string]any{"schemes": len(schemes), "rows": len(rows)})

	return rows, nil
}

// fetchSchemeTotals sums confirmed activity per (party, item code) for
// one scheme. Report dates, when given, override the scheme's own
// validity window; an absent bound stays open-ended. Free rows never
// count.
func fetchSchemeTotals(ctx context.Context, businessId string, scheme *models.PromotionalScheme, itemCodes []string, fromDate *models.MyDateString, toDate *models.MyDateString) (map[totalsKey]partyTotals, error) {

	sqlT := `
SELECT
    iv.{{ .partyColumn }} AS party_name,
    iv_dt.item_code AS item_code,
    SUM(iv_dt.detail_net_amount) AS total_amount,
    SUM(iv_dt.detail_qty) AS total_qty
FROM
    {{ .invoiceTable }} AS iv
        JOIN
    {{ .detailTable }} AS iv_dt ON iv_dt.{{ .invoiceFk }} = iv.id
WHERE
    iv.business_id = @businessId
        AND iv.status IN ('Confirmed' , 'Partial Paid', 'Paid')
        AND iv_dt.is_free_item = false
        {{- if .hasFrom }} AND iv.invoice_date >= @fromDate {{- end }}
        {{- if .hasTo }} AND iv.invoice_date <= @toDate {{- end }}
        {{- if .hasItems }} AND iv_dt.item_code IN @itemCodes {{- end }}
GROUP BY iv.{{ .partyColumn }}, iv_dt.item_code
`
	effectiveFrom, effectiveTo := effectiveWindow(scheme, fromDate, toDate)

	tplArgs := map[string]interface{}{
		"hasFrom":  effectiveFrom != nil,
		"hasTo":    effectiveTo != nil,
		"hasItems": len(itemCodes) > 0,
	}
	switch scheme.PartySide {
	case models.PartySideSelling:
		tplArgs["partyColumn"] = "customer_name"
		tplArgs["invoiceTable"] = "sales_invoices"
		tplArgs["detailTable"] = "sales_invoice_details"
		tplArgs["invoiceFk"] = "sales_invoice_id"
	case models.PartySideBuying:
		tplArgs["partyColumn"] = "supplier_name"
		tplArgs["invoiceTable"] = "purchase_invoices"
		tplArgs["detailTable"] = "purchase_invoice_details"
		tplArgs["invoiceFk"] = "purchase_invoice_id"
	default:
		return nil, errors.New("invalid party side")
	}

	// execting sql template to get raw sql
	sql, err := utils.ExecTemplate(sqlT, tplArgs)
	if err != nil {
		return nil, err
	}

	var scanned []struct {
		PartyName   string          `gorm:"column:party_name"`
		ItemCode    string          `gorm:"column:item_code"`
		TotalAmount decimal.Decimal `gorm:"column:total_amount"`
		TotalQty    decimal.Decimal `gorm:"column:total_qty"`
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"businessId": businessId,
		"fromDate":   effectiveFrom,
		"toDate":     effectiveTo,
		"itemCodes":  itemCodes,
	}).Scan(&scanned).Error; err != nil {
		return nil, err
	}

	totals := make(map[totalsKey]partyTotals, len(scanned))
	for _, row := range scanned {
		totals[totalsKey{PartyName: row.PartyName, ItemCode: row.ItemCode}] = partyTotals{TotalAmount: row.TotalAmount, TotalQty: row.TotalQty}
	}
	return totals, nil
}

// effectiveWindow picks the totals window: report bounds win, scheme
// validity bounds fill the gaps, nil stays open.
func effectiveWindow(scheme *models.PromotionalScheme, fromDate *models.MyDateString, toDate *models.MyDateString) (*time.Time, *time.Time) {
	var from, to *time.Time
	if fromDate != nil {
		t := time.Time(*fromDate)
		from = &t
	} else if scheme.ValidFrom != nil {
		from = scheme.ValidFrom
	}
	if toDate != nil {
		t := time.Time(*toDate)
		to = &t
	} else if scheme.ValidTo != nil {
		to = scheme.ValidTo
	}
	return from, to
}

// buildSchemeRows expands one scheme into report rows: the cross
// product of its parties and its resolved item codes (group mode shows
// the concrete members, not the group name). Pure so the row semantics
// are testable without a database.
func buildSchemeRows(scheme *models.PromotionalScheme, partyScope *models.PartyScope, itemCodes []string, totals map[totalsKey]partyTotals) []*PromotionalSchemeReportRow {

	partyType := "Customer"
	if scheme.PartySide == models.PartySideBuying {
		partyType = "Supplier"
	}

	var parties []string
	if partyScope.Unrestricted() {
		// materialize "All" lazily: only parties actually observed
		seen := map[string]bool{}
		for key := range totals {
			if !seen[key.PartyName] {
				seen[key.PartyName] = true
				parties = append(parties, key.PartyName)
			}
		}
		sort.Strings(parties)
		if len(parties) == 0 {
			parties = []string{"All"}
		}
	} else {
		for party := range partyScope.Parties {
			parties = append(parties, party)
		}
		sort.Strings(parties)
	}

	itemValues := itemCodes
	allItems := len(itemValues) == 0
	if allItems {
		itemValues = []string{"All"}
	}

	var rows []*PromotionalSchemeReportRow
	for _, party := range parties {
		for _, itemValue := range itemValues {
			var observed partyTotals
			if allItems {
				observed = aggregatePartyTotals(totals, party)
			} else {
				// zero totals when the party never bought this item
				observed = totals[totalsKey{PartyName: party, ItemCode: itemValue}]
			}
			rows = append(rows, &PromotionalSchemeReportRow{
				SchemeName:         scheme.Name,
				PartyType:          partyType,
				PartyName:          party,
				ApplyOn:            scheme.ApplyOn,
				ItemOrGroup:        itemValue,
				Qualification:      scheme.Qualification,
				MinimumAmount:      scheme.MinimumAmount,
				DiscountPercentage: scheme.DiscountPercentage,
				MinimumQuantity:    scheme.MinimumQuantity,
				FreeQuantity:       scheme.FreeQuantity,
				ValidFrom:          scheme.ValidFrom,
				ValidTo:            scheme.ValidTo,
				TotalAmount:        observed.TotalAmount,
				TotalQty:           observed.TotalQty,
				Eligibility:        schemeEligibility(scheme, observed),
				IsActive:           utils.DereferencePtr(scheme.IsActive),
			})
		}
	}
	return rows
}

// aggregatePartyTotals folds every item cell of one party together,
// used for the item-unrestricted "All" row.
func aggregatePartyTotals(totals map[totalsKey]partyTotals, party string) partyTotals {
	var sum partyTotals
	for key, t := range totals {
		if key.PartyName == party {
			sum.TotalAmount = sum.TotalAmount.Add(t.TotalAmount)
			sum.TotalQty = sum.TotalQty.Add(t.TotalQty)
		}
	}
	return sum
}

// schemeEligibility: a declared rule needs a positive threshold met by
// the totals; a scheme without any rule counts as eligible on any
// observed activity.
func schemeEligibility(scheme *models.PromotionalScheme, observed partyTotals) models.EligibilityStatus {
	var threshold, total decimal.Decimal
	switch scheme.Qualification {
	case models.PromoQualificationMinimumAmount:
		threshold, total = scheme.MinimumAmount, observed.TotalAmount
	case models.PromoQualificationMinimumQuantity:
		threshold, total = scheme.MinimumQuantity, observed.TotalQty
	default:
		if observed.TotalAmount.IsPositive() || observed.TotalQty.IsPositive() {
			return models.EligibilityStatusEligible
		}
		return models.EligibilityStatusNotEligible
	}
	if threshold.IsPositive() && total.GreaterThanOrEqual(threshold) {
		return models.EligibilityStatusEligible
	}
	return models.EligibilityStatusNotEligible
}

// applyReportFilters drops rows failing any given filter.
func applyReportFilters(rows []*PromotionalSchemeReportRow, filters *PromotionalSchemeReportFilters) []*PromotionalSchemeReportRow {
	if filters == nil {
		return rows
	}
	var kept []*PromotionalSchemeReportRow
	for _, row := range rows {
		if filters.SchemeName != nil && *filters.SchemeName != "" && row.SchemeName != *filters.SchemeName {
			continue
		}
		if filters.PartyType != nil && *filters.PartyType != "" && row.PartyType != *filters.PartyType {
			continue
		}
		if filters.PartyName != nil && *filters.PartyName != "" && row.PartyName != *filters.PartyName {
			continue
		}
		if filters.ApplyOn != nil && *filters.ApplyOn != "" && row.ApplyOn != *filters.ApplyOn {
			continue
		}
		if filters.ItemOrGroup != nil && *filters.ItemOrGroup != "" &&
			!strings.Contains(strings.ToLower(row.ItemOrGroup), strings.ToLower(*filters.ItemOrGroup)) {
			continue
		}
		// the scheme's validity window must overlap the requested dates
		if filters.FromDate != nil && row.ValidTo != nil && row.ValidTo.Before(time.Time(*filters.FromDate)) {
			continue
		}
		if filters.ToDate != nil && row.ValidFrom != nil && row.ValidFrom.After(time.Time(*filters.ToDate)) {
			continue
		}
		if filters.MinTotalAmount != nil && row.TotalAmount.LessThan(*filters.MinTotalAmount) {
			continue
		}
		if filters.MaxTotalAmount != nil && row.TotalAmount.GreaterThan(*filters.MaxTotalAmount) {
			continue
		}
		if filters.MinTotalQty != nil && row.TotalQty.LessThan(*filters.MinTotalQty) {
			continue
		}
		if filters.MaxTotalQty != nil && row.TotalQty.GreaterThan(*filters.MaxTotalQty) {
			continue
		}
		if filters.MinDiscount != nil && row.DiscountPercentage.LessThan(*filters.MinDiscount) {
			continue
		}
		if filters.MaxDiscount != nil && row.DiscountPercentage.GreaterThan(*filters.MaxDiscount) {
			continue
		}
		if filters.ShowOnlyEligible && row.Eligibility != models.EligibilityStatusEligible {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

func (f *PromotionalSchemeReportFilters) cacheKeyParts() []string {
	if f == nil {
		return nil
	}
	parts := []string{
		utils.DereferencePtr(f.SchemeName),
		utils.DereferencePtr(f.PartyType),
		utils.DereferencePtr(f.PartyName),
		string(utils.DereferencePtr(f.ApplyOn)),
		utils.DereferencePtr(f.ItemOrGroup),
	}
	if f.FromDate != nil {
		parts = append(parts, time.Time(*f.FromDate).Format("2006-01-02"))
	} else {
		parts = append(parts, "")
	}
	if f.ToDate != nil {
		parts = append(parts, time.Time(*f.ToDate).Format("2006-01-02"))
	} else {
		parts = append(parts, "")
	}
	for _, d := range []*decimal.Decimal{f.MinTotalAmount, f.MaxTotalAmount, f.MinTotalQty, f.MaxTotalQty, f.MinDiscount, f.MaxDiscount} {
		if d != nil {
			parts = append(parts, d.String())
		} else {
			parts = append(parts, "")
		}
	}
	if f.ShowOnlyEligible {
		parts = append(parts, "eligible")
	} else {
		parts = append(parts, "")
	}
	return parts
}
