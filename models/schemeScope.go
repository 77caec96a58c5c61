package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/promo_backend/utils"
)

// ScopeRows is a JSON column holding a scheme's raw scope declarations.
// Rows come from different client generations and may be bare strings
// ("CUST-1") or keyed objects ({"customer": "CUST-1"}) whose key names
// have drifted over time, so extraction is tolerant: a row that yields
// no recognizable value contributes nothing instead of failing.
type ScopeRows json.RawMessage

func (r ScopeRows) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *ScopeRows) UnmarshalJSON(b []byte) error {
	if r == nil {
		return errors.New("ScopeRows: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[0:0], b...)
	return nil
}

// Value implements the driver.Valuer interface
func (r ScopeRows) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return []byte(r), nil
}

// Scan implements the sql.Scanner interface
func (r *ScopeRows) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*r = append((*r)[0:0], v...)
	case string:
		*r = ScopeRows(v)
	default:
		return fmt.Errorf("cannot convert %T to ScopeRows", value)
	}
	return nil
}

func (r ScopeRows) Empty() bool {
	return len(r.Values()) == 0
}

// row keys that never carry a scope value
var scopeRowMetaKeys = map[string]bool{
	"id":          true,
	"idx":         true,
	"parent":      true,
	"parent_type": true,
	"created_at":  true,
	"updated_at":  true,
}

// Values extracts the declared scope values, trying each candidate key
// per keyed row in order and falling back to the first non-meta value.
// Malformed rows are skipped silently; the result is deduplicated.
func (r ScopeRows) Values(candidateKeys ...string) []string {
	if len(r) == 0 {
		return nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal([]byte(r), &rows); err != nil {
		// the whole column is unreadable: treat as undeclared
		return nil
	}

	var vals []string
	for _, row := range rows {
		if v, ok := extractScopeValue(row, candidateKeys); ok {
			vals = append(vals, v)
		}
	}
	return utils.UniqueSlice(vals)
}

// extractScopeValue pulls one value out of a single scope row.
func extractScopeValue(row json.RawMessage, candidateKeys []string) (string, bool) {
	// plain string row
	var str string
	if err := json.Unmarshal(row, &str); err == nil {
		if str == "" {
			return "", false
		}
		return str, true
	}

	// keyed row
	var keyed map[string]string
	if err := json.Unmarshal(row, &keyed); err != nil {
		return "", false
	}
	for _, k := range candidateKeys {
		if v, ok := keyed[k]; ok && v != "" {
			return v, true
		}
	}
	// fallback: first non-meta non-empty value, in stable key order
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if scopeRowMetaKeys[k] {
			continue
		}
		if v := keyed[k]; v != "" {
			return v, true
		}
	}
	return "", false
}

// SchemeCatalog is the read-only lookup surface the scope extractor
// needs for expanding group-based declarations. Kept as an interface so
// the engine is testable without a database.
type SchemeCatalog interface {
	FindItemCodesByGroups(ctx context.Context, groups []string) ([]string, error)
	FindCustomersByGroups(ctx context.Context, groups []string) ([]string, error)
	FindCustomersByTerritories(ctx context.Context, territories []string) ([]string, error)
	FindSuppliersByGroups(ctx context.Context, groups []string) ([]string, error)
}

type dbSchemeCatalog struct {
	businessId string
}

func NewSchemeCatalog(businessId string) SchemeCatalog {
	return &dbSchemeCatalog{businessId: businessId}
}

func (c *dbSchemeCatalog) FindItemCodesByGroups(ctx context.Context, groups []string) ([]string, error) {
	return FindItemCodesByGroups(ctx, c.businessId, groups)
}

func (c *dbSchemeCatalog) FindCustomersByGroups(ctx context.Context, groups []string) ([]string, error) {
	return FindCustomerNamesByGroups(ctx, c.businessId, groups)
}

func (c *dbSchemeCatalog) FindCustomersByTerritories(ctx context.Context, territories []string) ([]string, error) {
	return FindCustomerNamesByTerritories(ctx, c.businessId, territories)
}

func (c *dbSchemeCatalog) FindSuppliersByGroups(ctx context.Context, groups []string) ([]string, error) {
	return FindSupplierNamesByGroups(ctx, c.businessId, groups)
}

// ResolveItemScope flattens the scheme's item declarations into a set
// of item codes: declared codes verbatim, declared groups expanded via
// the catalog. An empty result means "unrestricted" — callers must
// treat it as match-all, never match-none.
func (s *PromotionalScheme) ResolveItemScope(ctx context.Context, catalog SchemeCatalog) (map[string]bool, error) {

	itemCodes := make(map[string]bool)
	for _, code := range s.ItemCodes.Values("item_code", "item") {
		itemCodes[code] = true
	}

	groups := s.ItemGroups.Values("item_group", "group")
	if len(groups) > 0 {
		codes, err := catalog.FindItemCodesByGroups(ctx, groups)
		if err != nil {
			return nil, err
		}
		for _, code := range codes {
			itemCodes[code] = true
		}
	}

	return itemCodes, nil
}

// PartyScope is the resolved party side of a scheme: the raw declared
// sets per dimension (used as match gates) plus the flat expanded
// party set (used by the report's row enumeration).
type PartyScope struct {
	Customers      map[string]bool
	CustomerGroups map[string]bool
	Territories    map[string]bool
	Suppliers      map[string]bool
	SupplierGroups map[string]bool

	// union of declared parties and group/territory expansions
	Parties map[string]bool
}

// Unrestricted reports whether no party dimension was declared at all,
// meaning the scheme applies to every party of its side.
func (ps *PartyScope) Unrestricted() bool {
	return len(ps.Customers) == 0 &&
		len(ps.CustomerGroups) == 0 &&
		len(ps.Territories) == 0 &&
		len(ps.Suppliers) == 0 &&
		len(ps.SupplierGroups) == 0
}

// ResolvePartyScope extracts the declared party sets and expands the
// group/territory dimensions through the catalog into Parties.
func (s *PromotionalScheme) ResolvePartyScope(ctx context.Context, catalog SchemeCatalog) (*PartyScope, error) {

	ps := &PartyScope{
		Customers:      toSet(s.Customers.Values("customer", "item", "value")),
		CustomerGroups: toSet(s.CustomerGroups.Values("customer_group", "item", "value", "group")),
		Territories:    toSet(s.Territories.Values("territory", "item", "value")),
		Suppliers:      toSet(s.Suppliers.Values("supplier", "item", "value")),
		SupplierGroups: toSet(s.SupplierGroups.Values("supplier_group", "item", "value", "group")),
		Parties:        make(map[string]bool),
	}

	switch s.PartySide {
	case PartySideSelling:
		for c := range ps.Customers {
			ps.Parties[c] = true
		}
		if len(ps.CustomerGroups) > 0 {
			names, err := catalog.FindCustomersByGroups(ctx, setToSlice(ps.CustomerGroups))
			if err != nil {
				return nil, err
			}
			for _, n := range names {
				ps.Parties[n] = true
			}
		}
		if len(ps.Territories) > 0 {
			names, err := catalog.FindCustomersByTerritories(ctx, setToSlice(ps.Territories))
			if err != nil {
				return nil, err
			}
			for _, n := range names {
				ps.Parties[n] = true
			}
		}
	case PartySideBuying:
		for supplier := range ps.Suppliers {
			ps.Parties[supplier] = true
		}
		if len(ps.SupplierGroups) > 0 {
			names, err := catalog.FindSuppliersByGroups(ctx, setToSlice(ps.SupplierGroups))
			if err != nil {
				return nil, err
			}
			for _, n := range names {
				ps.Parties[n] = true
			}
		}
	}

	return ps, nil
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}

func setToSlice(set map[string]bool) []string {
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return vals
}
