package models

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeCatalog struct {
	itemsByGroup         map[string][]string
	customersByGroup     map[string][]string
	customersByTerritory map[string][]string
	suppliersByGroup     map[string][]string
	err                  error
}

func (f *fakeCatalog) lookup(m map[string][]string, keys []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, k := range keys {
		out = append(out, m[k]...)
	}
	return out, nil
}

func (f *fakeCatalog) FindItemCodesByGroups(_ context.Context, groups []string) ([]string, error) {
	return f.lookup(f.itemsByGroup, groups)
}
func (f *fakeCatalog) FindCustomersByGroups(_ context.Context, groups []string) ([]string, error) {
	return f.lookup(f.customersByGroup, groups)
}
func (f *fakeCatalog) FindCustomersByTerritories(_ context.Context, territories []string) ([]string, error) {
	return f.lookup(f.customersByTerritory, territories)
}
func (f *fakeCatalog) FindSuppliersByGroups(_ context.Context, groups []string) ([]string, error) {
	return f.lookup(f.suppliersByGroup, groups)
}

func TestScopeRowsValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		keys []string
		want []string
	}{
		{
			name: "bare strings",
			raw:  `["CUST-1", "CUST-2"]`,
			keys: []string{"customer"},
			want: []string{"CUST-1", "CUST-2"},
		},
		{
			name: "keyed rows with candidate key",
			raw:  `[{"customer": "CUST-1"}, {"customer": "CUST-2"}]`,
			keys: []string{"customer", "item", "value"},
			want: []string{"CUST-1", "CUST-2"},
		},
		{
			name: "second candidate key wins when first is absent",
			raw:  `[{"value": "CUST-1"}]`,
			keys: []string{"customer", "item", "value"},
			want: []string{"CUST-1"},
		},
		{
			name: "fallback skips meta keys",
			raw:  `[{"id": "44", "idx": "1", "parent": "PS-1", "legacy_customer": "CUST-9"}]`,
			keys: []string{"customer"},
			want: []string{"CUST-9"},
		},
		{
			name: "mixed bare and keyed rows",
			raw:  `["CUST-1", {"customer": "CUST-2"}]`,
			keys: []string{"customer"},
			want: []string{"CUST-1", "CUST-2"},
		},
		{
			name: "malformed rows contribute nothing",
			raw:  `[42, {"customer": ""}, "", {"idx": "3"}, "CUST-1"]`,
			keys: []string{"customer"},
			want: []string{"CUST-1"},
		},
		{
			name: "duplicates collapse",
			raw:  `["CUST-1", {"customer": "CUST-1"}]`,
			keys: []string{"customer"},
			want: []string{"CUST-1"},
		},
		{
			name: "unreadable column treated as undeclared",
			raw:  `{"not": "an array"}`,
			keys: []string{"customer"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScopeRows(tt.raw).Values(tt.keys...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Values() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScopeRowsEmpty(t *testing.T) {
	if !ScopeRows(nil).Empty() {
		t.Error("nil rows should be empty")
	}
	if !ScopeRows(`[]`).Empty() {
		t.Error("empty array should be empty")
	}
	if !ScopeRows(`[{"idx": "1"}]`).Empty() {
		t.Error("rows with only meta keys should be empty")
	}
	if ScopeRows(`["CUST-1"]`).Empty() {
		t.Error("rows with a value should not be empty")
	}
}

func TestResolveItemScope(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{
		itemsByGroup: map[string][]string{"Beverages": {"BEV-001", "BEV-002"}},
	}

	scheme := &PromotionalScheme{
		ApplyOn:    ApplyOnItemGroup,
		ItemGroups: ScopeRows(`[{"item_group": "Beverages"}]`),
	}
	scope, err := scheme.ResolveItemScope(ctx, catalog)
	if err != nil {
		t.Fatal(err)
	}
	if len(scope) != 2 || !scope["BEV-001"] || !scope["BEV-002"] {
		t.Fatalf("group expansion wrong: %v", scope)
	}

	// declared item codes pass through verbatim
	scheme = &PromotionalScheme{
		ApplyOn:   ApplyOnItemCode,
		ItemCodes: ScopeRows(`["SNK-001"]`),
	}
	scope, err = scheme.ResolveItemScope(ctx, catalog)
	if err != nil {
		t.Fatal(err)
	}
	if len(scope) != 1 || !scope["SNK-001"] {
		t.Fatalf("item code scope wrong: %v", scope)
	}

	// no declarations at all: unrestricted
	scheme = &PromotionalScheme{ApplyOn: ApplyOnItemCode}
	scope, err = scheme.ResolveItemScope(ctx, catalog)
	if err != nil {
		t.Fatal(err)
	}
	if len(scope) != 0 {
		t.Fatalf("expected empty scope, got %v", scope)
	}
}

func TestResolvePartyScope(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{
		customersByGroup:     map[string][]string{"Retail": {"Golden Valley Mart", "Shwe La Min Store"}},
		customersByTerritory: map[string][]string{"Yangon": {"City Wholesale"}},
		suppliersByGroup:     map[string][]string{"Distributor": {"Ayeyarwady Trading"}},
	}

	scheme := &PromotionalScheme{
		PartySide:      PartySideSelling,
		Customers:      ScopeRows(`["Direct Buyer"]`),
		CustomerGroups: ScopeRows(`[{"customer_group": "Retail"}]`),
		Territories:    ScopeRows(`[{"territory": "Yangon"}]`),
	}
	scope, err := scheme.ResolvePartyScope(ctx, catalog)
	if err != nil {
		t.Fatal(err)
	}
	if scope.Unrestricted() {
		t.Fatal("scope with declarations must not be unrestricted")
	}
	for _, want := range []string{"Direct Buyer", "Golden Valley Mart", "Shwe La Min Store", "City Wholesale"} {
		if !scope.Parties[want] {
			t.Errorf("expected party %q in expanded set %v", want, scope.Parties)
		}
	}

	// buying side only consults supplier dimensions
	scheme = &PromotionalScheme{
		PartySide:      PartySideBuying,
		SupplierGroups: ScopeRows(`[{"supplier_group": "Distributor"}]`),
	}
	scope, err = scheme.ResolvePartyScope(ctx, catalog)
	if err != nil {
		t.Fatal(err)
	}
	if len(scope.Parties) != 1 || !scope.Parties["Ayeyarwady Trading"] {
		t.Fatalf("supplier expansion wrong: %v", scope.Parties)
	}

	// undeclared scope is a wildcard
	scheme = &PromotionalScheme{PartySide: PartySideSelling}
	scope, err = scheme.ResolvePartyScope(ctx, catalog)
	if err != nil {
		t.Fatal(err)
	}
	if !scope.Unrestricted() {
		t.Fatal("empty declarations should be unrestricted")
	}
}

func TestResolvePartyScopeCatalogError(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("lookup failed")}
	scheme := &PromotionalScheme{
		PartySide:      PartySideSelling,
		CustomerGroups: ScopeRows(`[{"customer_group": "Retail"}]`),
	}
	if _, err := scheme.ResolvePartyScope(context.Background(), catalog); err == nil {
		t.Fatal("expected catalog error to propagate")
	}
}
