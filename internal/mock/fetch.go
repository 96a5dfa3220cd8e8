package mock

import (
	"github.com/dusk-indust/analyst/internal/table"
)

// Fixed datasets returned by the result fetcher.
var (
	RevenueResults = table.New(
		[]string{"quarter", "revenue", "yoy_growth"},
		[]any{"Q1 2023", 150000, "5%"},
		[]any{"Q2 2023", 175000, "8%"},
		[]any{"Q3 2023", 160000, "3%"},
		[]any{"Q4 2023", 200000, "10%"},
		[]any{"Q1 2024", 210000, "7%"},
	)

	ProductResults = table.New(
		[]string{"product_name", "total_sales", "category", "region"},
		[]any{"Product A", 50000, "Electronics", "North America"},
		[]any{"Product B", 45000, "Home", "Europe"},
		[]any{"Product C", 30000, "Electronics", "Asia"},
		[]any{"Product D", 25000, "Toys", "North America"},
		[]any{"Product E", 20000, "Home", "Europe"},
	)

	CustomerResults = table.New(
		[]string{"customer_id", "name", "country", "total_orders", "last_order"},
		[]any{1, "Alice", "USA", 15, "2024-05-01"},
		[]any{2, "Bob", "UK", 10, "2024-04-15"},
		[]any{3, "Carlos", "Brazil", 8, "2024-03-20"},
		[]any{4, "Diana", "Germany", 12, "2024-05-10"},
	)

	RegionResults = table.New(
		[]string{"region", "sales", "profit"},
		[]any{"North America", 120000, 30000},
		[]any{"Europe", 95000, 25000},
		[]any{"Asia", 80000, 20000},
		[]any{"South America", 40000, 10000},
	)

	InventoryResults = table.New(
		[]string{"product_id", "product_name", "stock", "warehouse"},
		[]any{101, "Widget X", 500, "A"},
		[]any{102, "Widget Y", 200, "B"},
		[]any{103, "Widget Z", 0, "A"},
	)

	GenericResults = table.New(
		[]string{"id", "name", "value", "status"},
		[]any{1, "Mock Data 1", 100, "active"},
		[]any{2, "Mock Data 2", 200, "inactive"},
		[]any{3, "Mock Data 3", 300, "pending"},
	)
)

// ResultRules map a query statement to one of the fixed datasets. The
// inventory statement selects product_id and product_name, so the product
// rule steps aside for anything that reads from inventory.
var ResultRules = []Rule[table.ResultSet]{
	{Name: "revenue", Match: ContainsAny("revenue"), Apply: dataset(RevenueResults)},
	{
		Name:  "products",
		Match: And(ContainsAny("product"), Not(ContainsAny("inventory"))),
		Apply: dataset(ProductResults),
	},
	{Name: "customers", Match: ContainsAny("customer"), Apply: dataset(CustomerResults)},
	{Name: "regions", Match: ContainsAny("region"), Apply: dataset(RegionResults)},
	{Name: "inventory", Match: ContainsAny("inventory"), Apply: dataset(InventoryResults)},
	{Name: "generic", Match: Always, Apply: dataset(GenericResults)},
}

// dataset returns a handler yielding a private copy of rs.
func dataset(rs table.ResultSet) func(string) (table.ResultSet, error) {
	return func(string) (table.ResultSet, error) { return rs.Clone(), nil }
}

// FetchResults returns the dataset for query without any delay. The result
// is a copy the caller may modify.
func FetchResults(query string) table.ResultSet {
	rs, _, _ := Classify(ResultRules, query)
	return rs
}
