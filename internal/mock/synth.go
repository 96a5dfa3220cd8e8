package mock

import (
	"fmt"
)

// GenerationError is returned by the query synthesizer when it refuses an
// intent.
type GenerationError struct {
	Intent  string
	Message string
}

func (e *GenerationError) Error() string {
	return e.Message
}

// unsupportedMessage is the text of the only GenerationError the
// synthesizer produces.
const unsupportedMessage = "SQL generation failed: Unsupported intent."

// Canned statements produced by QueryRules.
const (
	RevenueQuery   = "SELECT quarter, SUM(revenue) AS total_revenue FROM sales WHERE year = 2023 GROUP BY quarter ORDER BY quarter;"
	ProductQuery   = "SELECT product_name, SUM(sales) AS total_sales FROM products GROUP BY product_name ORDER BY total_sales DESC LIMIT 5;"
	CustomerQuery  = "SELECT customer_id, name, country, total_orders FROM customers ORDER BY total_orders DESC LIMIT 10;"
	RegionQuery    = "SELECT region, SUM(sales) AS total_sales, SUM(profit) AS total_profit FROM regions GROUP BY region;"
	InventoryQuery = "SELECT product_id, product_name, stock, warehouse FROM inventory WHERE stock < 100 ORDER BY stock ASC;"
)

// QueryRules turn an intent into a canned query statement.
var QueryRules = []Rule[string]{
	{
		Name:  "unsupported",
		Match: ContainsAny("unsupported"),
		Apply: func(intent string) (string, error) {
			return "", &GenerationError{Intent: intent, Message: unsupportedMessage}
		},
	},
	{Name: "revenue", Match: ContainsAny("revenue"), Apply: constant(RevenueQuery)},
	{Name: "products", Match: ContainsAny("product", "products"), Apply: constant(ProductQuery)},
	{Name: "customers", Match: ContainsAny("customer"), Apply: constant(CustomerQuery)},
	{Name: "regions", Match: ContainsAny("region"), Apply: constant(RegionQuery)},
	{Name: "inventory", Match: ContainsAny("inventory"), Apply: constant(InventoryQuery)},
	{
		Name:  "fallback",
		Match: Always,
		Apply: func(intent string) (string, error) {
			// The intent is embedded as-is. Nothing executes the statement.
			return fmt.Sprintf("SELECT * FROM generic_data_for_intent = '%s';", intent), nil
		},
	},
}

// SynthesizeQuery maps an intent to a statement without any delay. It fails
// with a *GenerationError when the intent mentions "unsupported".
func SynthesizeQuery(intent string) (string, error) {
	query, _, err := Classify(QueryRules, intent)
	return query, err
}
