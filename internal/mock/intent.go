package mock

import (
	"fmt"
	"strings"
)

// defaultPeriod is echoed when a revenue question names no period.
const defaultPeriod = "a specified period"

// IntentRules classify a free-text question into a human-readable intent.
var IntentRules = []Rule[string]{
	{
		Name:  "revenue",
		Match: ContainsAny("revenue"),
		Apply: func(text string) (string, error) {
			return fmt.Sprintf("User wants to analyze revenue data for %s.", revenuePeriod(text)), nil
		},
	},
	{
		Name:  "products",
		Match: ContainsAny("product", "products", "selling items"),
		Apply: constant("User is requesting information about products or best-selling items."),
	},
	{
		Name:  "customers",
		Match: ContainsAny("customer", "customers"),
		Apply: constant("User is asking for customer data."),
	},
	{
		Name:  "regions",
		Match: ContainsAny("region", "regional"),
		Apply: constant("User wants to view data segmented by region."),
	},
	{
		Name:  "inventory",
		Match: ContainsAny("inventory", "stock"),
		Apply: constant("User is querying for inventory and stock levels."),
	},
	{
		Name:  "fallback",
		Match: Always,
		Apply: func(text string) (string, error) {
			return fmt.Sprintf("User's intent is to find data related to: \"%s\".", text), nil
		},
	},
}

// revenuePeriod returns the text after the last "in ", or the default
// period when there is none or nothing follows it.
func revenuePeriod(text string) string {
	i := strings.LastIndex(text, "in ")
	if i < 0 {
		return defaultPeriod
	}
	if p := strings.TrimSpace(text[i+len("in "):]); p != "" {
		return p
	}
	return defaultPeriod
}

// ResolveIntent classifies text without any delay. It never fails.
func ResolveIntent(text string) string {
	intent, _, _ := Classify(IntentRules, text)
	return intent
}
