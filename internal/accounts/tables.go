package accounts

import "strings"

// mappingRule maps free-text keywords to an expense account. Rules are
// evaluated in order; the first keyword hit wins.
type mappingRule struct {
	Keywords []string
	Code     string
	Name     string
}

// keywordRules is the ordered keyword table. More specific rules sit above
// the generic ones so "plumbing repair" lands on the plumbing account, not
// the general maintenance one.
var keywordRules = []mappingRule{
	// Utilities
	{Keywords: []string{"water", "sewer", "sewerage"}, Code: "5110", Name: "Water & Sewer Expense"},
	{Keywords: []string{"electricity", "electric bill", "power bill", "umeme"}, Code: "5120", Name: "Electricity Expense"},
	{Keywords: []string{"gas", "lpg", "propane"}, Code: "5130", Name: "Gas Utility Expense"},
	{Keywords: []string{"internet", "wifi", "broadband", "cable tv"}, Code: "5140", Name: "Internet & Cable Expense"},
	{Keywords: []string{"garbage", "trash", "waste", "refuse"}, Code: "5150", Name: "Waste Collection Expense"},

	// Maintenance
	{Keywords: []string{"plumbing", "plumber", "pipe", "drain", "leak"}, Code: "5210", Name: "Plumbing Maintenance Expense"},
	{Keywords: []string{"wiring", "electrician", "electrical repair", "socket"}, Code: "5220", Name: "Electrical Maintenance Expense"},
	{Keywords: []string{"hvac", "air conditioning", "ventilation", "boiler"}, Code: "5230", Name: "HVAC Maintenance Expense"},
	{Keywords: []string{"paint", "painting", "repaint"}, Code: "5240", Name: "Painting & Decoration Expense"},
	{Keywords: []string{"roof", "roofing", "gutter"}, Code: "5250", Name: "Roofing Maintenance Expense"},
	{Keywords: []string{"elevator", "lift"}, Code: "5260", Name: "Elevator Maintenance Expense"},
	{Keywords: []string{"pest", "fumigation", "exterminator"}, Code: "5270", Name: "Pest Control Expense"},
	{Keywords: []string{"landscaping", "garden", "lawn", "compound"}, Code: "5280", Name: "Landscaping Maintenance Expense"},
	{Keywords: []string{"cleaning", "janitorial", "housekeeping"}, Code: "5290", Name: "Cleaning & Janitorial Expense"},
	{Keywords: []string{"repair", "maintenance", "fix"}, Code: "5200", Name: "General Maintenance Expense"},

	// Supplies and equipment
	{Keywords: []string{"stationery", "office supplies", "toner", "printer paper"}, Code: "5310", Name: "Office Supplies Expense"},
	{Keywords: []string{"detergent", "consumable", "supplies"}, Code: "5315", Name: "Operating Supplies Expense"},
	{Keywords: []string{"tools", "equipment", "machinery"}, Code: "5320", Name: "Tools & Equipment Expense"},
	{Keywords: []string{"bulb", "fixture", "hardware", "fitting"}, Code: "5330", Name: "Hardware & Fixtures Expense"},

	// Personnel
	{Keywords: []string{"salary", "salaries", "wages", "payroll", "caretaker"}, Code: "5410", Name: "Salaries & Wages Expense"},
	{Keywords: []string{"security guard", "guard", "askari"}, Code: "5420", Name: "Security Services Expense"},

	// Taxes and statutory
	{Keywords: []string{"tax", "levy", "ground rent", "rates"}, Code: "5510", Name: "Property Taxes Expense"},
	{Keywords: []string{"license", "permit"}, Code: "5520", Name: "Licenses & Taxes Expense"},

	// Insurance
	{Keywords: []string{"insurance", "premium", "cover"}, Code: "5610", Name: "Property Insurance Expense"},

	// Contracted services
	{Keywords: []string{"legal", "lawyer", "advocate"}, Code: "5710", Name: "Legal & Professional Fees"},
	{Keywords: []string{"audit", "accounting", "bookkeeping"}, Code: "5720", Name: "Accounting Services Expense"},
	{Keywords: []string{"management fee", "agency fee"}, Code: "5730", Name: "Property Management Fees"},
	{Keywords: []string{"surveyor", "valuation", "inspection"}, Code: "5740", Name: "Inspection & Valuation Expense"},
}

// providerRules maps known vendor names to accounts, consulted after the
// keyword table. Matching is case-insensitive substring on the provider.
var providerRules = []mappingRule{
	{Keywords: []string{"national water", "city water"}, Code: "5110", Name: "Water & Sewer Expense"},
	{Keywords: []string{"umeme", "kenya power", "eskom"}, Code: "5120", Name: "Electricity Expense"},
	{Keywords: []string{"securicor", "g4s", "sga security"}, Code: "5420", Name: "Security Services Expense"},
	{Keywords: []string{"jubilee insurance", "uap", "britam"}, Code: "5610", Name: "Property Insurance Expense"},
	{Keywords: []string{"revenue authority", "ura", "kra"}, Code: "5510", Name: "Property Taxes Expense"},
}

// categoryAccounts maps the item category enum to a fallback account when
// neither keywords nor provider matched.
var categoryAccounts = map[string]Resolved{
	"utilities":   {Code: "5100", Name: "General Utilities Expense", Type: TypeExpense},
	"maintenance": {Code: "5200", Name: "General Maintenance Expense", Type: TypeExpense},
	"supplies":    {Code: "5315", Name: "Operating Supplies Expense", Type: TypeExpense},
	"equipment":   {Code: "5320", Name: "Tools & Equipment Expense", Type: TypeExpense},
	"services":    {Code: "5700", Name: "Contracted Services Expense", Type: TypeExpense},
	"other":       {Code: "5900", Name: "Other Operating Expenses", Type: TypeExpense},
}

// defaultExpense is the terminal fallback.
var defaultExpense = Resolved{Code: "5900", Name: "Other Operating Expenses", Type: TypeExpense}

// paymentSourceAccounts maps payment methods to asset accounts. Unknown
// methods fall back to the operating bank account.
var paymentSourceAccounts = map[string]Resolved{
	"bank_transfer": {Code: "1010", Name: "Operating Bank Account", Type: TypeAsset},
	"cheque":        {Code: "1010", Name: "Operating Bank Account", Type: TypeAsset},
	"cash":          {Code: "1000", Name: "Cash on Hand", Type: TypeAsset},
	"mpesa":         {Code: "1020", Name: "Mobile Money Wallet", Type: TypeAsset},
	"mtn_momo":      {Code: "1020", Name: "Mobile Money Wallet", Type: TypeAsset},
	"airtel_money":  {Code: "1020", Name: "Mobile Money Wallet", Type: TypeAsset},
	"visa":          {Code: "1030", Name: "Card Clearing Account", Type: TypeAsset},
	"mastercard":    {Code: "1030", Name: "Card Clearing Account", Type: TypeAsset},
}

var defaultPaymentSource = Resolved{Code: "1010", Name: "Operating Bank Account", Type: TypeAsset}

// payableMaster is the parent of every vendor payable sub-account.
var payableMaster = Resolved{Code: "2100", Name: "Accounts Payable", Type: TypeLiability}

func (r mappingRule) matches(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
