package models

import "strings"

// Category is one of the fixed life-admin domains.
type Category string

const (
	CategoryVehicle    Category = "vehicle"
	CategoryMedical    Category = "medical"
	CategoryHome       Category = "home"
	CategoryUtilities  Category = "utilities"
	CategoryFinancial  Category = "financial"
	CategoryInsurance  Category = "insurance"
	CategoryEmployment Category = "employment"
	CategoryTax        Category = "tax"
	CategoryLegal      Category = "legal"
	CategoryEducation  Category = "education"
	CategoryTravel     Category = "travel"
	CategoryShopping   Category = "shopping"
	CategoryGovernment Category = "government"
	CategoryPersonal   Category = "personal"
	CategoryOther      Category = "other"
)

// CategoryInfo describes a category for prompts and display.
type CategoryInfo struct {
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
	// Hint lists typical documents; used in the categorization prompt.
	Hint string `json:"-"`
}

// Categories lists every category in prompt order. "other" is last.
var Categories = []CategoryInfo{
	{CategoryVehicle, "Vehicle", "🚗", "Car insurance, NCT, service, tax", "Car/transport (insurance, NCT, service, fuel, parking, fines)"},
	{CategoryMedical, "Medical", "🏥", "Health records, prescriptions, bills", "Health (hospital, clinic, pharmacy, prescriptions, tests)"},
	{CategoryHome, "Home", "🏠", "Property, mortgage, maintenance", "Property (mortgage, rent, solicitor, property tax, maintenance)"},
	{CategoryUtilities, "Utilities", "⚡", "Electricity, gas, water, broadband", "Services (electricity, gas, water, broadband, phone)"},
	{CategoryFinancial, "Financial", "💰", "Banking, loans, savings, pensions", "Banking (statements, loans, credit cards, savings, pensions)"},
	{CategoryInsurance, "Insurance", "🛡️", "Insurance policies and renewals", "General insurance policies (not car/home)"},
	{CategoryEmployment, "Employment", "💼", "Payslips, contracts, P60s", "Work (payslips, contracts, P60, letters)"},
	{CategoryTax, "Tax", "📋", "Tax returns, certificates, revenue letters", "Tax documents (returns, certs, revenue letters)"},
	{CategoryLegal, "Legal", "⚖️", "Contracts, court and legal letters", "Legal (contracts, court, legal letters)"},
	{CategoryEducation, "Education", "🎓", "Fees, courses, certificates", "Education (fees, courses, certificates)"},
	{CategoryTravel, "Travel", "✈️", "Bookings, tickets, visas", "Travel (bookings, tickets, visas)"},
	{CategoryShopping, "Shopping", "🛒", "Receipts, orders, warranties", "Purchases (receipts, orders, warranties)"},
	{CategoryGovernment, "Government", "🏛️", "Forms, licenses, permits", "Government (forms, licenses, permits, official letters)"},
	{CategoryPersonal, "Personal", "📝", "Personal documents", "Personal documents"},
	{CategoryOther, "Other", "📄", "Uncategorized documents", "Uncategorized"},
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, info := range Categories {
		if info.Category == c {
			return true
		}
	}
	return false
}

// Info returns the display information for c.
func (c Category) Info() (CategoryInfo, bool) {
	for _, info := range Categories {
		if info.Category == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// ParseCategory normalizes a raw label. Unknown labels map to CategoryOther.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// CategoryKeys returns every category key in prompt order.
func CategoryKeys() []string {
	keys := make([]string, len(Categories))
	for i, info := range Categories {
		keys[i] = string(info.Category)
	}
	return keys
}
