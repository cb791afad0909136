package analyzer

import "github.com/mfenderov/lifeadmin/pkg/models"

// Token budget used by EstimateTokens.
const (
	promptTokens      = 500
	tokensPerDocument = 150
)

// Profile parameterizes the analysis of one category.
type Profile struct {
	Category        models.Category
	Emoji           string
	Label           string
	Subject         string // "Analyze these <subject>:"
	Noun            string // default action "Review <noun>"
	MinDocuments    int
	Limit           int // 0 means every document in the category
	MaxTokens       int
	ExpiryDays      int
	DefaultPriority models.Priority
	ExtraField      string // optional per-finding field copied into metadata
	ExtraHint       string
	Checklist       []string
}

// Profiles lists the analyzed categories in run order. "other" is never analyzed.
var Profiles = []Profile{
	{
		Category: models.CategoryVehicle, Emoji: "🚗", Label: "Vehicle",
		Subject: "vehicle-related documents", Noun: "vehicle documents",
		MinDocuments: 2, MaxTokens: 2000, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		ExtraField: "urgency_days", ExtraHint: "how many days until action needed (if applicable)",
		Checklist: []string{
			"Completeness: Are key documents missing? (insurance, NCT, tax, service records, registration)",
			"Renewals: Any upcoming expiry dates or renewals needed?",
			"Maintenance: Is the vehicle being properly maintained? Service intervals appropriate?",
			"Costs: Any unusual costs or patterns worth noting?",
			"Compliance: All legal requirements met? (insurance, tax, NCT)",
		},
	},
	{
		Category: models.CategoryMedical, Emoji: "🏥", Label: "Medical",
		Subject: "medical documents", Noun: "medical records",
		MinDocuments: 2, Limit: 30, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		Checklist: []string{
			"Recurring conditions or treatments",
			"Missing follow-ups or appointments",
			"Prescription patterns (refills needed?)",
			"Unusual costs or billing issues",
			"Care coordination gaps",
		},
	},
	{
		Category: models.CategoryUtilities, Emoji: "⚡", Label: "Utilities",
		Subject: "utility bills", Noun: "utility bills",
		MinDocuments: 3, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		ExtraField: "potential_savings", ExtraHint: "estimated savings, if any",
		Checklist: []string{
			"Cost trends (increasing/decreasing?)",
			"Usage anomalies or spikes",
			"Contract renewal dates approaching",
			"Tariff optimization opportunities",
			"Duplicate or overlapping services",
		},
	},
	{
		Category: models.CategoryTax, Emoji: "📋", Label: "Tax",
		Subject: "tax documents", Noun: "tax documents",
		MinDocuments: 1, MaxTokens: 1500, ExpiryDays: 90, DefaultPriority: models.PriorityHigh,
		ExtraField: "deadline", ExtraHint: "the relevant deadline, if any",
		Checklist: []string{
			"Compliance: missing forms, certificates or returns",
			"Upcoming tax deadlines",
			"Document organization for tax preparation",
			"Red flags or issues worth raising",
			"Tax efficiency opportunities",
		},
	},
	{
		Category: models.CategoryFinancial, Emoji: "💰", Label: "Financial",
		Subject: "financial documents", Noun: "financial documents",
		MinDocuments: 2, Limit: 50, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		ExtraField: "potential_savings", ExtraHint: "estimated savings, if any",
		Checklist: []string{
			"Recurring subscriptions (are any wasteful?)",
			"Unusual transactions",
			"Savings opportunities",
			"Loan or credit card patterns",
			"Account management issues",
		},
	},
	{
		Category: models.CategoryInsurance, Emoji: "🛡️", Label: "Insurance",
		Subject: "insurance documents", Noun: "insurance policies",
		MinDocuments: 1, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		ExtraField: "renewal_date", ExtraHint: "the policy renewal date, if known",
		Checklist: []string{
			"Upcoming renewal dates",
			"Coverage gaps or overlaps",
			"Premium changes",
			"Policy optimization",
			"Missing insurance types",
		},
	},
	{
		Category: models.CategoryEmployment, Emoji: "💼", Label: "Employment",
		Subject: "employment documents", Noun: "employment documents",
		MinDocuments: 2, Limit: 30, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		Checklist: []string{
			"Payslip consistency",
			"Tax deduction correctness",
			"Contract terms and changes",
			"Benefits tracking",
			"Missing documents (P60, contracts)",
		},
	},
	{
		Category: models.CategoryHome, Emoji: "🏠", Label: "Home",
		Subject: "home/property documents", Noun: "property documents",
		MinDocuments: 1, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		ExtraField: "deadline", ExtraHint: "the relevant deadline, if any",
		Checklist: []string{
			"Property tax deadlines",
			"Maintenance schedules",
			"Mortgage patterns or milestones",
			"Rental terms and renewals",
			"Compliance (certificates, inspections)",
		},
	},
	{
		Category: models.CategoryLegal, Emoji: "⚖️", Label: "Legal",
		Subject: "legal documents", Noun: "legal documents",
		MinDocuments: 1, MaxTokens: 1500, ExpiryDays: 90, DefaultPriority: models.PriorityHigh,
		ExtraField: "deadline", ExtraHint: "the relevant deadline, if any",
		Checklist: []string{
			"Contract expiry and renewals",
			"Compliance requirements",
			"Upcoming deadlines",
			"Missing documents",
			"Completeness for legal matters",
		},
	},
	{
		Category: models.CategoryEducation, Emoji: "🎓", Label: "Education",
		Subject: "education documents", Noun: "education documents",
		MinDocuments: 1, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		ExtraField: "deadline", ExtraHint: "the relevant deadline, if any",
		Checklist: []string{
			"Fee payment deadlines",
			"Application or enrollment windows",
			"Certification expirations",
			"Course completion requirements",
			"Record organization",
		},
	},
	{
		Category: models.CategoryTravel, Emoji: "✈️", Label: "Travel",
		Subject: "travel documents", Noun: "travel documents",
		MinDocuments: 1, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityMedium,
		ExtraField: "travel_date", ExtraHint: "the travel date, if known",
		Checklist: []string{
			"Upcoming travel dates",
			"Visa or passport expirations",
			"Travel insurance gaps",
			"Booking patterns",
			"Missing travel documents",
		},
	},
	{
		Category: models.CategoryShopping, Emoji: "🛒", Label: "Shopping",
		Subject: "shopping documents", Noun: "shopping documents",
		MinDocuments: 3, Limit: 50, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityLow,
		ExtraField: "expiry_date", ExtraHint: "warranty or return window expiry, if known",
		Checklist: []string{
			"Active warranties and their expiry",
			"Open return windows",
			"Spending patterns",
			"Recurring purchases",
			"High-value purchases needing warranty tracking",
		},
	},
	{
		Category: models.CategoryGovernment, Emoji: "🏛️", Label: "Government",
		Subject: "government documents", Noun: "government documents",
		MinDocuments: 1, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityHigh,
		ExtraField: "deadline", ExtraHint: "the relevant deadline, if any",
		Checklist: []string{
			"License and permit renewals",
			"Compliance requirements",
			"Application deadlines",
			"Missing required documents",
			"Response deadlines for official letters",
		},
	},
	{
		Category: models.CategoryPersonal, Emoji: "📝", Label: "Personal",
		Subject: "personal documents", Noun: "personal documents",
		MinDocuments: 2, MaxTokens: 1500, ExpiryDays: 60, DefaultPriority: models.PriorityLow,
		Checklist: []string{
			"Document organization and completeness",
			"Important dates or anniversaries",
			"Records needing attention",
			"Preservation needs",
			"General life admin suggestions",
		},
	},
}

// ProfileFor returns the profile of an analyzed category.
func ProfileFor(category models.Category) (Profile, bool) {
	for _, p := range Profiles {
		if p.Category == category {
			return p, true
		}
	}
	return Profile{}, false
}

// EstimateTokens approximates the tokens one analysis of n documents spends,
// prompt and reply together. It is zero when the category would be skipped.
func (p Profile) EstimateTokens(n int) int {
	if n < p.MinDocuments {
		return 0
	}
	if p.Limit > 0 && n > p.Limit {
		n = p.Limit
	}
	return promptTokens + n*tokensPerDocument + p.MaxTokens
}
