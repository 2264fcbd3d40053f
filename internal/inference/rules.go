package inference

// Category names produced by the default tables.
const (
	CategoryFood          = "Food & Dining"
	CategoryTransport     = "Transport"
	CategoryHousing       = "Housing"
	CategoryEntertainment = "Entertainment"
	CategoryGroceries     = "Groceries"
	CategoryShopping      = "Shopping"
	CategoryUtilities     = "Utilities"
	CategoryGeneral       = "General"
)

// DefaultMerchant is the guess for filenames that name no known merchant.
const DefaultMerchant = "Aurora Partner Merchant"

// Rule maps any of its keywords to a label. Keywords match as lowercase
// substrings, so "ticket" also matches "tickets".
type Rule struct {
	Label    string
	Keywords []string
}

// TextRules classifies free text such as spoken utterances. Order is priority.
func TextRules() []Rule {
	return []Rule{
		{Label: CategoryFood, Keywords: []string{"coffee", "burger", "food", "pizza", "restaurant", "breakfast", "lunch", "dinner"}},
		{Label: CategoryTransport, Keywords: []string{"metro", "uber", "cab", "fuel", "ticket"}},
		{Label: CategoryHousing, Keywords: []string{"rent", "maintenance", "bill", "electric"}},
		{Label: CategoryEntertainment, Keywords: []string{"movie", "netflix", "music", "gaming"}},
		{Label: CategoryGroceries, Keywords: []string{"grocery", "supermarket"}},
	}
}

// FilenameRules classifies uploaded file names.
func FilenameRules() []Rule {
	return []Rule{
		{Label: CategoryTransport, Keywords: []string{"uber", "ola", "fuel", "petrol"}},
		{Label: CategoryFood, Keywords: []string{"zomato", "swiggy", "restaurant", "food"}},
		{Label: CategoryHousing, Keywords: []string{"rent", "lease"}},
		{Label: CategoryShopping, Keywords: []string{"shopping", "store", "mall"}},
		{Label: CategoryUtilities, Keywords: []string{"bill", "utility", "electric"}},
	}
}

// MerchantRules guesses a merchant from a file name.
func MerchantRules() []Rule {
	return []Rule{
		{Label: "Uber Mobility", Keywords: []string{"uber"}},
		{Label: "Zomato", Keywords: []string{"zomato"}},
		{Label: "Swiggy", Keywords: []string{"swiggy"}},
		{Label: "Metro Fuel", Keywords: []string{"fuel", "petrol"}},
		{Label: "Urban Living Rentals", Keywords: []string{"rent"}},
	}
}
