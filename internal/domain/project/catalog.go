package project

// Clients is the list of paying parties offered when creating a project.
// The model accepts any client string.
var Clients = []string{
	"Private Owner",
	"General Contractor",
	"Property Management",
	"Real Estate Investor",
	"Municipality",
}

var subcategories = map[Category][]string{
	CategoryMaterials: {
		"Lumber",
		"Concrete",
		"Drywall",
		"Roofing",
		"Plumbing Supplies",
		"Electrical Supplies",
		"Paint",
		"Flooring",
		"Hardware",
	},
	CategoryContractors: {
		"Electrician",
		"Plumber",
		"HVAC",
		"Roofer",
		"Framer",
		"Painter",
		"Flooring Installer",
	},
	CategoryLabor: {
		"General Labor",
		"Demolition",
		"Cleanup",
		"Overtime",
	},
	CategoryLandscaping: {
		"Plants",
		"Sod",
		"Irrigation",
		"Hardscape",
		"Mulch",
	},
	CategoryOther: {
		"Permits",
		"Equipment Rental",
		"Dumpster",
		"Insurance",
		"Fuel",
		"Miscellaneous",
	},
}

// Subcategories returns the suggested subcategories for c. The list is a
// suggestion only; expenses may carry any subcategory text.
func Subcategories(c Category) []string {
	return append([]string(nil), subcategories[c]...)
}
