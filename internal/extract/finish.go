package extract

// Finish codes that may trail a product SKU. Three-letter codes are checked
// before two-letter codes when parsing.
var finishCodes = map[string]string{
	"CP":  "Chrome",
	"BN":  "Brushed Nickel PVD",
	"PN":  "Polished Nickel PVD",
	"MB":  "Matte Black",
	"SB":  "Satin Brass PVD",
	"BB":  "Brushed Bronze PVD",
	"GM":  "Gunmetal",
	"WH":  "White",
	"GD":  "Gold",
	"RG":  "Rose Gold",
	"AB":  "Antique Brass",
	"PB":  "Polished Brass",
	"ORB": "Oil Rubbed Bronze",
	"SS":  "Stainless Steel",
	"MG":  "Matte Grey",
	"CG":  "Champagne Gold",
}

// FinishName returns the display name for a finish code, or "" when the code
// is unknown.
func FinishName(code string) string {
	return finishCodes[code]
}

// finishMentionMap maps lowercase text mentions to canonical finish names.
// Ordered as a slice so extraction output is deterministic.
var finishMentions = []struct {
	keyword string
	name    string
}{
	{"chrome", "Chrome"},
	{"brushed nickel", "Brushed Nickel PVD"},
	{"polished nickel", "Polished Nickel PVD"},
	{"matte black", "Matte Black"},
	{"satin brass", "Satin Brass PVD"},
	{"brushed bronze", "Brushed Bronze PVD"},
	{"gunmetal", "Gunmetal"},
	{"oil rubbed bronze", "Oil Rubbed Bronze"},
	{"stainless", "Stainless Steel"},
	{"gold", "Gold"},
}
