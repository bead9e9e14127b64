package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	return FromProducts([]*Product{
		{
			ModelNo:     "PBV1005ACP",
			GroupNumber: "PBV1005A",
			Title:       "Serie 100 Pressure Balance Valve Trim",
			Keywords:    "shower valve trim pressure balance",
			Category:    "Shower",
			FinishCode:  "CP",
			FinishName:  "Chrome",
			ListPrice:   249,
		},
		{
			ModelNo:     "PBV1005ABN",
			GroupNumber: "PBV1005A",
			Title:       "Serie 100 Pressure Balance Valve Trim",
			Keywords:    "shower valve trim pressure balance",
			Category:    "Shower",
			FinishCode:  "BN",
			FinishName:  "Brushed Nickel PVD",
			ListPrice:   289,
		},
		{
			ModelNo:     "TRM.TVH.0211MB",
			GroupNumber: "TRM.TVH.0211",
			Title:       "Thermostatic Valve Handle Trim",
			Keywords:    "thermostatic handle trim",
			Category:    "Shower",
			FinishCode:  "MB",
			FinishName:  "Matte Black",
		},
		{
			ModelNo:     "PBV1005A.SP01",
			GroupNumber: "PBV1005A",
			Title:       "Cartridge for Serie 100 Valve",
			Keywords:    "cartridge spare",
			Category:    "Parts",
			IsSparePart: true,
		},
		{
			ModelNo:  "HS6270CP",
			Title:    "Hand Shower with 59in Braided Hose",
			Keywords: "hand shower hose braided",
			Category: "Shower",
			Status:   "discontinued",
		},
	})
}

func TestExactModel(t *testing.T) {
	c := testCatalog()

	p, ok := c.ExactModel("pbv1005acp")
	require.True(t, ok)
	require.Equal(t, "Chrome", p.FinishName)
	require.True(t, p.Active())

	p, ok = c.ExactModel("HS6270CP")
	require.True(t, ok)
	require.False(t, p.Active())

	_, ok = c.ExactModel("NOPE123")
	require.False(t, ok)
}

func TestByGroupAndVariations(t *testing.T) {
	c := testCatalog()

	group := c.ByGroup("PBV1005A")
	require.Len(t, group, 3)

	variations := c.FinishVariations("PBV1005A")
	require.Equal(t, map[string]string{
		"CP": "Chrome",
		"BN": "Brushed Nickel PVD",
	}, variations)

	// Partial group falls back to prefix matching.
	require.NotEmpty(t, c.ByGroup("TRM.TVH"))
	require.Empty(t, c.ByGroup("ZZZ"))
}

func TestPrefix(t *testing.T) {
	c := testCatalog()
	require.Len(t, c.Prefix("PBV", 10), 3)
	require.Len(t, c.Prefix("PBV", 2), 2)
	require.Empty(t, c.Prefix("QQQ", 10))
}

func TestFuzzyHandlesTypos(t *testing.T) {
	c := testCatalog()

	matches := c.Fuzzy("PBV1005ACB", 5)
	require.NotEmpty(t, matches)
	require.Equal(t, "PBV1005ACP", matches[0].Product.ModelNo)
	require.GreaterOrEqual(t, matches[0].Score, FuzzyMatchThreshold)

	// Exact queries score 1.0 and rank first.
	matches = c.Fuzzy("TRM.TVH.0211MB", 5)
	require.Equal(t, 1.0, matches[0].Score)

	// Second call hits the cache and returns the same ranking.
	again := c.Fuzzy("PBV1005ACB", 5)
	require.Equal(t, "PBV1005ACP", again[0].Product.ModelNo)
}

func TestFuzzyKeepsPrefixMatchesInLargeCatalogs(t *testing.T) {
	// The only prefix match sits at the very end of the index, behind more
	// filler models than the candidate cap admits.
	products := make([]*Product, 0, 121)
	for i := 0; i < 120; i++ {
		products = append(products, &Product{
			ModelNo: fmt.Sprintf("ZZZ%04d", i),
			Title:   "Filler",
			Status:  "Active",
		})
	}
	products = append(products, &Product{
		ModelNo: "PBV1005",
		Title:   "Pressure Balance Valve",
		Status:  "Active",
	})
	c := FromProducts(products)

	matches := c.Fuzzy("PBV105", 3)
	require.NotEmpty(t, matches)
	require.Equal(t, "PBV1005", matches[0].Product.ModelNo)
}

func TestSearchKeywords(t *testing.T) {
	c := testCatalog()

	results := c.SearchKeywords("braided hose hand shower", 10)
	require.NotEmpty(t, results)
	require.Equal(t, "HS6270CP", results[0].ModelNo)

	require.Empty(t, c.SearchKeywords("", 10))
	require.Empty(t, c.SearchKeywords("zeppelin", 10))
}

func TestRelatedParts(t *testing.T) {
	c := testCatalog()

	parts := c.RelatedParts("PBV1005ACP", 5)
	require.Len(t, parts, 1)
	require.Equal(t, "PBV1005A.SP01", parts[0].ModelNo)

	require.Empty(t, c.RelatedParts("UNKNOWN", 5))
}

func TestLoadManifest(t *testing.T) {
	products := []*Product{
		{ModelNo: "abc100cp", Title: "Widget", Category: "Shower", FinishCode: "CP", FinishName: "Chrome"},
	}
	data, err := json.Marshal(products)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.Stats().TotalProducts)

	// Model numbers are upper-cased on load.
	_, ok := c.ExactModel("ABC100CP")
	require.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"PBV1005A", "PBV1005A", 1, 1},
		{"PBV1005A", "PBV1005", 0.9, 1},
		{"PBV1005A", "XYZ999", 0, 0.3},
		{"", "PBV", 0, 0},
	}
	for _, tt := range tests {
		got := similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("similarity(%q, %q) = %v, want within [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}
