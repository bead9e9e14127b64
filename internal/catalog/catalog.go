// Package catalog holds the in-memory product catalog: a JSON manifest
// loaded into model, group, and keyword indexes with exact, prefix, fuzzy,
// and keyword search on top.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
)

const (
	// FuzzyMatchThreshold is the minimum similarity for fuzzy matches.
	FuzzyMatchThreshold = 0.75

	maxFuzzyCandidates = 100

	// DefaultLimit caps search results unless the caller asks otherwise.
	DefaultLimit = 10

	fuzzyCacheSize = 512
)

// Product is one catalog entry from the manifest.
type Product struct {
	ModelNo     string   `json:"model_no"`
	GroupNumber string   `json:"group_number"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
	Features    []string `json:"features,omitempty"`

	Category    string `json:"category"`
	SubCategory string `json:"sub_category,omitempty"`
	Collection  string `json:"collection,omitempty"`

	FinishCode string `json:"finish_code,omitempty"`
	FinishName string `json:"finish_name,omitempty"`

	ListPrice float64 `json:"list_price,omitempty"`

	Status      string `json:"status,omitempty"`
	IsSparePart bool   `json:"is_spare_part,omitempty"`

	ProductURL       string `json:"product_url,omitempty"`
	SpecSheetURL     string `json:"spec_sheet_url,omitempty"`
	InstallManualURL string `json:"install_manual_url,omitempty"`
	PartsDiagramURL  string `json:"parts_diagram_url,omitempty"`

	Warranty   string `json:"warranty,omitempty"`
	Popularity int    `json:"popularity,omitempty"`
}

// Active reports whether the product is sellable.
func (p *Product) Active() bool {
	return p.Status == "" || strings.EqualFold(p.Status, "active")
}

// Match is a fuzzy search hit with its similarity score.
type Match struct {
	Product *Product
	Score   float64
}

// Stats describes a loaded catalog.
type Stats struct {
	TotalProducts int       `json:"total_products"`
	TotalGroups   int       `json:"total_groups"`
	LoadedAt      time.Time `json:"loaded_at"`
	LoadDuration  string    `json:"load_duration"`
}

// Catalog is a read-heavy product index. All search methods are safe for
// concurrent use once the catalog is loaded.
type Catalog struct {
	mu sync.RWMutex

	products  []*Product
	byModel   map[string]*Product
	byGroup   map[string][]*Product
	keywords  map[string][]string
	allModels []string

	fuzzyCache *lru.Cache[string, []Match]

	stats Stats
}

var tokenPattern = regexp.MustCompile(`\b[a-z0-9]+(?:\.[a-z0-9]+)*\b`)

// New returns an empty catalog.
func New() *Catalog {
	cache, _ := lru.New[string, []Match](fuzzyCacheSize)
	return &Catalog{
		byModel:    make(map[string]*Product),
		byGroup:    make(map[string][]*Product),
		keywords:   make(map[string][]string),
		fuzzyCache: cache,
	}
}

// Load reads a JSON manifest (an array of products) and rebuilds every index.
func Load(path string) (*Catalog, error) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog manifest: %w", err)
	}

	var products []*Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parsing catalog manifest %s: %w", path, err)
	}

	c := FromProducts(products)
	c.stats.LoadDuration = time.Since(start).String()
	logging.Catalog("loaded %d products (%d groups) from %s in %s",
		c.stats.TotalProducts, c.stats.TotalGroups, path, c.stats.LoadDuration)
	return c, nil
}

// FromProducts builds a catalog from already-parsed products.
func FromProducts(products []*Product) *Catalog {
	c := New()
	for _, p := range products {
		if p == nil || strings.TrimSpace(p.ModelNo) == "" {
			continue
		}
		p.ModelNo = strings.ToUpper(strings.TrimSpace(p.ModelNo))
		if p.GroupNumber == "" {
			p.GroupNumber = p.ModelNo
		}
		p.GroupNumber = strings.ToUpper(strings.TrimSpace(p.GroupNumber))
		c.index(p)
	}
	c.buildKeywordIndex()
	c.stats.TotalProducts = len(c.products)
	c.stats.TotalGroups = len(c.byGroup)
	c.stats.LoadedAt = time.Now()
	return c
}

func (c *Catalog) index(p *Product) {
	c.products = append(c.products, p)
	c.byModel[p.ModelNo] = p
	c.allModels = append(c.allModels, p.ModelNo)
	c.byGroup[p.GroupNumber] = append(c.byGroup[p.GroupNumber], p)
}

func (c *Catalog) buildKeywordIndex() {
	for _, p := range c.products {
		searchable := strings.ToLower(strings.Join([]string{
			p.ModelNo, p.GroupNumber, p.Title, p.Keywords,
			p.Category, p.SubCategory, p.Collection, p.FinishName,
			strings.Join(p.Features, " "),
		}, " "))
		seen := make(map[string]bool)
		for _, token := range tokenPattern.FindAllString(searchable, -1) {
			if len(token) < 2 || seen[token] {
				continue
			}
			seen[token] = true
			c.keywords[token] = append(c.keywords[token], p.ModelNo)
		}
	}
}

// ExactModel finds a product by exact model number.
func (c *Catalog) ExactModel(modelNo string) (*Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byModel[normalize(modelNo)]
	return p, ok
}

// ByGroup returns every finish variation of a product group. A partial group
// number falls back to prefix matching over group keys.
func (c *Catalog) ByGroup(groupNo string) []*Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	normalized := normalize(groupNo)
	if products, ok := c.byGroup[normalized]; ok {
		return append([]*Product(nil), products...)
	}

	var matches []*Product
	for key, products := range c.byGroup {
		if strings.HasPrefix(key, normalized) {
			matches = append(matches, products...)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ModelNo < matches[j].ModelNo })
	return matches
}

// Prefix returns up to limit products whose model number starts with the
// given prefix.
func (c *Catalog) Prefix(prefix string, limit int) []*Product {
	if limit <= 0 {
		limit = DefaultLimit
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	normalized := normalize(prefix)
	var matches []*Product
	for _, modelNo := range c.allModels {
		if strings.HasPrefix(modelNo, normalized) {
			matches = append(matches, c.byModel[modelNo])
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches
}

// Fuzzy finds products with similar model numbers, tolerating typos. Results
// are sorted by similarity, best first, and cached per query.
func (c *Catalog) Fuzzy(query string, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	normalized := normalize(query)
	if normalized == "" {
		return nil
	}

	if cached, ok := c.fuzzyCache.Get(normalized); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached
	}

	c.mu.RLock()
	// Prefix candidates first, they cover almost every real typo.
	prefix := normalized
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	var candidates []string
	for _, modelNo := range c.allModels {
		if strings.HasPrefix(modelNo, prefix) {
			candidates = append(candidates, modelNo)
		}
	}
	if len(candidates) < maxFuzzyCandidates {
		// Top up with the rest of the index, keeping the prefix matches.
		seen := make(map[string]bool, len(candidates))
		for _, modelNo := range candidates {
			seen[modelNo] = true
		}
		for _, modelNo := range c.allModels {
			if len(candidates) >= maxFuzzyCandidates {
				break
			}
			if !seen[modelNo] {
				candidates = append(candidates, modelNo)
			}
		}
	}
	if len(candidates) > maxFuzzyCandidates {
		candidates = candidates[:maxFuzzyCandidates]
	}

	var matches []Match
	for _, modelNo := range candidates {
		score := similarity(normalized, modelNo)
		if score >= FuzzyMatchThreshold {
			matches = append(matches, Match{Product: c.byModel[modelNo], Score: score})
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	c.fuzzyCache.Add(normalized, matches)

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// SearchKeywords ranks products by how many query tokens hit the keyword
// index.
func (c *Catalog) SearchKeywords(query string, limit int) []*Product {
	if limit <= 0 {
		limit = DefaultLimit
	}
	tokens := tokenPattern.FindAllString(strings.ToLower(query), -1)
	if len(tokens) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	scores := make(map[string]int)
	for _, token := range tokens {
		for _, modelNo := range c.keywords[token] {
			scores[modelNo]++
		}
	}
	if len(scores) == 0 {
		return nil
	}

	ranked := make([]string, 0, len(scores))
	for modelNo := range scores {
		ranked = append(ranked, modelNo)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	results := make([]*Product, 0, len(ranked))
	for _, modelNo := range ranked {
		results = append(results, c.byModel[modelNo])
	}
	return results
}

// FinishVariations maps finish code to finish name for every product in a
// group.
func (c *Catalog) FinishVariations(groupNo string) map[string]string {
	variations := make(map[string]string)
	for _, p := range c.ByGroup(groupNo) {
		if p.FinishCode != "" {
			variations[p.FinishCode] = p.FinishName
		}
	}
	return variations
}

// RelatedParts finds spare parts that share a product's group.
func (c *Catalog) RelatedParts(modelNo string, limit int) []*Product {
	if limit <= 0 {
		limit = 5
	}
	p, ok := c.ExactModel(modelNo)
	if !ok {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	groupPrefix := p.GroupNumber
	if len(groupPrefix) > 7 {
		groupPrefix = groupPrefix[:7]
	}
	var related []*Product
	for _, modelKey := range c.allModels {
		part := c.byModel[modelKey]
		if !part.IsSparePart {
			continue
		}
		if strings.Contains(modelKey, p.GroupNumber) || strings.HasPrefix(modelKey, groupPrefix) {
			related = append(related, part)
			if len(related) >= limit {
				break
			}
		}
	}
	return related
}

// Stats returns load statistics.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
