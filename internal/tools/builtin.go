package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/abhijyotiba/Flusso-Automation/internal/catalog"
	"github.com/abhijyotiba/Flusso-Automation/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation/internal/extract"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

// Findings collects the evidence items tool calls produce during one agent
// run. Safe for concurrent use.
type Findings struct {
	mu    sync.Mutex
	items []evidence.Item
}

// Add appends evidence items.
func (f *Findings) Add(items ...evidence.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
}

// Items returns a copy of everything collected so far.
func (f *Findings) Items() []evidence.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]evidence.Item(nil), f.items...)
}

// DocumentHit is one document search result.
type DocumentHit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Model string `json:"model,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// DocumentSearcher searches spec sheets and installation manuals.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, query string, limit int) ([]DocumentHit, error)
}

// VisionHit is one image similarity result.
type VisionHit struct {
	Model string  `json:"model"`
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score"`
}

// VisionSearcher finds catalog products visually similar to an attachment.
type VisionSearcher interface {
	SearchImage(ctx context.Context, imageURL string, limit int) ([]VisionHit, error)
}

// PastTicket is one historical ticket summary.
type PastTicket struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Category   string `json:"category,omitempty"`
	Model      string `json:"model,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// HistorySearcher searches resolved tickets from the same requester or topic.
type HistorySearcher interface {
	SearchPastTickets(ctx context.Context, query string, limit int) ([]PastTicket, error)
}

// visual similarity tiers
const (
	visionHighThreshold = 0.85
	visionWeakThreshold = 0.50
)

// Builtins wires the standard tool set to its backing services. Catalog and
// Findings are required; the other capabilities are optional and their tools
// are only registered when present.
type Builtins struct {
	Catalog  *catalog.Catalog
	Findings *Findings

	Documents DocumentSearcher
	Vision    VisionSearcher
	History   HistorySearcher

	// Ticket gives the attachment analyzer access to the current ticket.
	Ticket *ticket.Ticket
}

// RegisterBuiltins registers every available built-in tool.
func RegisterBuiltins(r *Registry, b Builtins) error {
	if b.Catalog == nil {
		return fmt.Errorf("register builtins: catalog is required")
	}
	if b.Findings == nil {
		b.Findings = &Findings{}
	}

	r.MustRegister(productLookupTool(b))
	r.MustRegister(productSearchTool(b))
	r.MustRegister(documentSearchTool(b))
	if b.Vision != nil {
		r.MustRegister(visionSearchTool(b))
	}
	if b.History != nil {
		r.MustRegister(pastTicketsTool(b))
	}
	if b.Ticket != nil {
		r.MustRegister(attachmentAnalyzerTool(b))
	}
	return nil
}

func productLookupTool(b Builtins) *Tool {
	return &Tool{
		Name:        "product_lookup",
		Description: "Look up a product by exact model number. Falls back to finish variations and close fuzzy matches when the exact model is unknown.",
		Category:    CategoryCatalog,
		Priority:    90,
		Schema: Schema{
			Required: []string{"model"},
			Properties: map[string]Property{
				"model": {Type: "string", Description: "Product model number, e.g. PBV1005ACP"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			model, err := stringArg(args, "model")
			if err != nil {
				return "", err
			}

			if p, ok := b.Catalog.ExactModel(model); ok {
				b.Findings.Add(evidence.Item{
					Tier:       evidence.TierCatalogConfirmed,
					Source:     "product_lookup",
					Model:      p.ModelNo,
					Name:       p.Title,
					Category:   p.Category,
					Confidence: 1.0,
					ExactMatch: true,
				})
				related := make([]string, 0, 5)
				for _, part := range b.Catalog.RelatedParts(p.ModelNo, 5) {
					related = append(related, part.ModelNo)
				}
				return toolJSON(map[string]any{
					"found":         true,
					"model":         p.ModelNo,
					"title":         p.Title,
					"category":      p.Category,
					"finish":        p.FinishName,
					"finishes":      b.Catalog.FinishVariations(p.GroupNumber),
					"related_parts": related,
					"active":        p.Active(),
					"spec_sheet":    p.SpecSheetURL,
					"is_spare":      p.IsSparePart,
					"list_price":    p.ListPrice,
					"group":         p.GroupNumber,
					"product_url":   p.ProductURL,
				})
			}

			// Not an exact model; maybe the customer gave the group number.
			if group := b.Catalog.ByGroup(model); len(group) > 0 {
				variations := make([]map[string]any, 0, len(group))
				for _, p := range group {
					variations = append(variations, map[string]any{
						"model": p.ModelNo, "finish": p.FinishName,
					})
				}
				return toolJSON(map[string]any{
					"found":      false,
					"group":      true,
					"variations": variations,
					"note":       "Model matches a product group; ask for or infer the finish to pin down the exact SKU.",
				})
			}

			// A truncated model number completes by prefix before any
			// typo correction kicks in.
			if pre := b.Catalog.Prefix(model, 5); len(pre) > 0 {
				completions := make([]map[string]any, 0, len(pre))
				for _, p := range pre {
					b.Findings.Add(evidence.Item{
						Tier:       evidence.TierWeak,
						Source:     "product_lookup_prefix",
						Model:      p.ModelNo,
						Name:       p.Title,
						Category:   p.Category,
						Confidence: 0.5,
					})
					completions = append(completions, map[string]any{
						"model": p.ModelNo, "title": p.Title, "finish": p.FinishName,
					})
				}
				return toolJSON(map[string]any{
					"found":       false,
					"prefix":      true,
					"completions": completions,
					"note":        "Model looks truncated; these catalog models start with it.",
				})
			}

			matches := b.Catalog.Fuzzy(model, 3)
			suggestions := make([]map[string]any, 0, len(matches))
			for _, m := range matches {
				b.Findings.Add(evidence.Item{
					Tier:       evidence.TierWeak,
					Source:     "product_lookup_fuzzy",
					Model:      m.Product.ModelNo,
					Name:       m.Product.Title,
					Category:   m.Product.Category,
					Confidence: m.Score * 0.6,
				})
				suggestions = append(suggestions, map[string]any{
					"model": m.Product.ModelNo, "title": m.Product.Title, "score": m.Score,
				})
			}
			return toolJSON(map[string]any{"found": false, "suggestions": suggestions})
		},
	}
}

func productSearchTool(b Builtins) *Tool {
	return &Tool{
		Name:        "product_search",
		Description: "Keyword search over the product catalog (title, category, collection, finish). Use when no model number is known.",
		Category:    CategoryCatalog,
		Priority:    70,
		Schema: Schema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Free-text description of the product"},
				"limit": {Type: "integer", Description: "Maximum results", Default: 5},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return "", err
			}
			results := b.Catalog.SearchKeywords(query, intArg(args, "limit", 5))
			out := make([]map[string]any, 0, len(results))
			for _, p := range results {
				b.Findings.Add(evidence.Item{
					Tier:       evidence.TierWeak,
					Source:     "product_search",
					Model:      p.ModelNo,
					Name:       p.Title,
					Category:   p.Category,
					Confidence: 0.5,
				})
				out = append(out, map[string]any{
					"model": p.ModelNo, "title": p.Title, "category": p.Category, "finish": p.FinishName,
				})
			}
			return toolJSON(map[string]any{"results": out})
		},
	}
}

func documentSearchTool(b Builtins) *Tool {
	return &Tool{
		Name:        "document_search",
		Description: "Find spec sheets, installation manuals, and parts diagrams for a product or topic.",
		Category:    CategoryDocument,
		Priority:    60,
		Schema: Schema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Model number or topic to find documents for"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return "", err
			}

			var hits []DocumentHit
			if b.Documents != nil {
				hits, err = b.Documents.SearchDocuments(ctx, query, 5)
				if err != nil {
					return "", fmt.Errorf("document search: %w", err)
				}
			} else {
				hits = catalogDocuments(b.Catalog, query)
			}
			return toolJSON(map[string]any{"documents": hits})
		},
	}
}

// catalogDocuments is the fallback document source: the URLs already on the
// catalog entries matching the query.
func catalogDocuments(c *catalog.Catalog, query string) []DocumentHit {
	products := []*catalog.Product{}
	if p, ok := c.ExactModel(query); ok {
		products = append(products, p)
	} else {
		products = c.SearchKeywords(query, 3)
	}

	var hits []DocumentHit
	for _, p := range products {
		if p.SpecSheetURL != "" {
			hits = append(hits, DocumentHit{Title: p.Title + " spec sheet", URL: p.SpecSheetURL, Model: p.ModelNo, Kind: "spec_sheet"})
		}
		if p.InstallManualURL != "" {
			hits = append(hits, DocumentHit{Title: p.Title + " installation manual", URL: p.InstallManualURL, Model: p.ModelNo, Kind: "install_manual"})
		}
		if p.PartsDiagramURL != "" {
			hits = append(hits, DocumentHit{Title: p.Title + " parts diagram", URL: p.PartsDiagramURL, Model: p.ModelNo, Kind: "parts_diagram"})
		}
	}
	return hits
}

func visionSearchTool(b Builtins) *Tool {
	return &Tool{
		Name:        "vision_search",
		Description: "Find catalog products visually similar to an attached customer photo.",
		Category:    CategoryVision,
		Priority:    50,
		Schema: Schema{
			Required: []string{"image_url"},
			Properties: map[string]Property{
				"image_url": {Type: "string", Description: "URL of the attached photo to match"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			imageURL, err := stringArg(args, "image_url")
			if err != nil {
				return "", err
			}
			hits, err := b.Vision.SearchImage(ctx, imageURL, 5)
			if err != nil {
				return "", fmt.Errorf("vision search: %w", err)
			}
			for _, h := range hits {
				tier := evidence.TierWeak
				if h.Score >= visionHighThreshold {
					tier = evidence.TierVisualHigh
				} else if h.Score < visionWeakThreshold {
					continue
				}
				b.Findings.Add(evidence.Item{
					Tier:       tier,
					Source:     "vision_search",
					Model:      h.Model,
					Name:       h.Title,
					Confidence: h.Score,
				})
			}
			return toolJSON(map[string]any{"matches": hits})
		},
	}
}

func pastTicketsTool(b Builtins) *Tool {
	return &Tool{
		Name:        "past_tickets",
		Description: "Search previously resolved tickets from the same customer or about the same product.",
		Category:    CategoryHistory,
		Priority:    40,
		Schema: Schema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Customer email, model number, or topic"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return "", err
			}
			past, err := b.History.SearchPastTickets(ctx, query, 5)
			if err != nil {
				return "", fmt.Errorf("past tickets: %w", err)
			}
			for _, t := range past {
				if t.Model == "" {
					continue
				}
				b.Findings.Add(evidence.Item{
					Tier:       evidence.TierWeak,
					Source:     "past_tickets",
					Model:      t.Model,
					Category:   t.Category,
					Confidence: 0.55,
				})
			}
			return toolJSON(map[string]any{"tickets": past})
		},
	}
}

func attachmentAnalyzerTool(b Builtins) *Tool {
	return &Tool{
		Name:        "attachment_analyzer",
		Description: "Inspect the ticket's attachments: counts by kind and any model numbers visible in filenames, verified against the catalog.",
		Category:    CategoryAttachment,
		Priority:    95,
		Schema:      Schema{Properties: map[string]Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			photos, videos, documents := b.Ticket.AttachmentCounts()
			counts := map[string]int{
				"photos":    photos,
				"videos":    videos,
				"documents": documents,
			}

			var filenameModels []string
			for _, a := range b.Ticket.Attachments {
				for _, code := range extract.ExtractProductCodes(a.Filename) {
					model := strings.ToUpper(code.FullSKU)
					if p, ok := b.Catalog.ExactModel(model); ok {
						b.Findings.Add(evidence.Item{
							Tier:       evidence.TierVisualHigh,
							Source:     "attachment_analyzer",
							Model:      p.ModelNo,
							Name:       p.Title,
							Category:   p.Category,
							Confidence: 0.8,
						})
					} else {
						b.Findings.Add(evidence.Item{
							Tier:       evidence.TierWeak,
							Source:     "attachment_analyzer",
							Model:      model,
							Confidence: 0.5,
						})
					}
					filenameModels = append(filenameModels, model)
				}
			}

			return toolJSON(map[string]any{
				"counts":          counts,
				"filename_models": filenameModels,
			})
		},
	}
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredArg, key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidArgType, key)
	}
	return strings.TrimSpace(s), nil
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func toolJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding tool output: %w", err)
	}
	return string(data), nil
}
