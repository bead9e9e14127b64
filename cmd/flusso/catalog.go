package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the product catalog",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(cfg.Catalog.ManifestPath)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		stats := cat.Stats()
		fmt.Printf("products:  %d\n", stats.TotalProducts)
		fmt.Printf("groups:    %d\n", stats.TotalGroups)
		fmt.Printf("loaded:    %s (%s)\n", stats.LoadedAt.Format("2006-01-02 15:04:05"), stats.LoadDuration)
		return nil
	},
}

var catalogLookupCmd = &cobra.Command{
	Use:   "lookup [model]",
	Short: "Look a model number up, falling back to fuzzy matching",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(cfg.Catalog.ManifestPath)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}

		model := strings.ToUpper(strings.TrimSpace(args[0]))
		if p, ok := cat.ExactModel(model); ok {
			fmt.Printf("%s  %s (%s, %s)\n", p.ModelNo, p.Title, p.FinishName, p.Status)
			for _, v := range cat.ByGroup(p.GroupNumber) {
				if v.ModelNo != p.ModelNo {
					fmt.Printf("  variation: %s (%s)\n", v.ModelNo, v.FinishName)
				}
			}
			return nil
		}

		matches := cat.Fuzzy(model, 5)
		if len(matches) == 0 {
			return fmt.Errorf("no match for %q", model)
		}
		fmt.Printf("no exact match for %q, closest:\n", model)
		for _, m := range matches {
			fmt.Printf("  %s  %s (score %.2f)\n", m.Product.ModelNo, m.Product.Title, m.Score)
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogStatsCmd)
	catalogCmd.AddCommand(catalogLookupCmd)
}
