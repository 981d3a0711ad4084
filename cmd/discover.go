package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-scout/internal/model"
)

var discoverFlags struct {
	brand          string
	category       string
	referencePrice float64
	targetCount    int
	mode           string
	jsonOutput     bool
	noAudit        bool
}

var discoverCmd = &cobra.Command{
	Use:   "discover <subject>",
	Short: "Discover competitors or prior products for a subject",
	Long:  "Runs the source waterfall for one subject and prints the ranked entities. Mode 'competitors' finds rival products; mode 'products' finds the brand's own earlier generations.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := discoveryRequest(args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), !discoverFlags.noAudit)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.orch.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		if env.store != nil {
			rec := model.NewRunRecord(uuid.New().String(), res)
			if err := env.store.SaveRun(cmd.Context(), rec); err != nil {
				zap.L().Warn("audit record not saved", zap.Error(err))
			}
		}

		if discoverFlags.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(res)
		}
		printResult(res)
		return nil
	},
}

func discoveryRequest(subject string) (model.DiscoveryRequest, error) {
	mode := model.Mode(discoverFlags.mode)
	if mode != model.ModeCompetitors && mode != model.ModeProducts {
		return model.DiscoveryRequest{}, eris.Errorf("unknown mode %q (competitors|products)", discoverFlags.mode)
	}
	if discoverFlags.category == "" {
		return model.DiscoveryRequest{}, eris.New("--category is required")
	}
	return model.DiscoveryRequest{
		Subject:        subject,
		Brand:          discoverFlags.brand,
		Category:       discoverFlags.category,
		ReferencePrice: discoverFlags.referencePrice,
		TargetCount:    discoverFlags.targetCount,
		Mode:           mode,
	}, nil
}

func printResult(res *model.DiscoveryResult) {
	fmt.Printf("%s (%s) via %s in %s\n", res.Request.Subject, res.Request.Mode, res.Source, res.Duration.Round(10*time.Millisecond))
	fmt.Printf("  %s\n", res.Provenance)
	for _, c := range res.Connectors {
		line := fmt.Sprintf("  [%s] %s", c.State, c.Service)
		if c.Reason != "" {
			line += " (" + c.Reason + ")"
		}
		fmt.Println(line)
	}
	fmt.Println()
	for i, e := range res.Entities {
		fmt.Printf("%2d. %-28s %-9s score=%.3f", i+1, e.Name, e.Tier, e.Score)
		if e.Price > 0 {
			fmt.Printf("  $%.0f", e.Price)
		}
		if e.Year > 0 {
			fmt.Printf("  (%d)", e.Year)
		}
		fmt.Printf("  sources=%v\n", e.Sources)
	}
}

func init() {
	discoverCmd.Flags().StringVar(&discoverFlags.brand, "brand", "", "subject's brand (defaults to the subject for product mode)")
	discoverCmd.Flags().StringVar(&discoverFlags.category, "category", "", "product category (e.g. smartphones)")
	discoverCmd.Flags().Float64Var(&discoverFlags.referencePrice, "price", 0, "subject's reference price")
	discoverCmd.Flags().IntVar(&discoverFlags.targetCount, "target", 0, "stop once this many unique entities are found (0 = query all sources)")
	discoverCmd.Flags().StringVar(&discoverFlags.mode, "mode", "competitors", "discovery mode: competitors or products")
	discoverCmd.Flags().BoolVar(&discoverFlags.jsonOutput, "json", false, "print the full result as JSON")
	discoverCmd.Flags().BoolVar(&discoverFlags.noAudit, "no-audit", false, "skip writing the run audit record")
	rootCmd.AddCommand(discoverCmd)
}
