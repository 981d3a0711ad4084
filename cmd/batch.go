package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-scout/internal/model"
)

var batchFlags struct {
	file       string
	jsonOutput bool
}

// batchSubject is one entry in the batch input file.
type batchSubject struct {
	Subject        string  `yaml:"subject"`
	Brand          string  `yaml:"brand"`
	Category       string  `yaml:"category"`
	ReferencePrice float64 `yaml:"reference_price"`
	TargetCount    int     `yaml:"target_count"`
	Mode           string  `yaml:"mode"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Discover entities for many subjects from a YAML file",
	Long:  "Reads a YAML list of subjects and runs each through the waterfall in a bounded worker pool sized by batch.max_concurrent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs, err := loadBatchFile(batchFlags.file)
		if err != nil {
			return err
		}
		if len(reqs) == 0 {
			return eris.New("batch file has no subjects")
		}

		env, err := initEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("starting batch discovery",
			zap.Int("subjects", len(reqs)),
			zap.Int("max_concurrent", cfg.Batch.MaxConcurrent),
		)

		results, err := env.orch.RunAll(cmd.Context(), reqs, cfg.Batch.MaxConcurrent)
		if err != nil {
			return err
		}

		for _, res := range results {
			rec := model.NewRunRecord(uuid.New().String(), res)
			if err := env.store.SaveRun(cmd.Context(), rec); err != nil {
				zap.L().Warn("audit record not saved",
					zap.String("subject", res.Request.Subject),
					zap.Error(err),
				)
			}
		}

		if batchFlags.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(results)
		}
		for _, res := range results {
			fmt.Printf("== %s ==\n", res.Request.Subject)
			printResult(res)
			fmt.Println()
		}
		return nil
	},
}

func loadBatchFile(path string) ([]model.DiscoveryRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read batch file %s", path)
	}

	var subjects []batchSubject
	if err := yaml.Unmarshal(raw, &subjects); err != nil {
		return nil, eris.Wrapf(err, "parse batch file %s", path)
	}

	reqs := make([]model.DiscoveryRequest, 0, len(subjects))
	for i, s := range subjects {
		if s.Subject == "" || s.Category == "" {
			return nil, eris.Errorf("batch entry %d: subject and category are required", i)
		}
		mode := model.Mode(s.Mode)
		if mode == "" {
			mode = model.ModeCompetitors
		}
		if mode != model.ModeCompetitors && mode != model.ModeProducts {
			return nil, eris.Errorf("batch entry %d: unknown mode %q", i, s.Mode)
		}
		reqs = append(reqs, model.DiscoveryRequest{
			Subject:        s.Subject,
			Brand:          s.Brand,
			Category:       s.Category,
			ReferencePrice: s.ReferencePrice,
			TargetCount:    s.TargetCount,
			Mode:           mode,
		})
	}
	return reqs, nil
}

func init() {
	batchCmd.Flags().StringVarP(&batchFlags.file, "file", "f", "subjects.yaml", "YAML file with subjects to discover")
	batchCmd.Flags().BoolVar(&batchFlags.jsonOutput, "json", false, "print all results as JSON")
	rootCmd.AddCommand(batchCmd)
}
