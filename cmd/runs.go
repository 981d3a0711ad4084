package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/internal/store"
)

var runsFlags struct {
	source     string
	mode       string
	limit      int
	jsonOutput bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded discovery runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := env.store.ListRuns(cmd.Context(), store.RunFilter{
			Source: model.ResultSource(runsFlags.source),
			Mode:   model.Mode(runsFlags.mode),
			Limit:  runsFlags.limit,
		})
		if err != nil {
			return err
		}

		if runsFlags.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(recs)
		}

		if len(recs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("%s  %-24s %-11s %-8s d=%d i=%d e=%d  %s\n",
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.Request.Subject, r.Request.Mode, r.Source,
				r.Direct, r.Indirect, r.Emerging, r.Duration.Round(10*time.Millisecond),
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsFlags.source, "source", "", "filter by result source (live|fallback)")
	runsCmd.Flags().StringVar(&runsFlags.mode, "mode", "", "filter by mode (competitors|products)")
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "maximum runs to list")
	runsCmd.Flags().BoolVar(&runsFlags.jsonOutput, "json", false, "print runs as JSON")
	rootCmd.AddCommand(runsCmd)
}
