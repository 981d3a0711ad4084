package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var keysJSON bool

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show credential pool status per service",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		status := env.creds.Status()
		if keysJSON {
			return json.NewEncoder(os.Stdout).Encode(status)
		}

		if len(status) == 0 {
			fmt.Println("no credential pools configured")
			return nil
		}
		for _, ps := range status {
			fmt.Printf("%s: %d/%d available\n", ps.Service, ps.Available, ps.Total)
			for _, c := range ps.Credentials {
				line := fmt.Sprintf("  %-10s %-9s uses=%d", c.Preview, c.Origin, c.TotalUses)
				if !c.Available {
					if c.CooldownUntil.IsZero() {
						line += "  disabled"
					} else {
						line += fmt.Sprintf("  cooling until %s", c.CooldownUntil.Format("15:04:05"))
					}
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	keysCmd.Flags().BoolVar(&keysJSON, "json", false, "print pool status as JSON")
	rootCmd.AddCommand(keysCmd)
}
