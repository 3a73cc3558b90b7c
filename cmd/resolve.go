package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/rankgrid/internal/resolve"
)

var (
	resolveName     string
	resolveLocation string
	resolveRadius   float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a business name to a grid target via the Places API",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := initPlaces()
		if err != nil {
			return err
		}

		result, err := resolve.Resolve(cmd.Context(), client, resolveName, resolveLocation, resolveRadius)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "business name (required)")
	resolveCmd.Flags().StringVar(&resolveLocation, "location", "", "location text to bias the search")
	resolveCmd.Flags().Float64Var(&resolveRadius, "radius", 0, "bias circle radius in meters")
	_ = resolveCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(resolveCmd)
}
