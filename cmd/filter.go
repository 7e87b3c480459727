package main

import (
	"github.com/spf13/cobra"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/pipeline"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Drop implausible transactions",
	Long:  "Drops rows with zero rooms, zero full baths or zero finished square feet, rows too far from the reference landmark, and rows with missing values. Runs before the scrape so only kept parcels are requested.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStage(cmd, model.StageFilter, stageOptions(cmd), (*pipeline.Pipeline).Filter)
	},
}

func init() {
	addStageFlags(filterCmd, "input table (default paths.prepared)", "output table (default paths.for_scraping)")
	rootCmd.AddCommand(filterCmd)
}
