package main

import (
	"github.com/spf13/cobra"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/pipeline"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Add county auditor attributes",
	Long:  "Reads each parcel's summary page from the Hamilton County Auditor and adds school district, deed type, acreage, owner residence and foreclosure.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStage(cmd, model.StageScrape, stageOptions(cmd), (*pipeline.Pipeline).Scrape)
	},
}

func init() {
	addStageFlags(scrapeCmd, "input table (default paths.for_scraping)", "output table (default paths.transactions)")
	rootCmd.AddCommand(scrapeCmd)
}
