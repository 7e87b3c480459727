package main

import (
	"github.com/spf13/cobra"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/pipeline"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Merge raw extracts and derive columns",
	Long:  "Merges every raw sales extract, parses BBB into room counts, normalises and geocodes addresses, measures distances to the landmarks, and computes age and numeric price. Writes the filter input table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStage(cmd, model.StagePrepare, stageOptions(cmd), (*pipeline.Pipeline).Prepare)
	},
}

func init() {
	addStageFlags(prepareCmd, "raw extracts directory (default paths.raw_dir)", "output table (default paths.prepared)")
	rootCmd.AddCommand(prepareCmd)
}
