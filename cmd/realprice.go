package main

import (
	"github.com/spf13/cobra"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/pipeline"
)

var realpriceCmd = &cobra.Command{
	Use:   "realprice",
	Short: "Convert sale prices to real dollars",
	Long:  "Drops incomplete rows and multiplies each price by the CPI ratio of its transfer month.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := stageOptions(cmd)
		opts.Ratios, _ = cmd.Flags().GetString("ratios")
		return runStage(cmd, model.StageRealPrice, opts, (*pipeline.Pipeline).RealPrice)
	},
}

func init() {
	addStageFlags(realpriceCmd, "input table (default paths.transactions)", "output table (default paths.real_prices)")
	realpriceCmd.Flags().String("ratios", "", "CPI ratio CSV (default paths.cpi_ratios)")
	rootCmd.AddCommand(realpriceCmd)
}
