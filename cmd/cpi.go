package main

import (
	"github.com/spf13/cobra"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/pipeline"
)

var cpiCmd = &cobra.Command{
	Use:   "cpi",
	Short: "Manage the CPI ratio table",
}

var cpiFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download CPI from FRED and write the ratio table",
	Long:  "Downloads the configured FRED series and writes DATE,Ratio rows where Ratio = CPI(reference month) / CPI(month).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")
		return runStage(cmd, model.StageCPIFetch, pipeline.StageOptions{Out: out}, (*pipeline.Pipeline).FetchCPI)
	},
}

func init() {
	cpiFetchCmd.Flags().String("out", "", "ratio CSV (default paths.cpi_ratios)")
	cpiCmd.AddCommand(cpiFetchCmd)
	rootCmd.AddCommand(cpiCmd)
}
