package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run prepare, filter, scrape and realprice in sequence",
	Long:  "Runs every stage with the configured paths, stopping at the first failure. The CPI ratio table must already exist (see cpi fetch).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, stage := range []model.Stage{model.StagePrepare, model.StageFilter, model.StageScrape, model.StageRealPrice} {
			if err := cfg.Validate(string(stage)); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, closeFn, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := p.RunAll(ctx, limit)

		list := make([]model.Run, len(runs))
		for i, r := range runs {
			list[i] = *r
		}
		if len(list) > 0 {
			formatRunsList(os.Stdout, list)
		}
		return err
	},
}

func init() {
	runCmd.Flags().Int("limit", 0, "prepare only the first N raw rows (0 = all)")
	rootCmd.AddCommand(runCmd)
}
