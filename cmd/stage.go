package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/pipeline"
)

// stageFunc is a pipeline stage method.
type stageFunc func(p *pipeline.Pipeline, ctx context.Context, opts pipeline.StageOptions) (*model.Run, error)

func addStageFlags(cmd *cobra.Command, inHelp, outHelp string) {
	cmd.Flags().String("in", "", inHelp)
	cmd.Flags().String("out", "", outHelp)
	cmd.Flags().Int("limit", 0, "process only the first N rows (0 = all)")
}

func stageOptions(cmd *cobra.Command) pipeline.StageOptions {
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	limit, _ := cmd.Flags().GetInt("limit")
	return pipeline.StageOptions{In: in, Out: out, Limit: limit}
}

// runStage validates the config for stage, wires the pipeline and runs fn
// until it finishes or SIGINT/SIGTERM arrives.
func runStage(cmd *cobra.Command, stage model.Stage, opts pipeline.StageOptions, fn stageFunc) error {
	if err := cfg.Validate(string(stage)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, closeFn, err := initPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := fn(p, ctx, opts)
	if run != nil {
		formatRunsList(os.Stdout, []model.Run{*run})
	}
	return err
}
