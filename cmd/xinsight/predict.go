package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"xinsight/pkg/types"
)

func newPredictCmd(root *rootOptions) *cobra.Command {
	var stripHeatmaps bool
	cmd := &cobra.Command{
		Use:     "predict <image>",
		Short:   "Analyze one image and print the result as JSON",
		Example: "  xinsight predict --model models/densenet121_chestxray.onnx chest.png",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log, cmd.ErrOrStderr())

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if t := cfg.RequestTimeout(); t > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, t)
				defer cancel()
			}

			p, err := buildPipeline(ctx, cfg, log, true)
			if err != nil {
				return err
			}
			defer p.Close()

			start := time.Now()
			res, err := p.analyzer.Analyze(ctx, data)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			log.Debug().Dur("dur", time.Since(start)).Msg("analysis done")
			if stripHeatmaps {
				stripHeatmapData(&res)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Body())
		},
	}
	cmd.Flags().BoolVar(&stripHeatmaps, "strip-heatmaps", false, "Replace heatmap data URIs with null to keep the output readable")
	return cmd
}

// stripHeatmapData drops heatmap payloads but keeps the keys so the shape is unchanged.
func stripHeatmapData(res *types.PredictResult) {
	if res.MultiLabel != nil {
		for k := range res.MultiLabel.Heatmaps {
			res.MultiLabel.Heatmaps[k] = nil
		}
	}
	if res.Binary != nil {
		res.Binary.HeatmapImageBase64 = nil
	}
}
