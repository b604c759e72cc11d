package main

import (
	"github.com/spf13/cobra"

	"xinsight/internal/config"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
	logFormat  string
	modelPath  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "xinsight",
		Short:         "Chest X-ray analysis service",
		Long:          "xinsight classifies chest X-rays, renders Grad-CAM heatmaps, validates findings against a medical knowledge base and drafts a radiology report.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, serveOptions{})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringSliceVar(&opts.envFiles, "env-file", nil, "Extra .env files to load (default ./.env when present)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: console|json (overrides config)")
	pf.StringVar(&opts.modelPath, "model", "", "ONNX model file or directory (overrides config)")

	root.AddCommand(
		newServeCmd(opts),
		newPredictCmd(opts),
		newCheckModelCmd(opts),
		newModelsCmd(opts),
	)
	return root
}

// loadConfig resolves file, .env and environment settings, then applies flags.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Resolve(opts.configPath, opts.envFiles...)
	if err != nil {
		return cfg, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.modelPath != "" {
		cfg.ModelPath = opts.modelPath
	}
	return cfg, cfg.Validate()
}
