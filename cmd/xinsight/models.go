package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"xinsight/internal/common/fsutil"
	"xinsight/internal/registry"
	"xinsight/pkg/types"
)

func newModelsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models [dir]",
		Short: "List *.onnx models and their metadata sidecars",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := loadConfig(root)
				if err != nil {
					return err
				}
				dir, err = fsutil.ExpandHome(cfg.ModelPath)
				if err != nil {
					return err
				}
				if !fsutil.IsDir(dir) {
					dir = filepath.Dir(dir)
				}
			}
			models, err := registry.LoadDir(dir)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no *.onnx models in %s\n", dir)
				return nil
			}
			printModels(cmd.OutOrStdout(), models)
			return nil
		},
	}
}

func printModels(w io.Writer, models []types.ModelFile) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tMETADATA")
	for _, m := range models {
		meta := "-"
		if m.MetadataPath != "" {
			meta = filepath.Base(m.MetadataPath)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, humanize.Bytes(uint64(m.SizeBytes)), meta)
	}
	tw.Flush()
}
