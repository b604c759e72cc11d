package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"xinsight/internal/registry"
	"xinsight/internal/vision"
)

func newCheckModelCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check-model [model]",
		Short: "Inspect an ONNX model and the metadata that will drive it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			path := cfg.ModelPath
			if len(args) == 1 {
				path = args[0]
			}
			file, err := registry.Resolve(path, cfg.ModelID)
			if err != nil {
				return err
			}
			s, err := vision.Describe(file, cfg.MetadataPath, cfg.OrtLibraryPath)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			printSummary(cmd.OutOrStdout(), s)
			if s.Problem != "" {
				return fmt.Errorf("model %s is not usable: %s", file.ID, s.Problem)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func printSummary(w io.Writer, s vision.Summary) {
	fmt.Fprintf(w, "Model:    %s (%s)\n", s.Model.Path, humanize.Bytes(uint64(s.Model.SizeBytes)))
	if s.Model.MetadataPath != "" {
		fmt.Fprintf(w, "Metadata: %s\n", s.Model.MetadataPath)
	}
	fmt.Fprintln(w, "Inputs:")
	for _, t := range s.Inputs {
		fmt.Fprintf(w, "  %-24s %v\n", t.Name, t.Shape)
	}
	fmt.Fprintln(w, "Outputs:")
	for _, t := range s.Outputs {
		fmt.Fprintf(w, "  %-24s %v\n", t.Name, t.Shape)
	}
	m := s.Metadata
	fmt.Fprintf(w, "Mode:     %s\n", m.Mode)
	fmt.Fprintf(w, "Layout:   %s, %dx%d\n", m.Layout, m.ImageSize, m.ImageSize)
	if len(m.Classes) > 0 {
		fmt.Fprintf(w, "Classes:  %s\n", strings.Join(m.Classes, ", "))
	}
	if m.HasGradCAM() {
		fmt.Fprintf(w, "Grad-CAM: %s -> %s\n", m.ActivationsOutput, m.GradientsOutput)
	} else {
		fmt.Fprintln(w, "Grad-CAM: unavailable (no activation/gradient outputs)")
	}
	if s.Problem != "" {
		fmt.Fprintf(w, "Problem:  %s\n", s.Problem)
	}
}
