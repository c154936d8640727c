package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func GetExtractorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extractor",
		Short: "Inspect and manage the metadata extractor registry",
	}
	cmd.AddCommand(extractorReloadCmd())
	return cmd
}

func extractorReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Drop cached extractor configs so the next resolve re-reads them from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			k.Extractors.Reset()
			fmt.Fprintf(cmd.OutOrStdout(), "%sextractor cache cleared%s\n", colorGreen, colorReset)
			return nil
		},
	}
}
