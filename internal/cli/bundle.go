package cli

import (
	"fmt"
	"time"

	"github.com/ryeos/ryekernel/internal/bundle"
	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/spf13/cobra"
)

func GetBundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Install and inspect system-tier content bundles",
	}
	cmd.AddCommand(bundleInstallCmd(), bundleListCmd())
	return cmd
}

var bundleDestFlag string

func bundleInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <oci-ref>",
		Short: "Pin a floating OCI tag to its content digest, pull it, and extract it as a system bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			ref := args[0]
			logging.From(ctx).Event(ctx, "bundle.install.start", map[string]any{"ref": ref})

			manifest, err := bundle.InstallBundle(ref, bundleDestFlag)
			if err != nil {
				logging.From(ctx).Event(ctx, "bundle.install.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sinstalled%s %s -> %s\n", colorGreen, colorReset, manifest.Name, bundleDestFlag)
			if manifest.Source != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  pinned digest: %s\n", manifest.Source.Digest)
			}
			logging.From(ctx).Event(ctx, "bundle.install.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok", "name": manifest.Name})
			return nil
		},
	}
	cmd.Flags().StringVar(&bundleDestFlag, "dest", "", "Destination directory for the extracted bundle (required)")
	_ = cmd.MarkFlagRequired("dest")
	return cmd
}

func bundleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured system bundle roots and their accepted categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			if len(k.Resolver.SystemBundles) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%sno system bundles configured%s\n", colorYellow, colorReset)
				return nil
			}
			for _, b := range k.Resolver.SystemBundles {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  categories=%v\n", b.ID, b.Root, b.AcceptedCategories)
			}
			return nil
		},
	}
}
