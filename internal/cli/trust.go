package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/spf13/cobra"
)

func GetTrustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage the trusted-key store",
	}
	cmd.AddCommand(trustAddCmd(), trustRemoveCmd(), trustListCmd(), trustPinRegistryCmd())
	return cmd
}

func trustAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <public-key.pem>",
		Short: "Trust a new public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			logging.From(ctx).Event(ctx, "trust.add.start", map[string]any{"path": args[0]})

			k, err := buildKernel()
			if err != nil {
				return err
			}
			pem, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			fp, err := k.Trust.AddKey(pem)
			if err != nil {
				logging.From(ctx).Event(ctx, "trust.add.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%strusted%s %s\n", colorGreen, colorReset, fp)
			logging.From(ctx).Event(ctx, "trust.add.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok", "fingerprint": fp})
			return nil
		},
	}
}

func trustRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <fingerprint>",
		Short: "Remove a trusted key by fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			removed, err := k.Trust.RemoveKey(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%sno such key%s %s\n", colorYellow, colorReset, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sremoved%s %s\n", colorGreen, colorReset, args[0])
			return nil
		},
	}
}

func trustListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trusted keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			entries, err := k.Trust.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				label := e.Label
				if e.IsRegistry {
					label = "registry"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", e.Fingerprint, label)
			}
			return nil
		},
	}
}

func trustPinRegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin-registry <public-key.pem>",
		Short: "Pin the registry's public key on first use (never overwrites an existing pin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			pem, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			fp, err := k.Trust.PinRegistryKey(pem)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sregistry key pinned%s %s\n", colorGreen, colorReset, fp)
			return nil
		},
	}
}
