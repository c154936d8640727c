package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ryeos/ryekernel/internal/lockdiff"
	"github.com/ryeos/ryekernel/internal/lockfile"
	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/spf13/cobra"
)

func GetLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Save, load, and diff resolved dependency lockfiles",
	}
	cmd.AddCommand(lockSaveCmd(), lockLoadCmd(), lockDiffCmd())
	return cmd
}

var (
	lockToolIDFlag  string
	lockVersionFlag string
	lockFileFlag    string
)

func lockSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <lockfile.json>",
		Short: "Save a generated lockfile into the configured write scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			logging.From(ctx).Event(ctx, "lock.save.start", map[string]any{"path": args[0]})

			k, err := buildKernel()
			if err != nil {
				return err
			}
			lf, err := lockfile.Load(args[0])
			if err != nil {
				return err
			}
			written, err := k.Lockfiles.Put(lf)
			if err != nil {
				logging.From(ctx).Event(ctx, "lock.save.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%ssaved%s %s\n", colorGreen, colorReset, written)
			logging.From(ctx).Event(ctx, "lock.save.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok"})
			return nil
		},
	}
	return cmd
}

func lockLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the lockfile for a tool, applying project/user/system read precedence",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			lf, err := k.Lockfiles.Get(lockToolIDFlag, lockVersionFlag)
			if err != nil {
				return err
			}
			if lf == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%sno lockfile found%s for %s@%s\n", colorYellow, colorReset, lockToolIDFlag, lockVersionFlag)
				return nil
			}
			data, err := json.MarshalIndent(lf, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&lockToolIDFlag, "tool-id", "", "Tool id (required)")
	cmd.Flags().StringVar(&lockVersionFlag, "version", "", "Tool version (required)")
	_ = cmd.MarkFlagRequired("tool-id")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func lockDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <current-lockfile.json>",
		Short: "Compare a freshly resolved lockfile against the saved one, classifying drift by severity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			current, err := lockfile.Load(args[0])
			if err != nil {
				return err
			}
			saved, err := k.Lockfiles.Get(current.Root.ToolID, current.Root.Version)
			if err != nil {
				return err
			}
			if saved == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%sno saved lockfile%s to compare against\n", colorYellow, colorReset)
				return nil
			}
			report, err := lockdiff.Compare(saved, current)
			if err != nil {
				return err
			}
			if !report.HasChanges {
				fmt.Fprintf(cmd.OutOrStdout(), "%sno drift%s\n", colorGreen, colorReset)
				return nil
			}
			for _, c := range report.Changes {
				color := colorYellow
				if c.Severity == lockdiff.SeverityCritical {
					color = colorRed
				} else if c.Severity == lockdiff.SeveritySafe {
					color = colorGreen
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s[%s]%s %s: %s\n", color, c.Severity, colorReset, c.Path, c.Description)
			}
			return nil
		},
	}
	return cmd
}

