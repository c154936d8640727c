package cli

import (
	"fmt"
	"time"

	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/spf13/cobra"
)

func GetResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <type> <logical-id>",
		Short: "Resolve a logical id to a concrete file across the project/user/system tiers",
		Args:  cobra.ExactArgs(2),
		RunE:  runResolve,
	}
	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	itemType := item.Type(args[0])
	logicalID := args[1]
	logging.From(ctx).Event(ctx, "resolve.start", map[string]any{"type": string(itemType), "logical_id": logicalID})

	k, err := buildKernel()
	if err != nil {
		return err
	}

	path, space, err := k.Resolver.Resolve(itemType, logicalID)
	if err != nil {
		logging.From(ctx).Event(ctx, "resolve.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
		return err
	}

	scope := string(space.Tier)
	if space.BundleID != "" {
		scope = fmt.Sprintf("%s:%s", scope, space.BundleID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  (%s)\n", path, scope)
	logging.From(ctx).Event(ctx, "resolve.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok", "path": path, "tier": scope})
	return nil
}
