package cli

import (
	"fmt"
	"time"

	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/spf13/cobra"
)

func GetChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <tool-id>",
		Short: "Resolve and integrity-verify a tool's executor chain down to its primitive",
		Args:  cobra.ExactArgs(1),
		RunE:  runChain,
	}
}

func runChain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	toolID := args[0]
	logging.From(ctx).Event(ctx, "chain.start", map[string]any{"tool_id": toolID})

	k, err := buildKernel()
	if err != nil {
		return err
	}

	links, err := k.Chain.Validate(toolID)
	if err != nil {
		logging.From(ctx).Event(ctx, "chain.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
		return err
	}

	for i, l := range links {
		executor := l.ExecutorID
		if executor == "" {
			executor = "(primitive)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  %s  -> %s\n", i, l.ToolID, l.ContentHash, executor)
	}
	logging.From(ctx).Event(ctx, "chain.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok", "depth": len(links)})
	return nil
}
