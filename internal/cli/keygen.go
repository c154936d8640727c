package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/ryeos/ryekernel/internal/signing"
	"github.com/spf13/cobra"
)

var (
	keygenOutDirFlag string
	keygenNameFlag   string
)

func GetKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new Ed25519 signing keypair",
		RunE:  runKeygen,
	}
	cmd.Flags().StringVar(&keygenOutDirFlag, "out", ".ai/keys", "Directory to write the keypair into")
	cmd.Flags().StringVar(&keygenNameFlag, "name", "signer", "Base filename for the keypair (name.key, name.pub)")
	return cmd
}

func runKeygen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	logging.From(ctx).Event(ctx, "keygen.start", nil)

	kp, err := signing.GenerateKeyPair()
	if err != nil {
		logging.From(ctx).Event(ctx, "keygen.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
		return fmt.Errorf("generate keypair: %w", err)
	}

	privatePath := filepath.Join(keygenOutDirFlag, keygenNameFlag+".key")
	publicPath := filepath.Join(keygenOutDirFlag, keygenNameFlag+".pub")
	if err := signing.SaveKeyPair(kp, privatePath, publicPath); err != nil {
		logging.From(ctx).Event(ctx, "keygen.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
		return fmt.Errorf("save keypair: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%sgenerated keypair%s\n  private: %s\n  public:  %s\n",
		colorGreen, colorReset, privatePath, publicPath)
	logging.From(ctx).Event(ctx, "keygen.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok"})
	return nil
}
