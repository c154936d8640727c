package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/spf13/cobra"
)

var (
	signTypeFlag       string
	signPrivateKeyFlag string
	signPublicKeyFlag  string
)

func GetSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <path>",
		Short: "Embed a signature line into a directive, tool, or knowledge file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSign,
	}
	cmd.Flags().StringVar(&signTypeFlag, "type", "", "Item type: directive, tool, or knowledge (required)")
	cmd.Flags().StringVar(&signPrivateKeyFlag, "private-key", "", "Path to the signer's private key PEM (required)")
	cmd.Flags().StringVar(&signPublicKeyFlag, "public-key", "", "Path to the signer's public key PEM (required)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("private-key")
	_ = cmd.MarkFlagRequired("public-key")
	return cmd
}

func runSign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	path := args[0]
	logging.From(ctx).Event(ctx, "sign.start", map[string]any{"path": path, "type": signTypeFlag})

	k, err := buildKernel()
	if err != nil {
		return err
	}

	privPEM, err := os.ReadFile(signPrivateKeyFlag)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(signPublicKeyFlag)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}

	err = k.Metadata.SignFile(path, item.Type(signTypeFlag), privPEM, pubPEM, time.Now().UTC().Format(time.RFC3339), k.tierRoots())
	if err != nil {
		logging.From(ctx).Event(ctx, "sign.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%ssigned%s %s\n", colorGreen, colorReset, path)
	logging.From(ctx).Event(ctx, "sign.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok"})
	return nil
}

var verifyTypeFlag string

func GetVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <path>",
		Short: "Run the full integrity check against a signed file",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	cmd.Flags().StringVar(&verifyTypeFlag, "type", "", "Item type: directive, tool, or knowledge (required)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	path := args[0]
	logging.From(ctx).Event(ctx, "verify.start", map[string]any{"path": path, "type": verifyTypeFlag})

	k, err := buildKernel()
	if err != nil {
		return err
	}

	hash, err := k.Metadata.VerifyFile(path, item.Type(verifyTypeFlag), k.tierRoots())
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%sverification failed%s %s: %v\n", colorRed, colorReset, path, err)
		logging.From(ctx).Event(ctx, "verify.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sverified%s %s  (%s)\n", colorGreen, colorReset, path, hash)
	logging.From(ctx).Event(ctx, "verify.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok", "content_hash": hash})
	return nil
}
