// Package cli assembles the ryectl command tree: a thin cobra layer over
// the domain packages (canon, signing, trust, extractor, resolver, chain,
// capability, lockfile, metadata, bundle, constraint), following the
// teacher's own root-command/flag/Event-logging idiom.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ryeos/ryekernel/internal/observability"
	"github.com/ryeos/ryekernel/internal/observability/logging"
	otelobs "github.com/ryeos/ryekernel/internal/observability/otel"
	"github.com/ryeos/ryekernel/internal/version"
	"github.com/spf13/cobra"
)

var (
	logFormatFlag string
	logLevelFlag  string
	logOutputFlag string

	otelEnabledFlag     bool
	otelEndpointFlag    string
	otelProtocolFlag    string
	otelInsecureFlag    bool
	otelServiceNameFlag string
	otelSampleRatioFlag float64
)

var rootCmd = &cobra.Command{
	Use:   "ryectl",
	Short: "Trust and resolution engine for agent tools, directives, and knowledge",
	Long: `ryectl: canonicalize, sign, verify, and resolve signed agent items
across project/user/system tiers, and mint/attenuate/check the capability
tokens that gate what a resolved tool is allowed to do.`,
	Version: version.BuildVersion(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := observability.WithOpID(context.Background())

		logger, err := logging.NewLogger(logging.Config{
			Format: logFormatFlag,
			Level:  logLevelFlag,
			Output: logOutputFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		ctx = logging.WithLogger(ctx, logger)

		if otelEnabledFlag {
			cfg := otelobs.Config{
				Enabled:     true,
				Endpoint:    otelEndpointFlag,
				Protocol:    otelProtocolFlag,
				Insecure:    otelInsecureFlag,
				ServiceName: otelServiceNameFlag,
				SampleRatio: otelSampleRatioFlag,
			}
			h, err := otelobs.Init(ctx, cfg)
			if err != nil {
				logger.Warn("otel", "failed to initialize OTel tracing", "error", err.Error())
			} else {
				ctx = otelobs.WithHandle(ctx, h)
			}
		}

		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			return nil
		}

		var errs []error

		if h := otelobs.From(ctx); h != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := h.Shutdown(shutdownCtx); err != nil {
				if lg := logging.From(ctx); lg != nil {
					lg.Warn("otel", "shutdown failed", "error", err.Error())
				}
			}
			cancel()
		}

		if lg := logging.From(ctx); lg != nil {
			errs = append(errs, lg.Close())
		}

		return errors.Join(errs...)
	},
}

// Execute runs the ryectl command tree and exits the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "pretty",
		"Log format: pretty (default, no structured logs) or jsonl (SIEM-friendly)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logOutputFlag, "log-output", "stderr",
		"Log output: stderr (default) or file path")

	rootCmd.PersistentFlags().BoolVar(&otelEnabledFlag, "otel", false,
		"Enable OpenTelemetry tracing (disabled by default)")
	rootCmd.PersistentFlags().StringVar(&otelEndpointFlag, "otel-endpoint", "",
		"OTel exporter endpoint (default: OTEL_EXPORTER_OTLP_ENDPOINT or http://localhost:4318)")
	rootCmd.PersistentFlags().StringVar(&otelProtocolFlag, "otel-protocol", "otlphttp",
		"OTel protocol: otlphttp (default) or otlpgrpc")
	rootCmd.PersistentFlags().BoolVar(&otelInsecureFlag, "otel-insecure", false,
		"Allow insecure OTel connections (no TLS)")
	rootCmd.PersistentFlags().StringVar(&otelServiceNameFlag, "otel-service-name", "ryekernel",
		"OTel service name for traces")
	rootCmd.PersistentFlags().Float64Var(&otelSampleRatioFlag, "otel-sample-ratio", 1.0,
		"OTel sampling ratio (0.0-1.0)")

	rootCmd.PersistentFlags().StringVar(&projectRootFlag, "project-root", os.Getenv("RYEKERNEL_PROJECT_ROOT"),
		"Project tier root (default: $RYEKERNEL_PROJECT_ROOT)")
	rootCmd.PersistentFlags().StringVar(&userSpaceFlag, "user-space", os.Getenv("RYEKERNEL_USER_SPACE"),
		"User tier root (default: $RYEKERNEL_USER_SPACE)")
	rootCmd.PersistentFlags().StringVar(&systemBundlesFlag, "system-bundles", os.Getenv("RYEKERNEL_SYSTEM_BUNDLES"),
		"Colon-separated system bundle roots (default: $RYEKERNEL_SYSTEM_BUNDLES)")
	rootCmd.PersistentFlags().StringVar(&trustDirFlag, "trust-dir", "",
		"Trust store directory (default: <user-space>/.ai/trust)")

	rootCmd.AddCommand(GetKeygenCmd())
	rootCmd.AddCommand(GetTrustCmd())
	rootCmd.AddCommand(GetSignCmd())
	rootCmd.AddCommand(GetVerifyCmd())
	rootCmd.AddCommand(GetResolveCmd())
	rootCmd.AddCommand(GetChainCmd())
	rootCmd.AddCommand(GetCapCmd())
	rootCmd.AddCommand(GetLockCmd())
	rootCmd.AddCommand(GetBundleCmd())
	rootCmd.AddCommand(GetExtractorCmd())
}
