package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ryeos/ryekernel/internal/capability"
	"github.com/ryeos/ryekernel/internal/constraint"
	"github.com/ryeos/ryekernel/internal/observability/logging"
	"github.com/spf13/cobra"
)

func GetCapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cap",
		Short: "Mint, attenuate, verify, and check capability tokens",
	}
	cmd.AddCommand(capMintCmd(), capAttenuateCmd(), capVerifyCmd(), capCheckCmd())
	return cmd
}

var (
	capSubjectFlag    string
	capCapsFlag       []string
	capTTLFlag        time.Duration
	capIssuerPrivFlag string
	capIssuerPubFlag  string
	capParentFlag     string
	capTokenFlag      string
	capRequiredFlag   string
	capConstraintFlag string
	capContextFlag    string
)

func capMintCmd() *cobra.Command {
	var mintTTL time.Duration
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a new root capability token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			logging.From(ctx).Event(ctx, "cap.mint.start", map[string]any{"subject": capSubjectFlag, "capabilities": capCapsFlag})

			privPEM, err := os.ReadFile(capIssuerPrivFlag)
			if err != nil {
				return fmt.Errorf("read issuer private key: %w", err)
			}
			pubPEM, err := os.ReadFile(capIssuerPubFlag)
			if err != nil {
				return fmt.Errorf("read issuer public key: %w", err)
			}

			token, err := capability.Mint(capSubjectFlag, capCapsFlag, mintTTL, privPEM, pubPEM)
			if err != nil {
				logging.From(ctx).Event(ctx, "cap.mint.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
				return err
			}
			logging.From(ctx).Event(ctx, "cap.mint.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok"})
			return printToken(cmd, token)
		},
	}
	cmd.Flags().StringVar(&capSubjectFlag, "subject", "", "Token subject (required)")
	cmd.Flags().StringSliceVar(&capCapsFlag, "capability", nil, "Capability string, repeatable (required)")
	cmd.Flags().DurationVar(&mintTTL, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&capIssuerPrivFlag, "issuer-private-key", "", "Issuer private key PEM path (required)")
	cmd.Flags().StringVar(&capIssuerPubFlag, "issuer-public-key", "", "Issuer public key PEM path (required)")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("capability")
	_ = cmd.MarkFlagRequired("issuer-private-key")
	_ = cmd.MarkFlagRequired("issuer-public-key")
	return cmd
}

func capAttenuateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attenuate",
		Short: "Derive a narrower token from a parent token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			logging.From(ctx).Event(ctx, "cap.attenuate.start", map[string]any{"capabilities": capCapsFlag})

			parent, err := loadToken(capParentFlag)
			if err != nil {
				return err
			}
			privPEM, err := os.ReadFile(capIssuerPrivFlag)
			if err != nil {
				return fmt.Errorf("read issuer private key: %w", err)
			}
			pubPEM, err := os.ReadFile(capIssuerPubFlag)
			if err != nil {
				return fmt.Errorf("read issuer public key: %w", err)
			}

			child, err := capability.Attenuate(parent, capCapsFlag, capTTLFlag, privPEM, pubPEM)
			if err != nil {
				logging.From(ctx).Event(ctx, "cap.attenuate.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "error"})
				return err
			}
			logging.From(ctx).Event(ctx, "cap.attenuate.complete", map[string]any{"duration_ms": time.Since(start).Milliseconds(), "result": "ok"})
			return printToken(cmd, child)
		},
	}
	cmd.Flags().StringVar(&capParentFlag, "parent", "", "Path to the parent token JSON (required)")
	cmd.Flags().StringSliceVar(&capCapsFlag, "capability", nil, "Narrowed capability string, repeatable (required)")
	cmd.Flags().DurationVar(&capTTLFlag, "ttl", 0, "Child lifetime, clamped to the parent's expiry (0 keeps parent's expiry)")
	cmd.Flags().StringVar(&capIssuerPrivFlag, "issuer-private-key", "", "Issuer private key PEM path (required)")
	cmd.Flags().StringVar(&capIssuerPubFlag, "issuer-public-key", "", "Issuer public key PEM path (required)")
	_ = cmd.MarkFlagRequired("parent")
	_ = cmd.MarkFlagRequired("capability")
	_ = cmd.MarkFlagRequired("issuer-private-key")
	_ = cmd.MarkFlagRequired("issuer-public-key")
	return cmd
}

func capVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a capability token's signature and expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			token, err := loadToken(capTokenFlag)
			if err != nil {
				return err
			}
			if err := capability.Verify(token, time.Now().UTC(), k.Trust); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%sinvalid%s %v\n", colorRed, colorReset, err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%svalid%s\n", colorGreen, colorReset)
			return nil
		},
	}
	cmd.Flags().StringVar(&capTokenFlag, "token", "", "Path to the token JSON (required)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func capCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a token authorizes a required capability",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel()
			if err != nil {
				return err
			}
			token, err := loadToken(capTokenFlag)
			if err != nil {
				return err
			}
			ok, err := capability.Check(token, capRequiredFlag, time.Now().UTC(), k.Trust, k.Hierarchy)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%sdenied%s %v\n", colorRed, colorReset, err)
				return err
			}
			if ok && capConstraintFlag != "" {
				ok, err = evalCapConstraint(capConstraintFlag, capContextFlag)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%sdenied%s constraint: %v\n", colorRed, colorReset, err)
					return nil
				}
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%sdenied%s %s not authorized\n", colorYellow, colorReset, capRequiredFlag)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sallowed%s %s\n", colorGreen, colorReset, capRequiredFlag)
			return nil
		},
	}
	cmd.Flags().StringVar(&capTokenFlag, "token", "", "Path to the token JSON (required)")
	cmd.Flags().StringVar(&capRequiredFlag, "require", "", "Required capability string (required)")
	cmd.Flags().StringVar(&capConstraintFlag, "constraint", "", "Optional CEL expression narrowing the check, evaluated against --context")
	cmd.Flags().StringVar(&capContextFlag, "context", "{}", "JSON object passed as the constraint's input map")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("require")
	return cmd
}

// evalCapConstraint narrows a capability check result with a CLI-level
// policy document's CEL constraint (component L's H call site) — it can
// only turn an allow into a deny, never the reverse, per constraint.Gate's
// own fail-closed contract.
func evalCapConstraint(expr, contextJSON string) (bool, error) {
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(contextJSON), &input); err != nil {
		return false, fmt.Errorf("parse --context: %w", err)
	}
	gate, err := constraint.NewGate()
	if err != nil {
		return false, err
	}
	return gate.Eval(expr, input)
}

func loadToken(path string) (*capability.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var t capability.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &t, nil
}

func printToken(cmd *cobra.Command, t *capability.Token) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
