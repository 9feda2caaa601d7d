package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sponsorkit/internal/domain"
	"sponsorkit/internal/infra/credentials"
)

var (
	credProvider string
	credToken    string
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage provider tokens stored in Postgres",
	Long: `Provider tokens stored here are used whenever the environment and the
config file leave them empty. Requires DATABASE_URL.

Available subcommands:
  set    - Store or replace a token
  list   - Show which providers have a stored token
  delete - Remove a stored token`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store or replace a provider token",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsSet,
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers with a stored token",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsList,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a stored provider token",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsDelete,
}

func init() {
	credentialsSetCmd.Flags().StringVarP(&credProvider, "provider", "p", "", "Provider name (github, patreon, opencollective, afdian, polar, youtube)")
	credentialsSetCmd.Flags().StringVarP(&credToken, "token", "t", "", "Token to store (falls back to SPONSORKIT_<PROVIDER>_TOKEN)")
	_ = credentialsSetCmd.MarkFlagRequired("provider")

	credentialsDeleteCmd.Flags().StringVarP(&credProvider, "provider", "p", "", "Provider name")
	_ = credentialsDeleteCmd.MarkFlagRequired("provider")

	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsListCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}

func openCredentials(ctx context.Context) (*credentials.Store, func(), error) {
	a, err := openInfra(ctx)
	if err != nil {
		return nil, nil, err
	}
	if a.sql == nil {
		a.close()
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	return credentials.NewStore(a.sql), a.close, nil
}

func tokenFromEnv(provider string) string {
	return strings.TrimSpace(os.Getenv("SPONSORKIT_" + strings.ToUpper(provider) + "_TOKEN"))
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(strings.TrimSpace(credProvider))
	if !credentials.Supported(provider) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownProvider, credProvider)
	}
	token := strings.TrimSpace(credToken)
	if token == "" {
		token = tokenFromEnv(provider)
	}
	if token == "" {
		return fmt.Errorf("%s token is required via --token or SPONSORKIT_%s_TOKEN", provider, strings.ToUpper(provider))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	store, closeFn, err := openCredentials(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := store.SetToken(ctx, provider, token); err != nil {
		return fmt.Errorf("failed to persist %s token: %w", provider, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s token stored successfully\n", provider)
	return nil
}

func runCredentialsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	store, closeFn, err := openCredentials(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no stored credentials")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Provider, e.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runCredentialsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	store, closeFn, err := openCredentials(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	provider := strings.ToLower(strings.TrimSpace(credProvider))
	if err := store.Delete(ctx, provider); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s token deleted\n", provider)
	return nil
}
