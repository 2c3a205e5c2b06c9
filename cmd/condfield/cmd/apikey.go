package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/solatis/condfield/internal/core/auth"
	"github.com/solatis/condfield/internal/core/config"
)

var (
	apikeyName     string
	apikeySecretID string
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys for the authoring service",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	Long: `Create signs a new API key with one of the HMAC secrets from CF_HMAC_SECRET
or CF_HMAC_SECRET_N and stores its hash. The key is printed once and cannot
be recovered afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if apikeyName == "" {
			return fmt.Errorf("--name is required")
		}
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		secretID, err := pickSecret(secrets, apikeySecretID)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		_, queries, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		issued, err := auth.Issue(cmd.Context(), queries, secretID, secrets[secretID], apikeyName)
		if err != nil {
			return err
		}
		logger.Info("api key issued", "api_key_id", issued.ID, "name", issued.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", issued.ID, issued.Key)
		return nil
	},
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		_, queries, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := auth.Revoke(cmd.Context(), queries, args[0]); err != nil {
			return fmt.Errorf("failed to revoke %s: %w", args[0], err)
		}
		logger.Info("api key revoked", "api_key_id", args[0])
		return nil
	},
}

// pickSecret returns the requested secret id, or the only configured one.
func pickSecret(secrets map[string][]byte, requested string) (string, error) {
	if len(secrets) == 0 {
		return "", fmt.Errorf("no HMAC secrets configured (set %s_HMAC_SECRET)", config.EnvPrefix)
	}
	if requested != "" {
		if _, ok := secrets[requested]; !ok {
			return "", fmt.Errorf("unknown secret id %q", requested)
		}
		return requested, nil
	}
	if len(secrets) > 1 {
		ids := make([]string, 0, len(secrets))
		for id := range secrets {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return "", fmt.Errorf("several HMAC secrets configured, choose one with --secret-id (%v)", ids)
	}
	for id := range secrets {
		return id, nil
	}
	return "", nil
}

func init() {
	apikeyCreateCmd.Flags().StringVar(&apikeyName, "name", "", "client name recorded with the key")
	apikeyCreateCmd.Flags().StringVar(&apikeySecretID, "secret-id", "", "secret to sign with when several are configured")
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyRevokeCmd)
	rootCmd.AddCommand(apikeyCmd)
}
