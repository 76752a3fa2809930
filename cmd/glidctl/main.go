// glidctl es la CLI de operación de giglink-identity: inspección de
// tokens de providers, sesiones de desarrollo y seeding de cuentas.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oscarho2/giglink-identity/internal/config"
	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/identity/provider/apple"
	"github.com/oscarho2/giglink-identity/internal/identity/provider/google"
	"github.com/oscarho2/giglink-identity/internal/observability/logger"
	"github.com/oscarho2/giglink-identity/internal/security/password"
	"github.com/oscarho2/giglink-identity/internal/session"
	"github.com/oscarho2/giglink-identity/internal/store"

	_ "github.com/oscarho2/giglink-identity/internal/store/memory"
	_ "github.com/oscarho2/giglink-identity/internal/store/mongo"
	_ "github.com/oscarho2/giglink-identity/internal/store/pg"
)

func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat("configs/config.yaml"); err == nil {
			path = "configs/config.yaml"
		}
	}
	return config.Load(path)
}

func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	if cfg.Providers.Google.Enabled {
		registry.Register(identity.ProviderGoogle, google.New(cfg.Providers.Google.ClientIDs, google.Options{}))
	}
	if cfg.Providers.Apple.Enabled {
		pemBytes, err := os.ReadFile(cfg.Providers.Apple.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("apple private key: %w", err)
		}
		key, err := apple.ParsePrivateKey(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("apple private key: %w", err)
		}
		registry.Register(identity.ProviderApple, apple.New(apple.Config{
			ClientIDs:  cfg.Providers.Apple.ClientIDs,
			TeamID:     cfg.Providers.Apple.TeamID,
			KeyID:      cfg.Providers.Apple.KeyID,
			PrivateKey: key,
		}, apple.Options{}))
	}
	return registry, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "glidctl",
		Short: "CLI de operación para giglink-identity",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")

	// token inspect
	var inspectProvider string
	tokenCmd := &cobra.Command{Use: "token", Short: "Operaciones sobre tokens de providers"}
	inspectCmd := &cobra.Command{
		Use:   "inspect <id_token>",
		Short: "Verifica un ID token contra el provider y muestra la identidad",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: "dev", Level: "warn"})
			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			p, ok := identity.ParseProvider(inspectProvider)
			if !ok {
				return fmt.Errorf("provider desconocido: %q", inspectProvider)
			}
			v, err := registry.Verifier(p)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			id, err := v.Verify(ctx, args[0])
			if err != nil {
				return err
			}
			printJSON(id)
			return nil
		},
	}
	inspectCmd.Flags().StringVar(&inspectProvider, "provider", "google", "google|apple")
	tokenCmd.AddCommand(inspectCmd)

	// session mint / verify
	var mintAccountID, mintEmail string
	sessionCmd := &cobra.Command{Use: "session", Short: "Sesiones de desarrollo"}
	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Emite una sesión firmada con el secret configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if mintAccountID == "" || mintEmail == "" {
				return fmt.Errorf("--account-id y --email son requeridos")
			}
			issuer := session.NewIssuer([]byte(cfg.Session.Secret), cfg.Session.Issuer, cfg.Session.TTL.D)
			token, expiresAt, err := issuer.Issue(mintAccountID, mintEmail)
			if err != nil {
				return err
			}
			printJSON(map[string]any{"session_token": token, "expires_at": expiresAt})
			return nil
		},
	}
	mintCmd.Flags().StringVar(&mintAccountID, "account-id", "", "account ID (sub)")
	mintCmd.Flags().StringVar(&mintEmail, "email", "", "email de la cuenta")

	verifyCmd := &cobra.Command{
		Use:   "verify <session_token>",
		Short: "Verifica una sesión y muestra sus claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			issuer := session.NewIssuer([]byte(cfg.Session.Secret), cfg.Session.Issuer, cfg.Session.TTL.D)
			claims, err := issuer.Verify(args[0])
			if err != nil {
				return err
			}
			printJSON(claims)
			return nil
		},
	}
	sessionCmd.AddCommand(mintCmd, verifyCmd)

	// account seed
	var seedEmail, seedPassword, seedName string
	accountCmd := &cobra.Command{Use: "account", Short: "Operaciones sobre cuentas"}
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea una cuenta con password en el store configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: "dev", Level: "warn"})
			if seedEmail == "" || seedPassword == "" {
				return fmt.Errorf("--email y --password son requeridos")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			storeCfg := store.Config{Driver: cfg.Storage.Driver}
			storeCfg.Mongo.URI = cfg.Storage.Mongo.URI
			storeCfg.Mongo.Database = cfg.Storage.Mongo.Database
			storeCfg.Postgres.DSN = cfg.Storage.Postgres.DSN

			accounts, err := store.Open(ctx, storeCfg)
			if err != nil {
				return err
			}
			defer func() { _ = accounts.Close(context.Background()) }()

			hash, err := password.Hash(password.Default, seedPassword)
			if err != nil {
				return err
			}
			acct, err := accounts.Create(ctx, store.CreateAccountInput{
				Email:        store.NormalizeEmail(seedEmail),
				PasswordHash: hash,
				DisplayName:  seedName,
			})
			if err != nil {
				return err
			}
			printJSON(acct)
			return nil
		},
	}
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "email de la cuenta")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "password en claro (se hashea con argon2id)")
	seedCmd.Flags().StringVar(&seedName, "name", "", "display name")
	accountCmd.AddCommand(seedCmd)

	// config show
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Muestra la configuración pública de providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			printJSON(map[string]any{
				"google": map[string]any{
					"enabled":      cfg.Providers.Google.Enabled,
					"client_ids":   cfg.Providers.Google.ClientIDs,
					"redirect_uri": cfg.Providers.Google.RedirectURI,
				},
				"apple": map[string]any{
					"enabled":      cfg.Providers.Apple.Enabled,
					"client_ids":   cfg.Providers.Apple.ClientIDs,
					"redirect_uri": cfg.Providers.Apple.RedirectURI,
				},
			})
			return nil
		},
	}

	root.AddCommand(tokenCmd, sessionCmd, accountCmd, configCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
