// paperauthctl es la CLI administrativa: opera directo contra el storage
// configurado (altas de cuenta, cambios de credencial, flag de segundo
// factor), sin pasar por la API.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/paperauth/internal/config"
	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/security/password"
	"github.com/dropDatabas3/paperauth/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:           "paperauthctl",
		Short:         "CLI admin del servicio de autenticación",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path al YAML de configuración")

	openStore := func(ctx context.Context) (*pg.Store, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		if cfg.Storage.Driver != "pg" {
			return nil, fmt.Errorf("paperauthctl requiere storage.driver=pg (actual: %s)", cfg.Storage.Driver)
		}
		return pg.Open(ctx, cfg.Storage.DSN, pg.Options{DefaultScopes: cfg.Storage.DefaultScopes})
	}

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Operaciones sobre cuentas",
	}

	var createUsername, createEmail, createPassword string
	var createScopes []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crear una cuenta nueva",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createUsername == "" || createEmail == "" || createPassword == "" {
				return fmt.Errorf("--username, --email y --password son obligatorios")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			hash, err := password.Hash(password.Default, createPassword)
			if err != nil {
				return err
			}
			account, err := st.Accounts().Create(ctx, repository.CreateAccountInput{
				Username:     createUsername,
				Email:        strings.ToLower(strings.TrimSpace(createEmail)),
				PasswordHash: hash,
				Scopes:       createScopes,
			})
			if err != nil {
				if repository.IsConflict(err) {
					return fmt.Errorf("username o email ya registrados")
				}
				return err
			}
			fmt.Printf("cuenta creada: %s\n", account.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&createUsername, "username", "", "Username de la cuenta")
	createCmd.Flags().StringVar(&createEmail, "email", "", "Email de la cuenta")
	createCmd.Flags().StringVar(&createPassword, "password", "", "Password inicial")
	createCmd.Flags().StringSliceVar(&createScopes, "scopes", nil, "Scopes de la cuenta")

	var setPassUsername, setPassPassword string
	setPasswordCmd := &cobra.Command{
		Use:   "set-password",
		Short: "Reemplazar la credencial de una cuenta",
		RunE: func(cmd *cobra.Command, args []string) error {
			if setPassUsername == "" || setPassPassword == "" {
				return fmt.Errorf("--username y --password son obligatorios")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			account, err := st.Accounts().GetByUsername(ctx, setPassUsername)
			if err != nil {
				return err
			}
			hash, err := password.Hash(password.Default, setPassPassword)
			if err != nil {
				return err
			}
			if err := st.Accounts().SetPasswordHash(ctx, account.ID, hash); err != nil {
				return err
			}
			fmt.Println("credencial actualizada")
			return nil
		},
	}
	setPasswordCmd.Flags().StringVar(&setPassUsername, "username", "", "Username de la cuenta")
	setPasswordCmd.Flags().StringVar(&setPassPassword, "password", "", "Password nueva")

	var twoFAUsername string
	var twoFAEnabled bool
	set2FACmd := &cobra.Command{
		Use:   "set-2fa",
		Short: "Forzar el flag de segundo factor de una cuenta",
		RunE: func(cmd *cobra.Command, args []string) error {
			if twoFAUsername == "" {
				return fmt.Errorf("--username es obligatorio")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			account, err := st.Accounts().GetByUsername(ctx, twoFAUsername)
			if err != nil {
				return err
			}
			if err := st.Accounts().SetTwoFactorEnabled(ctx, account.ID, twoFAEnabled); err != nil {
				return err
			}
			fmt.Printf("segundo factor: %v\n", twoFAEnabled)
			return nil
		},
	}
	set2FACmd.Flags().StringVar(&twoFAUsername, "username", "", "Username de la cuenta")
	set2FACmd.Flags().BoolVar(&twoFAEnabled, "enabled", false, "Estado deseado del flag")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplicar las migraciones pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := pg.Migrate(ctx, st.DB()); err != nil {
				return err
			}
			fmt.Println("migraciones al día")
			return nil
		},
	}

	accountCmd.AddCommand(createCmd, setPasswordCmd, set2FACmd)
	root.AddCommand(accountCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
