package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/photoframe/internal/config"
)

// newLoginCmd and newLogoutCmd are intentionally thin: the interactive
// device-code OAuth exchange is an external collaborator's job (see the
// engine's Non-goals). photoframed only ever reads a token file that
// exchange already produced, via internal/tokensource.
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Print where photoframed expects a saved OAuth2 token",
		Long: `photoframed does not perform the interactive device-code OAuth flow
itself. Run your provider's own login tool first (or the collaborating
CLI it ships with), then point provider.token_path at the resulting
token file, or let photoframed find it at the default location printed
below.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runLogin,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	path := flagConfigPath
	if path == "" {
		path = config.ReadEnvOverrides().ConfigPath
	}

	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path, buildLogger(nil))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tokenPath := cfg.Provider.TokenPath
	if tokenPath == "" {
		tokenPath = config.DefaultTokenPath()
	}

	fmt.Printf("photoframed reads a saved token from:\n  %s\n\n", tokenPath)
	fmt.Println("Produce it with your provider's own login flow, then run 'photoframed run'.")

	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved OAuth2 token, if any",
		Long: `Deletes the token file photoframed reads at startup. photoframed never
contacts the provider's token revocation endpoint itself — that is the
same external collaborator's responsibility as login.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runLogout,
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	path := flagConfigPath
	if path == "" {
		path = config.ReadEnvOverrides().ConfigPath
	}

	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path, buildLogger(nil))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tokenPath := cfg.Provider.TokenPath
	if tokenPath == "" {
		tokenPath = config.DefaultTokenPath()
	}

	if err := removeTokenFile(tokenPath); err != nil {
		return fmt.Errorf("removing token file: %w", err)
	}

	fmt.Printf("Removed %s\n", tokenPath)

	return nil
}

func removeTokenFile(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
