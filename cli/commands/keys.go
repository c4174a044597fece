package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hiddenpath/relay/cli/keystore"
)

func (a *App) newKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
		Long:  `Manage API keys for providers. Keys are stored encrypted at rest.`,
	}

	keysCmd.AddCommand(&cobra.Command{
		Use:   "set <provider>",
		Short: "Set API key for a provider",
		Long:  `Set the API key for a provider. The key is prompted without echo.`,
		Args:  cobra.ExactArgs(1),
		RunE:  a.runKeysSet,
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored API keys",
		Long:  `List all stored API keys. Only provider names are shown, never key values.`,
		RunE:  a.runKeysList,
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "delete <provider>",
		Short: "Delete API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runKeysDelete,
	})

	return keysCmd
}

func (a *App) runKeysSet(cmd *cobra.Command, args []string) error {
	provider := args[0]

	fmt.Fprintf(a.stdout, "Enter API key for %s: ", provider)

	apiKey, err := a.readSecret()
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}
	if err := ks.Set(provider, apiKey); err != nil {
		return fmt.Errorf("store key: %w", err)
	}

	fmt.Fprintf(a.stdout, "API key for %s stored.\n", provider)
	return nil
}

// readSecret reads a key without echo when stdin is a terminal, falling
// back to line input for piped invocations.
func (a *App) readSecret() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(a.stdout)
		return string(keyBytes), nil
	}

	reader := bufio.NewReader(a.stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) runKeysList(cmd *cobra.Command, args []string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}

	names, err := ks.List()
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	if a.jsonOutput {
		return a.outputJSON(map[string]any{"keys": names})
	}

	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "No API keys stored.")
		return nil
	}

	fmt.Fprintln(a.stdout, "Stored keys:")
	for _, name := range names {
		fmt.Fprintf(a.stdout, "  - %s\n", name)
	}
	return nil
}

func (a *App) runKeysDelete(cmd *cobra.Command, args []string) error {
	provider := args[0]

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}

	if err := ks.Delete(provider); err != nil {
		var notFound *keystore.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("no key stored for %s", provider)
		}
		return fmt.Errorf("delete key: %w", err)
	}

	fmt.Fprintf(a.stdout, "API key for %s deleted.\n", provider)
	return nil
}
