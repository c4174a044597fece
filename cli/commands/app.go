// Package commands implements the CLI command structure using Cobra.
package commands

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hiddenpath/relay"
	"github.com/hiddenpath/relay/cli/config"
	"github.com/hiddenpath/relay/cli/keystore"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// ClientFactory builds a relay client for a configured provider.
type ClientFactory func(providerID, apiKey string, cfg *config.Config) (*relay.Client, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig  ConfigLoader
	newKeystore KeystoreFactory
	newClient   ClientFactory
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer

	cfgFile    string
	provider   string
	model      string
	jsonOutput bool
	verbose    bool
	cfg        *config.Config

	chatPrompt      string
	chatSystem      string
	chatTemperature float32
	chatMaxTokens   int
	chatStream      bool
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithClientFactory injects a client factory dependency.
func WithClientFactory(factory ClientFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newClient = factory
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:  config.LoadConfig,
		newKeystore: keystore.NewKeystore,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	a.newClient = a.defaultClientFactory

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "relay",
		Short: "Relay - unified multi-provider AI chat CLI",
		Long: `Relay is a command-line interface for chatting with AI providers
through one unified runtime.

Use relay to manage API keys, inspect configured providers, and send
chat requests with streaming output.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage: true,
	}

	// Global flags available to all commands.
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.relay/config.yaml)")
	root.PersistentFlags().StringVar(&a.provider, "provider", "", "provider ID (openai, anthropic, gemini, or configured)")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model ID (e.g. gpt-4o)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable verbose output")

	root.AddCommand(a.newChatCommand())
	root.AddCommand(a.newProvidersCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.root.Execute()
}

// SetArgs overrides process arguments, for tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
	a.root.SetOut(a.stdout)
	a.root.SetErr(a.stderr)
}

func (a *App) initConfig() error {
	// Local .env files are a development convenience; absence is fine.
	_ = godotenv.Load()

	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Apply config defaults if flags not set.
	if a.provider == "" && cfg.DefaultProvider != "" {
		a.provider = cfg.DefaultProvider
	}
	if a.model == "" && cfg.DefaultModel != "" {
		a.model = cfg.DefaultModel
	}

	return nil
}

// resolveAPIKey finds the key for a provider: the configured environment
// variable first, then the keystore.
func (a *App) resolveAPIKey(providerID string) (string, error) {
	if pc := a.cfg.GetProvider(providerID); pc != nil && pc.APIKeyEnv != "" {
		if key := os.Getenv(pc.APIKeyEnv); key != "" {
			return key, nil
		}
	}

	ks, err := a.newKeystore()
	if err != nil {
		return "", err
	}
	return ks.Get(providerID)
}

// Execute runs the default app root command.
func Execute() error {
	return NewApp().Execute()
}
