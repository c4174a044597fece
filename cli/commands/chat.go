package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hiddenpath/relay"
	"github.com/hiddenpath/relay/cli/keystore"
	"github.com/hiddenpath/relay/core"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitProvider   = 2
	ExitNetwork    = 3
)

func (a *App) newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a chat request",
		Long: `Send a chat request to a configured provider.

Examples:
  relay chat --provider openai --model gpt-4o --prompt "Hello"
  relay chat --prompt "Hello" --stream
  relay chat --prompt "Hello" --json`,
		RunE: a.runChat,
	}

	cmd.Flags().StringVar(&a.chatPrompt, "prompt", "", "User message (required)")
	cmd.Flags().StringVar(&a.chatSystem, "system", "", "System message")
	cmd.Flags().Float32Var(&a.chatTemperature, "temperature", 0, "Temperature (0 = provider default)")
	cmd.Flags().IntVar(&a.chatMaxTokens, "max-tokens", 0, "Max tokens (0 = provider default)")
	cmd.Flags().BoolVar(&a.chatStream, "stream", false, "Stream output as it arrives")

	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func (a *App) runChat(cmd *cobra.Command, args []string) error {
	if a.provider == "" {
		return exitWithCode(ExitValidation, fmt.Errorf("provider required: use --provider or set default_provider in config"))
	}
	if a.model == "" {
		return exitWithCode(ExitValidation, fmt.Errorf("model required: use --model or set default_model in config"))
	}

	apiKey, err := a.resolveAPIKey(a.provider)
	if err != nil {
		var notFound *keystore.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return exitWithCode(ExitValidation, fmt.Errorf("no API key for %s: run 'relay keys set %s' or set api_key_env", a.provider, a.provider))
		}
		return exitWithCode(ExitValidation, fmt.Errorf("resolve API key: %w", err))
	}

	client, err := a.newClient(a.provider, apiKey, a.cfg)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	builder := client.NewChat(core.ModelID(a.model))
	if a.chatSystem != "" {
		builder.System(a.chatSystem)
	}
	builder.User(a.chatPrompt)
	if a.chatTemperature > 0 {
		builder.Temperature(a.chatTemperature)
	}
	if a.chatMaxTokens > 0 {
		builder.MaxTokens(a.chatMaxTokens)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if a.chatStream {
		return a.runStreamingChat(ctx, builder)
	}
	return a.runChatOnce(ctx, builder)
}

func (a *App) runChatOnce(ctx context.Context, builder *relay.ChatBuilder) error {
	resp, err := builder.Do(ctx)
	if err != nil {
		return a.handleChatError(err)
	}

	if a.jsonOutput {
		return a.outputJSON(map[string]any{
			"id":     resp.ID,
			"model":  resp.Model,
			"output": resp.Output,
			"usage": map[string]int{
				"input_tokens":  resp.Usage.InputTokens,
				"output_tokens": resp.Usage.OutputTokens,
				"total_tokens":  resp.Usage.TotalTokens,
			},
		})
	}

	fmt.Fprintf(a.stdout, "> %s\n", a.chatPrompt)
	fmt.Fprintln(a.stdout, resp.Output)
	return nil
}

func (a *App) runStreamingChat(ctx context.Context, builder *relay.ChatBuilder) error {
	if a.jsonOutput {
		// Accumulate the stream for structured output.
		result, err := builder.Text(ctx)
		if err != nil {
			return a.handleChatError(err)
		}
		return a.outputJSON(map[string]any{"output": result})
	}

	events, err := builder.Stream(ctx)
	if err != nil {
		return a.handleChatError(err)
	}

	fmt.Fprintf(a.stdout, "> %s\n", a.chatPrompt)

	var usage *core.Usage
	for ev, evErr := range events {
		if evErr != nil {
			fmt.Fprintln(a.stdout)
			return a.handleChatError(evErr)
		}
		switch ev.Type {
		case core.EventContentDelta:
			fmt.Fprint(a.stdout, ev.Text)
		case core.EventStreamEnd:
			usage = ev.Usage
		case core.EventStreamError:
			fmt.Fprintln(a.stdout)
			return a.handleChatError(ev.Err)
		}
	}
	fmt.Fprintln(a.stdout)

	if a.verbose && usage != nil {
		fmt.Fprintf(a.stderr, "Usage: %d input + %d output = %d total tokens\n",
			usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	}
	return nil
}

func (a *App) handleChatError(err error) error {
	var provErr *core.ProviderError
	if errors.As(err, &provErr) {
		if a.jsonOutput {
			a.outputErrorJSON(string(provErr.Kind), provErr.Message, provErr.Provider, provErr.RequestID)
		} else {
			fmt.Fprintf(a.stderr, "Error: %s\n", provErr.Message)
			if provErr.RequestID != "" {
				fmt.Fprintf(a.stderr, "  Provider: %s, Request ID: %s\n", provErr.Provider, provErr.RequestID)
			}
		}
		if errors.Is(err, core.ErrNetwork) {
			return exitWithCode(ExitNetwork, err)
		}
		return exitWithCode(ExitProvider, err)
	}

	if errors.Is(err, core.ErrNetwork) {
		if a.jsonOutput {
			a.outputErrorJSON("network_error", err.Error(), "", "")
		} else {
			fmt.Fprintf(a.stderr, "Error: network error: %v\n", err)
		}
		return exitWithCode(ExitNetwork, err)
	}

	if a.jsonOutput {
		a.outputErrorJSON("error", err.Error(), "", "")
	} else {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return exitWithCode(ExitProvider, err)
}

func (a *App) outputJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) outputErrorJSON(errType, message, provider, requestID string) {
	detail := map[string]any{
		"type":    errType,
		"message": message,
	}
	if provider != "" {
		detail["provider"] = provider
	}
	if requestID != "" {
		detail["request_id"] = requestID
	}

	enc := json.NewEncoder(a.stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"error": detail})
}

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) ExitCode() int { return e.code }

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
