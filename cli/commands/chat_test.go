package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hiddenpath/relay/cli/config"
	"github.com/hiddenpath/relay/cli/keystore"
)

type mapKeystore map[string]string

func (m mapKeystore) Set(name, value string) error { m[name] = value; return nil }

func (m mapKeystore) Get(name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", &keystore.ErrKeyNotFound{Name: name}
	}
	return v, nil
}

func (m mapKeystore) Delete(name string) error {
	if _, ok := m[name]; !ok {
		return &keystore.ErrKeyNotFound{Name: name}
	}
	delete(m, name)
	return nil
}

func (m mapKeystore) List() ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names, nil
}

func newChatApp(t *testing.T, serverURL string, keys mapKeystore) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	loader := func(path string) (*config.Config, error) {
		return &config.Config{
			DefaultProvider: "openai",
			DefaultModel:    "gpt-4o",
			Providers: map[string]config.ProviderConfig{
				"openai": {BaseURL: serverURL},
			},
			Resilience: config.ResilienceConfig{
				Retry: config.RetryConfig{Disabled: true},
			},
		}, nil
	}

	var stdout, stderr bytes.Buffer
	app := NewApp(
		WithConfigLoader(loader),
		WithKeystoreFactory(func() (keystore.Keystore, error) { return keys, nil }),
		WithIO(strings.NewReader(""), &stdout, &stderr),
	)
	return app, &stdout, &stderr
}

func TestChatCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [{"message": {"content": "Paris."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`)
	}))
	defer srv.Close()

	app, stdout, _ := newChatApp(t, srv.URL, mapKeystore{"openai": "sk-test"})
	app.SetArgs([]string{"chat", "--prompt", "Capital of France?"})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if !strings.Contains(stdout.String(), "Paris.") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestChatCommandStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, data := range []string{
			`{"choices":[{"delta":{"content":"Par"}}]}`,
			`{"choices":[{"delta":{"content":"is."}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			"[DONE]",
		} {
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
	}))
	defer srv.Close()

	app, stdout, _ := newChatApp(t, srv.URL, mapKeystore{"openai": "sk-test"})
	app.SetArgs([]string{"chat", "--prompt", "Capital of France?", "--stream"})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if !strings.Contains(stdout.String(), "Paris.") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestChatCommandJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "chatcmpl-2",
			"model": "gpt-4o",
			"choices": [{"message": {"content": "Hi"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`)
	}))
	defer srv.Close()

	app, stdout, _ := newChatApp(t, srv.URL, mapKeystore{"openai": "sk-test"})
	app.SetArgs([]string{"chat", "--prompt", "hi", "--json"})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if out["output"] != "Hi" {
		t.Errorf("output field = %v", out["output"])
	}
}

func TestChatCommandAPIKeyFromEnv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-env" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}, "finish_reason": "stop"}]}`)
	}))
	defer srv.Close()

	t.Setenv("RELAY_TEST_OPENAI_KEY", "sk-env")

	loader := func(path string) (*config.Config, error) {
		return &config.Config{
			DefaultProvider: "openai",
			DefaultModel:    "gpt-4o",
			Providers: map[string]config.ProviderConfig{
				"openai": {BaseURL: srv.URL, APIKeyEnv: "RELAY_TEST_OPENAI_KEY"},
			},
		}, nil
	}

	var stdout, stderr bytes.Buffer
	app := NewApp(
		WithConfigLoader(loader),
		WithKeystoreFactory(func() (keystore.Keystore, error) { return mapKeystore{}, nil }),
		WithIO(strings.NewReader(""), &stdout, &stderr),
	)
	app.SetArgs([]string{"chat", "--prompt", "hi"})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
}

func TestChatCommandMissingKey(t *testing.T) {
	app, _, _ := newChatApp(t, "http://unused.invalid", mapKeystore{})
	app.SetArgs([]string{"chat", "--prompt", "hi"})

	err := app.Execute()
	if err == nil {
		t.Fatal("Execute() = nil, want missing-key error")
	}
	var exitErr *exitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != ExitValidation {
		t.Errorf("err = %v, want validation exit code", err)
	}
}

func TestChatCommandProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Incorrect API key"}}`)
	}))
	defer srv.Close()

	app, _, stderr := newChatApp(t, srv.URL, mapKeystore{"openai": "bad"})
	app.SetArgs([]string{"chat", "--prompt", "hi"})

	err := app.Execute()
	var exitErr *exitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != ExitProvider {
		t.Fatalf("err = %v, want provider exit code", err)
	}
	if !strings.Contains(stderr.String(), "Incorrect API key") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestKeysCommandsWithInjectedStore(t *testing.T) {
	keys := mapKeystore{}

	var stdout, stderr bytes.Buffer
	app := NewApp(
		WithConfigLoader(emptyConfigLoader),
		WithKeystoreFactory(func() (keystore.Keystore, error) { return keys, nil }),
		WithIO(strings.NewReader("sk-piped\n"), &stdout, &stderr),
	)
	app.SetArgs([]string{"keys", "set", "openai"})
	if err := app.Execute(); err != nil {
		t.Fatalf("keys set = %v", err)
	}
	if keys["openai"] != "sk-piped" {
		t.Errorf("stored key = %q", keys["openai"])
	}

	app2 := NewApp(
		WithConfigLoader(emptyConfigLoader),
		WithKeystoreFactory(func() (keystore.Keystore, error) { return keys, nil }),
		WithIO(strings.NewReader(""), &stdout, &stderr),
	)
	app2.SetArgs([]string{"keys", "list"})
	if err := app2.Execute(); err != nil {
		t.Fatalf("keys list = %v", err)
	}
	if !strings.Contains(stdout.String(), "openai") {
		t.Errorf("list output = %q", stdout.String())
	}
}
