package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chinkauchenna2021/bankauth/auth"
	"github.com/chinkauchenna2021/bankauth/gateway"
	"github.com/chinkauchenna2021/bankauth/tokenstore"
)

// passphraseEnv optionally seals the persisted session blob at rest.
const passphraseEnv = "BANKAUTH_PASSPHRASE"

// buildClient is the composition root: one token store, one gateway, one
// engine, wired to each other. The returned cleanup closes any storage
// handles.
func buildClient(logger *slog.Logger, opts ...auth.Option) (*auth.Engine, *tokenstore.Store, *gateway.Client, func(), error) {
	dir := dataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".bankauth")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var backend tokenstore.Backend
	cleanup := func() {}
	if useBolt {
		bolt, err := tokenstore.NewBoltBackendFromFile(filepath.Join(dir, "session.db"), nil)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		backend = bolt
		cleanup = func() { bolt.Close() }
	} else {
		file, err := tokenstore.NewFileBackend(filepath.Join(dir, "session.json"))
		if err != nil {
			return nil, nil, nil, nil, err
		}
		backend = file
	}
	if passphrase := os.Getenv(passphraseEnv); passphrase != "" {
		backend = tokenstore.NewSealedBackend(backend, passphrase)
	}

	tokens := tokenstore.New(backend, tokenstore.WithLogger(logger))

	client, err := gateway.New(apiURL, tokens, gateway.WithLogger(logger))
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	opts = append([]auth.Option{auth.WithLogger(logger)}, opts...)
	engine := auth.New(client, tokens, opts...)
	client.SetRefresher(engine)

	return engine, tokens, client, cleanup, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
