package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/engine"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/storage"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

// loadConfig reads the YAML config named by --config. The default path may
// be absent, in which case built-in defaults apply; an explicitly set path
// must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")

	loaded, err := pkgconfig.LoadIfPresent(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !loaded && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return cfg, nil
}

// cliLogger keeps log noise on stderr so command output on stdout stays
// machine-readable.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

type vaultEnv struct {
	cfg   *internal.Config
	store storage.Provider
	svc   *noteservice.Service
	stats index.Stats
}

// storageFS opens the vault file system for commands that do not need the
// index.
func storageFS(cfg *internal.Config) (storage.Provider, error) {
	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.IgnoredFolders)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return store, nil
}

// openVault opens the vault and index for a one-shot command, bringing the
// index up to date before returning. The cleanup func closes the index.
func openVault(cmd *cli.Command) (*vaultEnv, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := storageFS(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}

	stats, err := index.Sync(db, store, cliLogger())
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sync index: %w", err)
	}

	eng, err := engine.New(db, cfg.Query.CacheSize, cfg.Query.DefaultLimit)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init query engine: %w", err)
	}

	env := &vaultEnv{
		cfg:   cfg,
		store: store,
		svc:   noteservice.NewService(store, db, eng),
		stats: stats,
	}
	return env, func() { db.Close() }, nil
}
