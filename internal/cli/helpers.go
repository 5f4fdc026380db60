package cli

import (
	"fmt"
	"log/slog"

	"repodeck/internal/github"
	"repodeck/internal/gitx"
	"repodeck/internal/history"
	"repodeck/internal/logging"
	"repodeck/internal/settings"
)

// loadSettings reads the user settings from the default path.
func loadSettings() (settings.Settings, error) {
	path, err := settings.DefaultPath()
	if err != nil {
		return settings.Defaults(), err
	}
	return settings.Load(path)
}

// setupLogger installs the default logger per the configured log level,
// with daily files under ~/.repodeck/logs.
func setupLogger(cfg settings.Settings) (*slog.Logger, error) {
	dir, err := logging.DefaultLogDir()
	if err != nil {
		return nil, err
	}
	return logging.Setup(logging.Config{Level: cfg.LogLevel, Dir: dir})
}

// openHistory opens the run-history database at the default path and
// applies migrations. The caller must Close the returned store.
func openHistory() (*history.Store, error) {
	path, err := history.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("history path: %w", err)
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return store, nil
}

func gitClient(log *slog.Logger) *gitx.Client {
	return gitx.NewClient(gitx.ExecGit{}, log)
}

func ghClient() *github.Client {
	return github.NewClient(&github.ExecRunner{})
}
