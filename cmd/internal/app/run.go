package app

import (
	"context"
	"os/signal"
	"syscall"

	authapi "authgate/cmd/internal/auth/api"
	"authgate/cmd/internal/auth/session"
	"authgate/cmd/security/password"
)

// Run is the CLI entrypoint used by cmd/authgate.
// It returns an error instead of calling os.Exit so defers still run.
func Run() error {
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, Settings{
		App:      cfg,
		Session:  sessCfg,
		Auth:     authapi.LoadConfigFromEnv(),
		Password: pwCfg,
	}, log)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}
