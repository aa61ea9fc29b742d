package app

import (
	"context"

	"github.com/AyushChatto/mastercal-sync/internal/config"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration and the sync pipeline.
type Application struct {
	cfg  config.Application
	deps *Dependencies
}

// NewApplication constructs the full application, ready to Run().
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	deps, err := BuildDependencies(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Application{cfg: cfg, deps: deps}, nil
}

// Run performs one reconciliation pass: fetch the pinned MasterCal message,
// parse it, and sync the result into the remote calendar.
func (a *Application) Run(ctx context.Context) error {
	log.Infof("sync start: chatID=%d calendarID=%s pattern=%q",
		a.cfg.Telegram.ChatID, a.cfg.Google.CalendarID, a.cfg.Sync.Pattern)

	text, err := a.deps.Telegram.LatestPinnedText(ctx, a.cfg.Telegram.ChatID, a.cfg.Sync.Pattern)
	if err != nil {
		return err
	}

	parsed, diags, err := a.deps.Parser.Parse(text)
	if err != nil {
		return err
	}
	if len(diags) > 0 {
		log.Warnf("parser finished with %d diagnostics", len(diags))
	}

	if err := a.deps.Syncer.Sync(ctx, parsed); err != nil {
		return err
	}
	log.Info("sync done")
	return nil
}
