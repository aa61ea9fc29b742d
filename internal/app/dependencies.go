package app

import (
	"context"
	"fmt"
	"time"

	"github.com/AyushChatto/mastercal-sync/internal/config"
	"github.com/AyushChatto/mastercal-sync/internal/utils"
	"github.com/AyushChatto/mastercal-sync/pkg/gcal"
	"github.com/AyushChatto/mastercal-sync/pkg/identity"
	"github.com/AyushChatto/mastercal-sync/pkg/mastercal"
	"github.com/AyushChatto/mastercal-sync/pkg/syncer"
	"github.com/AyushChatto/mastercal-sync/pkg/telegram"
)

// Dependencies holds all services of the application.
type Dependencies struct {
	Clock    utils.Clock
	Telegram telegram.Client
	Parser   *mastercal.Parser
	Resolver *identity.Resolver
	Calendar gcal.Client
	Syncer   *syncer.Syncer
}

// BuildDependencies initializes and wires all application services.
func BuildDependencies(ctx context.Context, cfg config.Application) (*Dependencies, error) {
	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		return nil, fmt.Errorf("could not load location for timezone %s: %v", cfg.Sync.Timezone, err)
	}

	deps := &Dependencies{}
	deps.Clock = &utils.SystemClock{}
	deps.Telegram = telegram.NewBotClient(cfg.Telegram.BotToken)
	deps.Parser = mastercal.NewParser(cfg.Sync.Strict, cfg.Sync.Pattern, loc, deps.Clock)
	deps.Resolver = identity.NewResolver(cfg.Telegram.ChatID)

	deps.Calendar, err = gcal.NewService(ctx, cfg.Google, loc)
	if err != nil {
		return nil, err
	}
	deps.Syncer = syncer.New(deps.Calendar, deps.Resolver, loc)

	return deps, nil
}
