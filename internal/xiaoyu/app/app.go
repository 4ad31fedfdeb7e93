// Package app wires Xiaoyu's subsystems together and runs the bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/chat"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/commands"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/config"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/locale"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/memory"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/nlp"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/scheduler"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/telegram"
)

// Per-command message budgets. The getting-started commands are cheap and
// tolerate a tight window; the free-text path costs a generation call per
// message, so it gets a wider budget than the configured command default.
const (
	startHelpLimit = 5
	chatLimit      = 15
)

// App is the assembled Xiaoyu bot.
type App struct {
	cfg          *config.Config
	store        *store.Store
	telegram     *telegram.Client
	router       *commands.Router
	orchestrator *chat.Orchestrator
	scheduler    *scheduler.Scheduler
}

// New builds the application from its configuration.
func New(cfg *config.Config) (*App, error) {
	slog.Info("opening database", "path", cfg.DatabaseURL)
	st, err := store.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	locales, err := locale.Load()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load locale catalog: %w", err)
	}
	slog.Info("locale catalog ready", "languages", locales.Languages(), "default", locales.Default())

	admins := make(map[int64]struct{}, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		admins[id] = struct{}{}
	}
	handlers := commands.NewHandlers(st, locales, admins)

	// Every handler gets its own throttle so one command cannot eat
	// another's window. The /lang alias shares the /language limiter.
	router := commands.NewRouter()
	router.Register("start", handlers.HandleStart)
	router.Register("help", handlers.HandleHelp)
	router.Register("language", handlers.HandleLanguage)
	router.Register("lang", handlers.HandleLanguage)
	router.Register("memory", handlers.HandleMemory)
	router.Register("date", handlers.HandleDate)
	router.Register("analytics", handlers.HandleAnalytics)

	router.Limit("start", nlp.NewRateLimiter(startHelpLimit, time.Minute))
	router.Limit("help", nlp.NewRateLimiter(startHelpLimit, time.Minute))
	langLimiter := nlp.NewRateLimiter(cfg.RateLimitMessages, cfg.Window())
	router.Limit("language", langLimiter)
	router.Limit("lang", langLimiter)
	router.Limit("memory", nlp.NewRateLimiter(cfg.RateLimitMessages, cfg.Window()))
	router.Limit("date", nlp.NewRateLimiter(cfg.RateLimitMessages, cfg.Window()))
	router.Limit("analytics", nlp.NewRateLimiter(cfg.RateLimitMessages, cfg.Window()))
	slog.Info("command router ready", "default_limit", cfg.RateLimitMessages, "window", cfg.Window())

	provider := nlp.New(nlp.Config{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.OpenAIMaxTokens,
	})
	slog.Info("generation provider ready", "model", cfg.OpenAIModel, "max_tokens", cfg.OpenAIMaxTokens)

	tg, err := telegram.New(cfg.BotToken)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
	}

	orchestrator := chat.New(chat.Config{
		Store:     st,
		Provider:  provider,
		Extractor: memory.NewExtractor(st, locales),
		Assembler: &memory.ContextAssembler{},
		Locales:   locales,
		Sender:    tg,
		Limiter:   nlp.NewRateLimiter(chatLimit, time.Minute),
	})

	// Daily analytics digest, delivered to every configured admin's
	// private chat.
	sched := scheduler.New()
	if len(cfg.AdminUserIDs) > 0 {
		adminIDs := cfg.AdminUserIDs
		sched.SetDigestFunc(func(ctx context.Context) error {
			sum, err := st.Summarize(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				return fmt.Errorf("failed to aggregate analytics: %w", err)
			}
			report := commands.FormatReport(sum, locales)
			for _, adminID := range adminIDs {
				if err := tg.SendMarkdown(adminID, report); err != nil {
					slog.Warn("failed to deliver digest", "admin", adminID, "err", err)
				}
			}
			return nil
		})
	}

	return &App{
		cfg:          cfg,
		store:        st,
		telegram:     tg,
		router:       router,
		orchestrator: orchestrator,
		scheduler:    sched,
	}, nil
}

// Run starts the bot and blocks until an interrupt or termination signal.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Telegram long polling")
	a.telegram.Start(ctx, a.handleMessage)

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info("Xiaoyu is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop releases the app's resources.
func (a *App) Stop() {
	a.scheduler.Stop()

	slog.Info("stopping Telegram client")
	a.telegram.Stop()

	slog.Info("closing database")
	a.store.Close()
}

// handleMessage processes one incoming Telegram message. Commands and free
// text arrive on the same stream; the router claims the former and the
// dialogue orchestrator takes the rest.
func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Enroll before dispatch so every handler can assume the user row exists.
	if err := a.store.UpsertUser(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName, time.Now()); err != nil {
		slog.Warn("failed to upsert user", "user_id", msg.From.ID, "err", err)
	}

	reply, err := a.router.Route(ctx, msg.Text, msg)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrNotACommand):
			a.orchestrator.HandleMessage(ctx, msg)
		case errors.Is(err, commands.ErrUnknownCommand):
			slog.Debug("ignoring unknown command", "user_id", msg.From.ID, "text", msg.Text)
		default:
			slog.Error("command failed", "user_id", msg.From.ID, "err", err)
		}
		return
	}

	if reply != "" {
		if err := a.telegram.SendMarkdown(msg.Chat.ID, reply); err != nil {
			slog.Error("failed to send command reply", "user_id", msg.From.ID, "err", err)
		}
	}
}
