package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/locale"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/session"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
)

// AccessDeniedMessage is sent to non-admins who invoke /analytics.
const AccessDeniedMessage = "🚫 Access denied. This is an admin-only command."

// memoryViewLimit is the number of memories listed by /memory.
const memoryViewLimit = 10

// Handlers holds all command handlers and their shared dependencies.
type Handlers struct {
	store   *store.Store
	locales *locale.Catalog
	admins  map[int64]struct{}
}

// NewHandlers creates a new Handlers instance.  admins is the allow-list
// for /analytics, keyed by Telegram user ID; it may be empty.
func NewHandlers(s *store.Store, locales *locale.Catalog, admins map[int64]struct{}) *Handlers {
	return &Handlers{store: s, locales: locales, admins: admins}
}

// HandleStart greets the user and makes sure their record exists.
func (h *Handlers) HandleStart(ctx context.Context, cmd *Command, msg *tgbotapi.Message) (string, error) {
	started := time.Now()
	user := msg.From

	if err := h.store.UpsertUser(ctx, user.ID, user.UserName, user.FirstName, started); err != nil {
		slog.Warn("commands: failed to upsert user", "err", err, "user_id", user.ID)
	}

	lang := h.store.Language(ctx, user.ID)
	reply := h.locales.Messages(lang).Greeting

	snap := snapshotFor(user)
	snap["user_id"] = user.ID
	h.logEvent(ctx, user.ID, store.ActionCommand, "start", snap, started)
	return reply, nil
}

// HandleHelp sends the localized user guide.
func (h *Handlers) HandleHelp(ctx context.Context, cmd *Command, msg *tgbotapi.Message) (string, error) {
	started := time.Now()
	user := msg.From

	lang := h.store.Language(ctx, user.ID)
	reply := h.locales.Messages(lang).Help

	h.logEvent(ctx, user.ID, store.ActionCommand, "help", snapshotFor(user), started)
	return reply, nil
}

// HandleLanguage flips the user's language and confirms in the new one.
func (h *Handlers) HandleLanguage(ctx context.Context, cmd *Command, msg *tgbotapi.Message) (string, error) {
	started := time.Now()
	user := msg.From

	current := h.store.Language(ctx, user.ID)
	next := locale.Toggle(current)
	if err := h.store.SetLanguage(ctx, user.ID, next); err != nil {
		slog.Warn("commands: failed to persist language change",
			"err", err,
			"user_id", user.ID,
			"language", next,
		)
	}

	h.logEvent(ctx, user.ID, store.ActionLanguageChange, current+"_to_"+next, snapshotFor(user), started)
	return h.locales.Messages(next).Switched, nil
}

// HandleMemory lists what the bot remembers about the user.
func (h *Handlers) HandleMemory(ctx context.Context, cmd *Command, msg *tgbotapi.Message) (string, error) {
	started := time.Now()
	user := msg.From

	lang := h.store.Language(ctx, user.ID)
	msgs := h.locales.Messages(lang)

	mems, err := h.store.RecentMemories(ctx, user.ID, memoryViewLimit)
	if err != nil {
		slog.Warn("commands: failed to read memories", "err", err, "user_id", user.ID)
		mems = nil
	}

	if len(mems) == 0 {
		h.logEvent(ctx, user.ID, store.ActionCommand, "memory_empty", snapshotFor(user), started)
		return msgs.MemoryEmpty, nil
	}

	var b strings.Builder
	b.WriteString(msgs.MemoryHeader)
	for _, m := range mems {
		b.WriteString("• ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	h.logEvent(ctx, user.ID, store.ActionCommand, "memory_view", snapshotFor(user), started)
	return b.String(), nil
}

// HandleDate opens a virtual date and remembers that it happened.
func (h *Handlers) HandleDate(ctx context.Context, cmd *Command, msg *tgbotapi.Message) (string, error) {
	started := time.Now()
	user := msg.From

	lang := h.store.Language(ctx, user.ID)
	reply := h.locales.Messages(lang).DatePrompt

	note := "Started virtual date on " + started.Format("2006-01-02")
	if err := h.store.AppendMemory(ctx, user.ID, store.MemoryDate, note); err != nil {
		slog.Warn("commands: failed to store date memory", "err", err, "user_id", user.ID)
	}

	h.logEvent(ctx, user.ID, store.ActionCommand, "date", snapshotFor(user), started)
	return reply, nil
}

// HandleAnalytics reports 24-hour usage aggregates.  Only users on the
// admin allow-list may invoke it; everyone else gets a denial reply and no
// query is executed.
func (h *Handlers) HandleAnalytics(ctx context.Context, cmd *Command, msg *tgbotapi.Message) (string, error) {
	user := msg.From
	if _, ok := h.admins[user.ID]; !ok {
		return AccessDeniedMessage, nil
	}

	sum, err := h.store.Summarize(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		slog.Error("commands: analytics aggregation failed", "err", err, "user_id", user.ID)
		return fmt.Sprintf("❌ Error getting analytics: %v", err), nil
	}

	return FormatReport(sum, h.locales), nil
}

// logEvent appends an analytics event.  Failures are logged and swallowed
// so analytics never block a reply.
func (h *Handlers) logEvent(ctx context.Context, userID int64, action, payload string, snap store.Snapshot, started time.Time) {
	now := time.Now()
	err := h.store.WriteEvent(ctx, userID, action, payload,
		session.ID(userID, now), snap, now.Sub(started).Milliseconds(), now)
	if err != nil {
		slog.Warn("commands: failed to write analytics event",
			"err", err,
			"user_id", userID,
			"action", action,
			"payload", payload,
		)
	}
}

// snapshotFor captures the identity fields stored alongside analytics rows.
func snapshotFor(user *tgbotapi.User) store.Snapshot {
	return store.Snapshot{
		"username":   user.UserName,
		"first_name": user.FirstName,
	}
}
