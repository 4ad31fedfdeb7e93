// Package chat implements the free-text dialogue flow: one inbound message
// in, exactly one reply out.
package chat

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/locale"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/memory"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/nlp"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/session"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
)

// contextMemoryFetch is how many memories are read per turn.  The assembler
// trims the list further for the prompt.
const contextMemoryFetch = 10

// Sender delivers replies back to the chat transport.
type Sender interface {
	SendText(chatID int64, text string) error
}

// Config carries the orchestrator's collaborators.
type Config struct {
	Store     *store.Store
	Provider  nlp.Provider
	Extractor *memory.Extractor
	Assembler *memory.ContextAssembler
	Locales   *locale.Catalog
	Sender    Sender

	// Limiter throttles the free-text path.  Optional; nil disables
	// throttling.
	Limiter *nlp.RateLimiter
}

// Orchestrator runs the per-message dialogue flow: enroll the user, recall
// stored facts, extract new ones, generate a reply and record what happened.
//
// Every collaborator failure resolves to either a safe default or a
// user-visible fallback; nothing escapes HandleMessage.
type Orchestrator struct {
	store     *store.Store
	provider  nlp.Provider
	extractor *memory.Extractor
	assembler *memory.ContextAssembler
	locales   *locale.Catalog
	sender    Sender
	limiter   *nlp.RateLimiter
}

// New creates an Orchestrator from its collaborators.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		store:     cfg.Store,
		provider:  cfg.Provider,
		extractor: cfg.Extractor,
		assembler: cfg.Assembler,
		locales:   cfg.Locales,
		sender:    cfg.Sender,
		limiter:   cfg.Limiter,
	}
}

// HandleMessage runs the dialogue flow for one inbound free-text message.
//
// Exactly one reply is sent per call: the throttle notice for users over
// their window, the generated text on success, or the localized apology on
// generation failure.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	started := time.Now()
	user := msg.From
	text := msg.Text

	if o.limiter != nil && !o.limiter.Allow(user.ID) {
		o.send(msg.Chat.ID, o.limiter.Notice())
		return
	}

	if err := o.store.UpsertUser(ctx, user.ID, user.UserName, user.FirstName, started); err != nil {
		slog.Warn("chat: failed to upsert user", "err", err, "user_id", user.ID)
	}

	sessionID := session.ID(user.ID, started)
	lang := o.store.Language(ctx, user.ID)

	memories, err := o.store.RecentMemories(ctx, user.ID, contextMemoryFetch)
	if err != nil {
		slog.Warn("chat: failed to read memories", "err", err, "user_id", user.ID)
		memories = nil
	}

	snap := store.Snapshot{
		"username":       user.UserName,
		"first_name":     user.FirstName,
		"message_length": utf8.RuneCountInString(text),
		"language":       lang,
		"has_memories":   len(memories) > 0,
	}

	// Side effect only.  The memories list was fetched above, so a fact
	// extracted from this message first appears in the next turn's prompt.
	o.extractor.MaybeExtract(ctx, user.ID, text, lang)

	msgs := o.locales.Messages(lang)
	prompt := o.assembler.SystemPrompt(msgs.Persona, memories)

	genStart := time.Now()
	reply, err := o.provider.Complete(ctx, prompt, text)
	if err != nil {
		slog.Error("chat: generation failed", "err", err, "user_id", user.ID)
		snap["error"] = err.Error()

		o.send(msg.Chat.ID, msgs.Fallback)
		o.logEvent(ctx, user.ID, store.ActionMessageError, sessionID, snap, time.Since(started).Milliseconds())
		return
	}
	snap["openai_time_ms"] = time.Since(genStart).Milliseconds()
	snap["response_length"] = utf8.RuneCountInString(reply.Text)

	o.send(msg.Chat.ID, reply.Text)
	latency := time.Since(started).Milliseconds()

	if _, err := o.store.AppendConversation(ctx, user.ID, text, reply.Text); err != nil {
		slog.Warn("chat: failed to save conversation", "err", err, "user_id", user.ID)
	}
	o.logEvent(ctx, user.ID, store.ActionMessage, sessionID, snap, latency)
}

// send delivers a reply, logging delivery failures.  The flow continues
// either way so bookkeeping still happens for undeliverable replies.
func (o *Orchestrator) send(chatID int64, text string) {
	if err := o.sender.SendText(chatID, text); err != nil {
		slog.Error("chat: failed to send reply", "err", err, "chat_id", chatID)
	}
}

// logEvent appends an analytics event.  Failures are logged and swallowed.
func (o *Orchestrator) logEvent(ctx context.Context, userID int64, action, sessionID string, snap store.Snapshot, latencyMS int64) {
	if err := o.store.WriteEvent(ctx, userID, action, "", sessionID, snap, latencyMS, time.Now()); err != nil {
		slog.Warn("chat: failed to write analytics event",
			"err", err,
			"user_id", userID,
			"action", action,
		)
	}
}
